package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/asha/internal/server"
)

const (
	app       = "asha"
	envPrefix = "ASHA"
)

type Config struct {
	Listen    string         `mapstructure:"listen"`
	PublicURL string         `mapstructure:"public-url"`
	Database  string         `mapstructure:"database"`
	Chat      *ChatConfig    `mapstructure:"chat"`
	Booking   *BookingConfig `mapstructure:"booking"`
	Jobs      *JobsConfig    `mapstructure:"jobs"`
	AI        *AIConfig      `mapstructure:"ai"`
	Calls     *CallsConfig   `mapstructure:"calls"`
	HTTP      server.Config  `mapstructure:"http"`
	Janitor   *JanitorConfig `mapstructure:"janitor"`
}

type ChatConfig struct {
	CallTimeout  time.Duration `mapstructure:"call-timeout"`
	HistoryTurns int           `mapstructure:"history-turns"`
	SessionTTL   time.Duration `mapstructure:"session-ttl"`
}

type BookingConfig struct {
	FlagTTL     time.Duration `mapstructure:"flag-ttl"`
	CountryCode string        `mapstructure:"country-code"`
}

type JobsConfig struct {
	APIKey            string        `mapstructure:"api-key"`
	APIKeyFile        string        `mapstructure:"api-key-file"`
	CacheTTL          time.Duration `mapstructure:"cache-ttl"`
	UserAgent         string        `mapstructure:"user-agent"`
	ExcludedEmployers []string      `mapstructure:"excluded-employers"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type CallsConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	AccountSID    string        `mapstructure:"account-sid"`
	AuthToken     string        `mapstructure:"auth-token"`
	AuthTokenFile string        `mapstructure:"auth-token-file"`
	From          string        `mapstructure:"from"`
	PollInterval  time.Duration `mapstructure:"poll-interval"`
	MaxAttempts   int           `mapstructure:"max-attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry-backoff"`
	JobTimeout    time.Duration `mapstructure:"job-timeout"`
}

type JanitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "asha is a career-assistance chat backend: job search, mentorship and mock interview calls",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is asha.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8000")
	v.SetDefault("public-url", "http://localhost:8000")
	v.SetDefault("database", "asha.db")

	v.SetDefault("chat.call-timeout", "30s")
	v.SetDefault("chat.history-turns", 10)
	v.SetDefault("chat.session-ttl", "24h")

	v.SetDefault("booking.flag-ttl", "300s")
	v.SetDefault("booking.country-code", "+91")

	v.SetDefault("jobs.api-key", "")
	v.SetDefault("jobs.api-key-file", "")
	v.SetDefault("jobs.cache-ttl", "1h")

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 512)

	v.SetDefault("calls.enabled", true)
	v.SetDefault("calls.account-sid", "")
	v.SetDefault("calls.auth-token", "")
	v.SetDefault("calls.auth-token-file", "")
	v.SetDefault("calls.from", "")
	v.SetDefault("calls.poll-interval", "5s")
	v.SetDefault("calls.max-attempts", 3)
	v.SetDefault("calls.retry-backoff", "1m")
	v.SetDefault("calls.job-timeout", "2m")

	v.SetDefault("http.allowed-origins", []string{"*"})
	v.SetDefault("http.rate-per-minute", 60)
	v.SetDefault("http.rate-burst", 10)
	v.SetDefault("http.user-history-size", 100)

	v.SetDefault("janitor.interval", "10m")
}

// bindEnv maps keys such as ai.gemini.api-key to ASHA_AI_GEMINI_API_KEY.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("loading .env: %s", err)
	}

	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults and environment are enough to run without a file.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}
	if config.Chat == nil {
		config.Chat = &ChatConfig{}
	}
	if config.Booking == nil {
		config.Booking = &BookingConfig{}
	}
	if config.Jobs == nil {
		config.Jobs = &JobsConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Calls == nil {
		config.Calls = &CallsConfig{}
	}
	if config.Janitor == nil {
		config.Janitor = &JanitorConfig{}
	}
	return config, nil
}
