package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/asha/internal/logger"
	"github.com/spigell/asha/internal/server"
	"github.com/spigell/asha/internal/store"
	"github.com/spigell/asha/internal/utils"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat API and the interview call worker",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default is :8000)")
	serveCmd.Flags().Bool("no-calls", false, "do not run the interview call worker")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("no-calls", serveCmd.Flags().Lookup("no-calls"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting asha", zap.String("version", version))

	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	a, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the application", zap.Error(err))
	}
	defer a.Close()

	var wg sync.WaitGroup

	if config.Calls.Enabled && !viper.GetBool("no-calls") {
		worker, err := newCallWorker(config, a, logger)
		if err != nil {
			logger.Fatal("building the call worker", zap.Error(err),
				zap.String("hint", "configure the calls section or run with --no-calls"))
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("call worker stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("interview call worker is disabled, booked calls stay queued")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		purgeExpired(ctx, a.store, config.Janitor.Interval, logger.Named("janitor"))
	}()

	srv := server.New(server.Deps{
		Chat:       a.router,
		Jobs:       a.jobs,
		Mentorship: a.mentorship,
		Store:      a.store,
		Queue:      a.queue,
	}, config.HTTP, logger.Named("http"))

	if err := srv.Run(ctx, config.Listen); err != nil {
		logger.Error("http server failed", zap.Error(err))
		stop()
	}

	wg.Wait()
	logger.Info("asha stopped")
}

// purgeExpired drops expired sessions, flags and cache entries until ctx is done.
func purgeExpired(ctx context.Context, st *store.Store, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	for {
		if err := utils.WaitFor(ctx, interval); err != nil {
			return
		}
		n, err := st.PurgeExpired(ctx)
		if err != nil {
			logger.Warn("purging expired entries", zap.Error(err))
			continue
		}
		if n > 0 {
			logger.Debug("expired entries purged", zap.Int64("count", n))
		}
	}
}

// redacted returns a copy of config safe for logging.
func redacted(config *Config) Config {
	c := *config
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}

	jobs := *c.Jobs
	jobs.APIKey = mask(jobs.APIKey)
	c.Jobs = &jobs

	gem := *c.AI.Gemini
	gem.APIKey = mask(gem.APIKey)
	c.AI = &AIConfig{Provider: c.AI.Provider, Gemini: &gem}

	callsCfg := *c.Calls
	callsCfg.AuthToken = mask(callsCfg.AuthToken)
	c.Calls = &callsCfg

	return c
}
