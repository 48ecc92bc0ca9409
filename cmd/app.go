package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/asha/internal/ai/gemini"
	"github.com/spigell/asha/internal/booking"
	"github.com/spigell/asha/internal/calls"
	"github.com/spigell/asha/internal/chat"
	"github.com/spigell/asha/internal/jobs"
	"github.com/spigell/asha/internal/jsearch"
	"github.com/spigell/asha/internal/logger"
	"github.com/spigell/asha/internal/mentorship"
	"github.com/spigell/asha/internal/secrets"
	"github.com/spigell/asha/internal/store"
	"go.uber.org/zap"
)

// application holds the collaborators shared by the serve and chat commands.
type application struct {
	store      *store.Store
	queue      *calls.Queue
	generator  *gemini.Generator
	jobs       *jobs.Service
	mentorship *mentorship.Service
	router     *chat.Router
}

func newApplication(ctx context.Context, config *Config, log *zap.Logger) (*application, error) {
	st, err := store.Open(config.Database)
	if err != nil {
		return nil, fmt.Errorf("opening the store: %w", err)
	}

	a := &application{
		store: st,
		queue: calls.NewQueue(st.DB()),
	}

	a.generator, err = newGenerator(ctx, config.AI, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	a.jobs, err = newJobService(config.Jobs, st, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	links, err := mentorship.DefaultLinks()
	if err != nil {
		st.Close()
		return nil, err
	}
	a.mentorship = mentorship.NewService(st, links, log.Named("mentorship"))

	machine := booking.New(st, st, a.queue, log.Named("booking"),
		booking.WithFlagTTL(config.Booking.FlagTTL),
		booking.WithCountryCode(config.Booking.CountryCode),
	)

	assistant := gemini.NewAssistant(a.generator,
		logger.WithFields(log.Named("assistant"), logger.ProviderFields("gemini", a.generator.Model())...),
		config.AI.Gemini.MaxLogLength,
	)

	a.router = chat.NewRouter(chat.Deps{
		Sessions:   st,
		Log:        st,
		Booking:    machine,
		Jobs:       a.jobs,
		Mentorship: a.mentorship,
		Assistant:  assistant,
	}, log.Named("chat"),
		chat.WithCallTimeout(config.Chat.CallTimeout),
		chat.WithHistoryTurns(config.Chat.HistoryTurns),
		chat.WithSessionTTL(config.Chat.SessionTTL),
	)

	return a, nil
}

func (a *application) Close() error {
	return a.store.Close()
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or ASHA_AI_GEMINI_API_KEY)", err)
	}

	genLogger := log.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
}

func newJobService(cfg *JobsConfig, st *store.Store, log *zap.Logger) (*jobs.Service, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "rapidapi key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "RAPIDAPI_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set jobs.api-key-file or ASHA_JOBS_API_KEY)", err)
	}

	jsLogger := logger.WithFields(log.Named("jsearch"), logger.ProviderFields("jsearch", "")...)
	client := jsearch.New(jsLogger, apiKey)
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}

	cached := jsearch.NewCachedSearcher(client, st, cfg.CacheTTL, jsLogger)
	return jobs.NewService(cached, cfg.ExcludedEmployers, log.Named("jobs")), nil
}

func newCallWorker(config *Config, a *application, log *zap.Logger) (*calls.Worker, error) {
	cfg := config.Calls

	token, err := secrets.Load(secrets.Source{
		Name:  "twilio auth token",
		File:  cfg.AuthTokenFile,
		Value: cfg.AuthToken,
		Env:   "TWILIO_AUTH_TOKEN",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set calls.auth-token-file or ASHA_CALLS_AUTH_TOKEN)", err)
	}
	if cfg.AccountSID == "" || cfg.From == "" {
		return nil, fmt.Errorf("calls.account-sid and calls.from are required when calls are enabled")
	}

	workerLogger := log.Named("calls")
	twilio := calls.NewTwilioClient(logger.WithFields(workerLogger, logger.ProviderFields("twilio", "")...), cfg.AccountSID, token, cfg.From)
	feedback := gemini.NewFeedbackWriter(a.generator, workerLogger)

	handlers := []calls.Handler{
		calls.NewInitiateCallHandler(a.store, twilio, config.PublicURL, cfg.MaxAttempts, workerLogger),
		calls.NewAnalyzeHandler(a.store, a.store, feedback, workerLogger),
	}

	return calls.NewWorker(a.queue, calls.WorkerConfig{
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxAttempts,
		RetryBackoff: cfg.RetryBackoff,
		JobTimeout:   cfg.JobTimeout,
	}, workerLogger, handlers...), nil
}
