// Package server exposes the chat router, job search, mentorship, user and
// interview-call endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spigell/asha/internal/calls"
	"github.com/spigell/asha/internal/chat"
	"github.com/spigell/asha/internal/jobs"
	"github.com/spigell/asha/internal/mentorship"
	"github.com/spigell/asha/internal/store"
	"go.uber.org/zap"
)

const (
	maxBodySize     = 1 << 20
	shutdownTimeout = 10 * time.Second
)

type Router interface {
	Handle(ctx context.Context, userID, text string) (*chat.Reply, error)
}

type JobSearcher interface {
	Search(ctx context.Context, q jobs.Query) (*jobs.Result, error)
}

type MentorshipRecorder interface {
	Record(ctx context.Context, userID, field string) (*mentorship.Confirmation, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, name string, args calls.Args, eta time.Time) (*calls.Job, error)
}

// Store is the persistence the API reads from.
type Store interface {
	calls.KV
	Ping(ctx context.Context) error
	SessionMessages(ctx context.Context, sessionID string) ([]*store.ConversationEntry, error)
	UserMessages(ctx context.Context, userID string, limit int) ([]*store.ConversationEntry, error)
	CreateUser(ctx context.Context, name, email string) (*store.UserProfile, error)
	UserByEmail(ctx context.Context, email string) (*store.UserProfile, error)
	UserByID(ctx context.Context, userID string) (*store.UserProfile, error)
	Dashboard(ctx context.Context, userID string) (*store.Dashboard, error)
	GetInterview(ctx context.Context, id int64) (*store.Interview, error)
	SetInterviewStatus(ctx context.Context, id int64, status string) error
	CompleteInterview(ctx context.Context, id int64, recordingURL string) error
}

type Deps struct {
	Chat       Router
	Jobs       JobSearcher
	Mentorship MentorshipRecorder
	Store      Store
	Queue      Enqueuer
}

type Config struct {
	AllowedOrigins  []string `mapstructure:"allowed-origins"`
	RatePerMinute   int      `mapstructure:"rate-per-minute"` // zero disables the limit
	RateBurst       int      `mapstructure:"rate-burst"`
	UserHistorySize int      `mapstructure:"user-history-size"`
}

type Server struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

func New(deps Deps, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.UserHistorySize <= 0 {
		cfg.UserHistorySize = 100
	}
	return &Server{deps: deps, cfg: cfg, logger: logger}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.cfg.AllowedOrigins))

	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		if s.cfg.RatePerMinute > 0 {
			r.Use(newClientLimiter(s.cfg.RatePerMinute, s.cfg.RateBurst).middleware)
		}
		r.Post("/chat/", s.postChat)
		r.Post("/job_search/", s.postJobSearch)
	})

	r.Get("/chat/session/{sessionID}", s.sessionHistory)
	r.Get("/chat/user/{userID}", s.userHistory)
	r.Post("/connect_mentorship/", s.postMentorship)

	r.Post("/auth/signup_user", s.signup)
	r.Post("/auth/login_user", s.login)
	r.Get("/user/{userID}", s.user)
	r.Get("/dashboard/{userID}", s.dashboard)

	r.Get("/interviews/{id}", s.interview)
	r.Route("/interview", func(r chi.Router) {
		r.Post("/start/{id}", s.interviewStart)
		r.Post("/respond/{id}", s.interviewRespond)
		r.Post("/status/{id}", s.interviewStatus)
	})

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
