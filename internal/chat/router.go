// Package chat routes user messages to the booking dialogue, job search,
// mentorship or the generative assistant and keeps the conversation log.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spigell/asha/internal/ai"
	"github.com/spigell/asha/internal/booking"
	"github.com/spigell/asha/internal/intent"
	"github.com/spigell/asha/internal/jobs"
	"github.com/spigell/asha/internal/logger"
	"github.com/spigell/asha/internal/mentorship"
	"github.com/spigell/asha/internal/store"
	"github.com/spigell/asha/internal/utils"
	"go.uber.org/zap"
)

const (
	AnonymousUser       = "anonymous"
	DefaultCallTimeout  = 30 * time.Second
	DefaultHistoryTurns = 10
	DefaultSessionTTL   = 24 * time.Hour

	jobsApology       = "⚠️ Sorry, I couldn't fetch jobs right now. Please try again later."
	mentorshipApology = "❌ Sorry, we couldn't connect you to a mentor at the moment."
	assistantApology  = "Something went wrong while getting a response. Please try again."

	logTextLimit = 200
)

var ErrEmptyMessage = errors.New("message text is empty")

type Booker interface {
	Active(ctx context.Context, userID string) bool
	Handle(ctx context.Context, userID string, detected intent.Intent, text string) booking.Outcome
}

type JobSearcher interface {
	Search(ctx context.Context, q jobs.Query) (*jobs.Result, error)
}

type MentorshipRecorder interface {
	Record(ctx context.Context, userID, field string) (*mentorship.Confirmation, error)
}

// ConversationLog stores chat turns.
type ConversationLog interface {
	AppendMessage(ctx context.Context, entry *store.ConversationEntry) error
	RecentSessionMessages(ctx context.Context, sessionID string, limit int) ([]*store.ConversationEntry, error)
}

// Reply is the answer to one user message.
type Reply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Intent    string `json:"intent"`
	Action    string `json:"action,omitempty"`
}

// Deps holds the collaborators of a Router.
type Deps struct {
	Sessions   KV
	Log        ConversationLog
	Booking    Booker
	Jobs       JobSearcher
	Mentorship MentorshipRecorder
	Assistant  ai.Assistant
}

type Router struct {
	deps         Deps
	logger       *zap.Logger
	callTimeout  time.Duration
	historyTurns int
	sessions     sessions
}

type Option func(*Router)

// WithCallTimeout bounds every collaborator call made while answering a message.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithHistoryTurns sets how many past turns are sent to the assistant.
func WithHistoryTurns(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.historyTurns = n
		}
	}
}

// WithSessionTTL sets the idle lifetime of a session. Zero keeps sessions forever.
func WithSessionTTL(ttl time.Duration) Option {
	return func(r *Router) {
		if ttl >= 0 {
			r.sessions.ttl = ttl
		}
	}
}

func NewRouter(deps Deps, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		deps:         deps,
		logger:       logger,
		callTimeout:  DefaultCallTimeout,
		historyTurns: DefaultHistoryTurns,
		sessions:     sessions{kv: deps.Sessions, ttl: DefaultSessionTTL},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle answers one message of userID. It fails only on empty text or when the
// session cannot be resolved; collaborator failures become apology replies.
func (r *Router) Handle(ctx context.Context, userID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = AnonymousUser
	}

	session, err := r.sessions.resolve(ctx, userID, text)
	if err != nil {
		return nil, err
	}

	detected := intent.Classify(text)
	log := logger.WithChatFields(r.logger, userID, session.ID, detected.String())
	log.Debug("message received",
		zap.Bool("new_session", session.New),
		zap.String("text", utils.TruncateForLog(text, logTextLimit)),
	)

	reply := &Reply{SessionID: session.ID, Title: session.Title, Intent: detected.String()}

	if r.deps.Booking != nil && r.book(ctx, log, userID, detected, text, reply) {
		r.record(ctx, log, userID, reply, text)
		return reply, nil
	}

	r.dispatch(ctx, log, userID, detected, text, reply)
	r.record(ctx, log, userID, reply, text)
	return reply, nil
}

// book offers the turn to the booking flow and reports whether it was taken.
func (r *Router) book(ctx context.Context, log *zap.Logger, userID string, detected intent.Intent, text string, reply *Reply) bool {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	if detected != intent.InterviewBooking && !r.deps.Booking.Active(callCtx, userID) {
		return false
	}

	outcome := r.deps.Booking.Handle(callCtx, userID, detected, text)
	if outcome.Transition.Action == booking.Ignore {
		return false
	}
	if outcome.Err != nil {
		log.Error("booking failed", zap.Error(outcome.Err))
	}
	reply.Intent = intent.InterviewBooking.String()
	reply.Response = outcome.Reply
	return true
}

func (r *Router) dispatch(ctx context.Context, log *zap.Logger, userID string, detected intent.Intent, text string, reply *Reply) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	switch detected {
	case intent.JobSearch:
		q := jobQuery(text)
		res, err := r.deps.Jobs.Search(callCtx, q)
		if err != nil {
			log.Error("job search failed", zap.String("title", q.Title), zap.String("location", q.Location), zap.Error(err))
			reply.Response = jobsApology
			return
		}
		reply.Response = res.Text

	case intent.Mentorship:
		field := mentorshipField(text)
		conf, err := r.deps.Mentorship.Record(callCtx, userID, field)
		if err != nil {
			log.Error("mentorship request failed", zap.String("field", field), zap.Error(err))
			reply.Response = mentorshipApology
			return
		}
		reply.Response = conf.Text

	default:
		history, err := r.history(callCtx, reply.SessionID)
		if err != nil {
			log.Warn("history unavailable, answering without it", zap.Error(err))
		}

		answer, err := r.deps.Assistant.Complete(callCtx, text, history)
		if err != nil {
			log.Error("assistant failed", zap.Error(err))
			reply.Response = assistantApology
			return
		}
		reply.Response = answer.Text
		reply.Action = answer.Action
	}
}

// history returns the last turns of a session as assistant context, oldest first.
func (r *Router) history(ctx context.Context, sessionID string) ([]ai.Turn, error) {
	entries, err := r.deps.Log.RecentSessionMessages(ctx, sessionID, r.historyTurns*2)
	if err != nil {
		return nil, err
	}

	turns := make([]ai.Turn, 0, len(entries))
	for _, e := range entries {
		role := ai.RoleUser
		if e.Role == store.RoleBot {
			role = ai.RoleBot
		}
		turns = append(turns, ai.Turn{Role: role, Text: e.Message})
	}
	return turns, nil
}

// record appends the user message and the reply to the conversation log.
func (r *Router) record(ctx context.Context, log *zap.Logger, userID string, reply *Reply, text string) {
	entries := []*store.ConversationEntry{
		{SessionID: reply.SessionID, UserID: userID, Role: store.RoleUser, Message: text, Intent: reply.Intent},
		{SessionID: reply.SessionID, UserID: userID, Role: store.RoleBot, Message: reply.Response, Intent: reply.Intent},
	}
	for _, e := range entries {
		if err := r.deps.Log.AppendMessage(ctx, e); err != nil {
			log.Error("conversation log write failed", zap.String("role", e.Role), zap.Error(err))
		}
	}
}
