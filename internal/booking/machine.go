package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/asha/internal/calls"
	"github.com/spigell/asha/internal/extract"
	"github.com/spigell/asha/internal/intent"
	"github.com/spigell/asha/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultFlagTTL     = 300 * time.Second
	DefaultCountryCode = "+91"

	flagValue = "awaiting_details"
)

// FlagStore keeps the per-user booking flag.
type FlagStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// InterviewStore records booked interviews.
type InterviewStore interface {
	CreateInterview(ctx context.Context, in *store.Interview) (int64, error)
	SetInterviewStatus(ctx context.Context, id int64, status string) error
}

// Enqueuer schedules the outbound call.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, args calls.Args, eta time.Time) (*calls.Job, error)
}

// Outcome describes what Handle did.
type Outcome struct {
	Reply       string
	Transition  Transition
	InterviewID int64
	ScheduledAt time.Time
	// Err holds a persistence failure that was turned into an apology reply.
	Err error
}

// Machine applies transitions against the flag store, the interview store and the call queue.
type Machine struct {
	flags       FlagStore
	interviews  InterviewStore
	queue       Enqueuer
	logger      *zap.Logger
	now         func() time.Time
	flagTTL     time.Duration
	countryCode string
}

// Option configures a Machine.
type Option func(*Machine)

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

func WithFlagTTL(ttl time.Duration) Option {
	return func(m *Machine) {
		if ttl > 0 {
			m.flagTTL = ttl
		}
	}
}

func WithCountryCode(code string) Option {
	return func(m *Machine) {
		if code != "" {
			m.countryCode = code
		}
	}
}

func New(flags FlagStore, interviews InterviewStore, queue Enqueuer, logger *zap.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		flags:       flags,
		interviews:  interviews,
		queue:       queue,
		logger:      logger,
		now:         time.Now,
		flagTTL:     DefaultFlagTTL,
		countryCode: DefaultCountryCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func flagKey(userID string) string {
	return "booking:" + userID
}

// State reads the stored state of userID. A flag lookup failure reads as NoBooking.
func (m *Machine) State(ctx context.Context, userID string) State {
	value, ok, err := m.flags.Get(ctx, flagKey(userID))
	if err != nil {
		m.logger.Warn("read booking flag", zap.String("user_id", userID), zap.Error(err))
		return NoBooking
	}
	if ok && value == flagValue {
		return AwaitingDetails
	}
	return NoBooking
}

// Active reports whether userID is in the middle of a booking.
func (m *Machine) Active(ctx context.Context, userID string) bool {
	return m.State(ctx, userID) == AwaitingDetails
}

// Handle runs one booking turn for text. It never returns an error: failures
// to persist the booking become an apology reply and are reported in Outcome.Err.
func (m *Machine) Handle(ctx context.Context, userID string, detected intent.Intent, text string) Outcome {
	now := m.now()
	current := m.State(ctx, userID)
	ev := Event{Intent: detected, Schedule: extract.FromText(text, now)}
	t := Next(current, ev)

	log := m.logger.With(
		zap.String("user_id", userID),
		zap.Stringer("from", t.From),
		zap.Stringer("to", t.To),
		zap.Stringer("action", t.Action),
	)
	log.Debug("booking transition")

	out := Outcome{Transition: t}

	switch t.Action {
	case RequestDetails:
		m.raiseFlag(ctx, log, userID)
		out.Reply = askDetailsReply
	case Rerequest:
		m.raiseFlag(ctx, log, userID)
		out.Reply = rerequestReply
	case RequestMissing:
		m.raiseFlag(ctx, log, userID)
		out.Reply = missingReply(t.Missing)
	case Complete:
		out = m.complete(ctx, log, userID, ev.Schedule, t)
	}

	return out
}

func (m *Machine) raiseFlag(ctx context.Context, log *zap.Logger, userID string) {
	if err := m.flags.Set(ctx, flagKey(userID), flagValue, m.flagTTL); err != nil {
		log.Warn("set booking flag", zap.Error(err))
	}
}

func (m *Machine) complete(ctx context.Context, log *zap.Logger, userID string, s extract.Schedule, t Transition) Outcome {
	out := Outcome{Transition: t, ScheduledAt: s.Time}

	if err := m.flags.Delete(ctx, flagKey(userID)); err != nil {
		log.Warn("clear booking flag", zap.Error(err))
	}

	in := &store.Interview{
		UserID:        userID,
		PhoneNumber:   s.Phone,
		ScheduledTime: s.Time,
		Status:        store.InterviewScheduled,
	}
	id, err := m.interviews.CreateInterview(ctx, in)
	if err != nil {
		log.Error("create interview record", zap.Error(err))
		out.Err = fmt.Errorf("create interview: %w", err)
		out.Reply = failureReply
		return out
	}
	out.InterviewID = id

	args := calls.Args{
		"phone":        m.countryCode + s.Phone,
		"interview_id": id,
	}
	job, err := m.queue.Enqueue(ctx, calls.JobInitiateInterviewCall, args, s.Time)
	if err != nil {
		log.Error("enqueue interview call", zap.Int64("interview_id", id), zap.Error(err))
		if serr := m.interviews.SetInterviewStatus(ctx, id, store.InterviewFailed); serr != nil {
			log.Error("mark interview failed", zap.Int64("interview_id", id), zap.Error(serr))
		}
		out.Err = fmt.Errorf("enqueue call: %w", err)
		out.Reply = failureReply
		return out
	}

	log.Info("interview booked",
		zap.Int64("interview_id", id),
		zap.String("job_id", job.ID),
		zap.Time("scheduled_at", s.Time),
	)
	out.Reply = confirmationReply(s.Time, m.countryCode+s.Phone)
	return out
}

const (
	askDetailsReply = "I'd be happy to set up a mock interview call for you! 📞 " +
		"Please share your 10-digit phone number and a preferred time, for example: 9876543210 at 3:30 PM"
	rerequestReply = "I still need your phone number and a preferred time to book the call. " +
		"Please send them together like this: 9876543210 at 3:30 PM"
	failureReply = "Sorry, I couldn't schedule your interview right now. Please try again in a few minutes."
)

var fieldExamples = map[Field]string{
	FieldPhone: "9876543210",
	FieldTime:  "at 3:30 PM",
}

func missingReply(missing []Field) string {
	names := make([]string, 0, len(missing))
	examples := make([]string, 0, len(missing))
	for _, f := range missing {
		names = append(names, string(f))
		examples = append(examples, fieldExamples[f])
	}
	return fmt.Sprintf("Almost there! I still need your %s. Please share it, for example: %s",
		strings.Join(names, " and "), strings.Join(examples, " "))
}

func confirmationReply(at time.Time, phone string) string {
	return fmt.Sprintf("✅ Your mock interview is scheduled for %s. We'll call you on %s.",
		at.Format("Monday, 02 Jan at 03:04 PM"), phone)
}
