package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/asha/internal/ai"
	"github.com/spigell/asha/internal/booking"
	"github.com/spigell/asha/internal/calls"
	"github.com/spigell/asha/internal/intent"
	"github.com/spigell/asha/internal/jobs"
	"github.com/spigell/asha/internal/mentorship"
	"github.com/spigell/asha/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type fakeJobs struct {
	queries []jobs.Query
	err     error
}

func (f *fakeJobs) Search(_ context.Context, q jobs.Query) (*jobs.Result, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return &jobs.Result{Query: q, Text: "jobs for " + q.Title + " in " + q.Location}, nil
}

type fakeMentors struct {
	fields []string
	err    error
}

func (f *fakeMentors) Record(_ context.Context, userID, field string) (*mentorship.Confirmation, error) {
	f.fields = append(f.fields, field)
	if f.err != nil {
		return nil, f.err
	}
	return &mentorship.Confirmation{Field: field, Text: "mentors in " + field}, nil
}

type fakeAssistant struct {
	mu       sync.Mutex
	prompts  []string
	history  [][]ai.Turn
	reply    *ai.Reply
	err      error
	blocking bool
}

func (f *fakeAssistant) Complete(ctx context.Context, prompt string, history []ai.Turn) (*ai.Reply, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.history = append(f.history, history)
	f.mu.Unlock()

	if f.blocking {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reply != nil {
		return f.reply, nil
	}
	return &ai.Reply{Text: "echo: " + prompt}, nil
}

// failingLog drops every write.
type failingLog struct {
	*store.Store
}

func (failingLog) AppendMessage(context.Context, *store.ConversationEntry) error {
	return errors.New("disk full")
}

type harness struct {
	now       time.Time
	store     *store.Store
	queue     *calls.Queue
	jobs      *fakeJobs
	mentors   *fakeMentors
	assistant *fakeAssistant
	logs      *observer.ObservedLogs
	router    *Router
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		now:       time.Date(2026, time.October, 19, 10, 0, 0, 0, ist),
		jobs:      &fakeJobs{},
		mentors:   &fakeMentors{},
		assistant: &fakeAssistant{},
	}
	clock := func() time.Time { return h.now }

	st, err := store.Open(filepath.Join(t.TempDir(), "asha.db"), store.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	h.store = st
	h.queue = calls.NewQueue(st.DB(), calls.WithQueueClock(clock))

	core, logs := observer.New(zap.DebugLevel)
	h.logs = logs
	log := zap.New(core)

	h.router = NewRouter(h.deps(st), log, opts...)
	return h
}

func (h *harness) deps(log ConversationLog) Deps {
	clock := func() time.Time { return h.now }
	return Deps{
		Sessions:   h.store,
		Log:        log,
		Booking:    booking.New(h.store, h.store, h.queue, nil, booking.WithClock(clock)),
		Jobs:       h.jobs,
		Mentorship: h.mentors,
		Assistant:  h.assistant,
	}
}

func (h *harness) send(t *testing.T, userID, text string) *Reply {
	t.Helper()
	reply, err := h.router.Handle(context.Background(), userID, text)
	require.NoError(t, err)
	return reply
}

func TestRouterRejectsEmptyMessage(t *testing.T) {
	h := newHarness(t)

	_, err := h.router.Handle(context.Background(), "u1", "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, ok, err := h.store.Get(context.Background(), sessionKey("u1"))
	require.NoError(t, err)
	require.False(t, ok, "no session should be created for an empty message")
}

func TestRouterBookingFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.send(t, "u1", "I want to schedule a mock interview")
	require.Equal(t, intent.InterviewBooking.String(), first.Intent)
	require.Contains(t, first.Response, "phone number")
	require.Contains(t, first.Response, "preferred time")

	second := h.send(t, "u1", "9876543210 at 3:30 PM")
	require.Equal(t, intent.InterviewBooking.String(), second.Intent)
	require.Equal(t, first.SessionID, second.SessionID)
	require.Contains(t, second.Response, "Monday, 19 Oct at 03:30 PM")
	require.Contains(t, second.Response, "+919876543210")

	queued, err := h.queue.List(ctx, calls.StatusQueued, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	require.Equal(t, calls.JobInitiateInterviewCall, queued[0].Name)
	require.True(t, queued[0].ETA.Equal(time.Date(2026, time.October, 19, 15, 30, 0, 0, ist)))
	require.Equal(t, "+919876543210", queued[0].Args.String("phone"))

	id, err := queued[0].Args.Int64("interview_id")
	require.NoError(t, err)
	rec, err := h.store.GetInterview(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "u1", rec.UserID)
	require.Equal(t, store.InterviewScheduled, rec.Status)

	entries, err := h.store.SessionMessages(ctx, first.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	require.Equal(t, store.RoleUser, entries[2].Role)
	require.Equal(t, "9876543210 at 3:30 PM", entries[2].Message)
	require.Equal(t, intent.InterviewBooking.String(), entries[3].Intent)

	require.Empty(t, h.assistant.prompts, "booking messages must not reach the assistant")
}

func TestRouterBookingPartialInformation(t *testing.T) {
	h := newHarness(t)

	h.send(t, "u1", "Can I book a practice call?")
	reply := h.send(t, "u1", "9876543210")

	require.Contains(t, reply.Response, "preferred time")
	require.NotContains(t, reply.Response, "phone number")

	// the flag keeps routing follow-ups to the booking dialogue
	third := h.send(t, "u1", "tomorrow maybe")
	require.Equal(t, intent.InterviewBooking.String(), third.Intent)
	require.Empty(t, h.assistant.prompts)
}

func TestRouterJobSearch(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "u1", "Show me jobs for data analyst in Pune")
	require.Equal(t, intent.JobSearch.String(), reply.Intent)
	require.Equal(t, "jobs for data analyst in Pune", reply.Response)
	require.Len(t, h.jobs.queries, 1)
	require.Equal(t, "data analyst", h.jobs.queries[0].Title)
	require.Equal(t, "Pune", h.jobs.queries[0].Location)
}

func TestRouterJobSearchFailureApologizes(t *testing.T) {
	h := newHarness(t)
	h.jobs.err = errors.New("provider down")

	reply := h.send(t, "u1", "any openings?")
	require.Equal(t, jobsApology, reply.Response)
	require.Equal(t, 1, h.logs.FilterMessage("job search failed").Len())

	entries, err := h.store.SessionMessages(context.Background(), reply.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRouterMentorship(t *testing.T) {
	h := newHarness(t)

	reply := h.send(t, "u1", "I need a mentor in data science")
	require.Equal(t, intent.Mentorship.String(), reply.Intent)
	require.Equal(t, "mentors in data science", reply.Response)

	h.mentors.err = errors.New("db locked")
	reply = h.send(t, "u1", "find me a mentor")
	require.Equal(t, mentorshipApology, reply.Response)
	require.Equal(t, []string{"data science", mentorship.DefaultField}, h.mentors.fields)
}

func TestRouterAssistantReceivesHistory(t *testing.T) {
	h := newHarness(t)
	h.assistant.reply = &ai.Reply{Text: "Here is a form", Action: "resume_form"}

	first := h.send(t, "u1", "hello there")
	require.Equal(t, intent.GeneralQuery.String(), first.Intent)
	require.Equal(t, "resume_form", first.Action)

	h.send(t, "u1", "who are you?")

	require.Len(t, h.assistant.history, 2)
	require.Empty(t, h.assistant.history[0])
	require.Equal(t, []ai.Turn{
		{Role: ai.RoleUser, Text: "hello there"},
		{Role: ai.RoleBot, Text: "Here is a form"},
	}, h.assistant.history[1])
}

func TestRouterHistoryIsBounded(t *testing.T) {
	h := newHarness(t, WithHistoryTurns(2))

	for i := 0; i < 4; i++ {
		h.send(t, "u1", "tell me something")
	}

	last := h.assistant.history[len(h.assistant.history)-1]
	require.Len(t, last, 4)
	require.Equal(t, ai.RoleUser, last[0].Role)
}

func TestRouterAssistantFailureStillLogsBothTurns(t *testing.T) {
	h := newHarness(t)
	h.assistant.err = errors.New("quota exhausted")

	reply := h.send(t, "u1", "what should I learn next?")
	require.Equal(t, assistantApology, reply.Response)
	require.Equal(t, 1, h.logs.FilterMessage("assistant failed").Len())

	entries, err := h.store.SessionMessages(context.Background(), reply.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, store.RoleUser, entries[0].Role)
	require.Equal(t, store.RoleBot, entries[1].Role)
	require.Equal(t, assistantApology, entries[1].Message)
}

func TestRouterCallTimeout(t *testing.T) {
	h := newHarness(t, WithCallTimeout(20*time.Millisecond))
	h.assistant.blocking = true

	start := time.Now()
	reply := h.send(t, "u1", "are you there?")
	require.Equal(t, assistantApology, reply.Response)
	require.Less(t, time.Since(start), 5*time.Second)
}

// stallingBooker waits for the caller to give up on every call.
type stallingBooker struct {
	deadlines int
}

func (b *stallingBooker) wait(ctx context.Context) {
	if _, ok := ctx.Deadline(); ok {
		b.deadlines++
	}
	<-ctx.Done()
}

func (b *stallingBooker) Active(ctx context.Context, _ string) bool {
	b.wait(ctx)
	return false
}

func (b *stallingBooker) Handle(ctx context.Context, _ string, _ intent.Intent, _ string) booking.Outcome {
	b.wait(ctx)
	return booking.Outcome{
		Transition: booking.Transition{Action: booking.RequestDetails},
		Reply:      "booking unavailable",
		Err:        ctx.Err(),
	}
}

func TestRouterCallTimeoutBoundsBooking(t *testing.T) {
	h := newHarness(t)
	booker := &stallingBooker{}
	deps := h.deps(h.store)
	deps.Booking = booker
	h.router = NewRouter(deps, zap.NewNop(), WithCallTimeout(20*time.Millisecond))

	start := time.Now()
	reply := h.send(t, "u1", "hello")
	require.Equal(t, "echo: hello", reply.Response)

	reply = h.send(t, "u1", "I want to schedule a mock interview")
	require.Equal(t, intent.InterviewBooking.String(), reply.Intent)
	require.Equal(t, "booking unavailable", reply.Response)

	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, 2, booker.deadlines)
}

func TestRouterLogFailureDoesNotFailTurn(t *testing.T) {
	h := newHarness(t)
	core, logs := observer.New(zap.ErrorLevel)
	h.router = NewRouter(h.deps(failingLog{h.store}), zap.New(core))

	reply := h.send(t, "u1", "hello")
	require.Equal(t, "echo: hello", reply.Response)
	require.Equal(t, 2, logs.FilterMessage("conversation log write failed").Len())
}

func TestRouterSessions(t *testing.T) {
	h := newHarness(t)

	first := h.send(t, "u1", "  Hello Asha, I am looking for some career advice today please  ")
	second := h.send(t, "u1", "thanks")
	other := h.send(t, "u2", "hi")
	anon := h.send(t, "", "hi")

	require.NotEmpty(t, first.SessionID)
	require.Equal(t, first.SessionID, second.SessionID)
	require.NotEqual(t, first.SessionID, other.SessionID)
	require.NotEqual(t, first.SessionID, anon.SessionID)

	require.Equal(t, "Hello Asha, I am looking for some career advice to", first.Title)
	require.Equal(t, first.Title, second.Title)
	require.Equal(t, "hi", other.Title)

	id, ok, err := h.store.Get(context.Background(), sessionKey(AnonymousUser))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, anon.SessionID, id)
}

func TestRouterSessionExpires(t *testing.T) {
	h := newHarness(t, WithSessionTTL(time.Hour))

	first := h.send(t, "u1", "hello")
	h.now = h.now.Add(2 * time.Hour)
	second := h.send(t, "u1", "hello again")

	require.NotEqual(t, first.SessionID, second.SessionID)
	require.True(t, strings.HasPrefix(second.Title, "hello again"))
}

func TestRouterSessionIdleTimeoutSlides(t *testing.T) {
	h := newHarness(t, WithSessionTTL(time.Hour))

	first := h.send(t, "u1", "hello")
	h.now = h.now.Add(45 * time.Minute)
	second := h.send(t, "u1", "still here")
	h.now = h.now.Add(45 * time.Minute)
	third := h.send(t, "u1", "and now")

	require.Equal(t, first.SessionID, second.SessionID)
	require.Equal(t, first.SessionID, third.SessionID)
}
