package calls

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type funcHandler struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, job *Job) error
}

func (h *funcHandler) Name() string { return h.name }

func (h *funcHandler) Execute(ctx context.Context, job *Job) error {
	h.calls.Add(1)
	if h.fn == nil {
		return nil
	}
	return h.fn(ctx, job)
}

func TestWorkerRunOnceDispatchesByName(t *testing.T) {
	q, _, _ := setupQueue(t)
	ctx := context.Background()

	dial := &funcHandler{name: JobInitiateInterviewCall}
	analyze := &funcHandler{name: JobAnalyzeInterview}
	w := NewWorker(q, WorkerConfig{}, zap.NewNop(), dial, analyze)

	job, err := q.Enqueue(ctx, JobAnalyzeInterview, Args{"interview_id": 1}, time.Time{})
	require.NoError(t, err)

	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, int32(0), dial.calls.Load())
	require.Equal(t, int32(1), analyze.calls.Load())

	stored, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)

	processed, err = w.RunOnce(ctx)
	require.NoError(t, err)
	require.False(t, processed)
}

func TestWorkerRetriesWithBackoff(t *testing.T) {
	q, _, clock := setupQueue(t)
	ctx := context.Background()

	core, logs := observer.New(zapcore.DebugLevel)
	h := &funcHandler{name: JobInitiateInterviewCall, fn: func(context.Context, *Job) error {
		return errors.New("twilio down")
	}}
	w := NewWorker(q, WorkerConfig{MaxAttempts: 2, RetryBackoff: time.Minute}, zap.New(core), h)

	job, err := q.Enqueue(ctx, JobInitiateInterviewCall, Args{}, time.Time{})
	require.NoError(t, err)

	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	processed, err = w.RunOnce(ctx)
	require.NoError(t, err)
	require.False(t, processed, "retry waits for the backoff")

	clock.Advance(time.Minute)
	processed, err = w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, int32(2), h.calls.Load())

	stored, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, stored.Status)
	require.Equal(t, "twilio down", stored.LastError)

	require.Equal(t, 1, logs.FilterMessage("job failed, will retry").Len())
	require.Equal(t, 1, logs.FilterMessage("job failed permanently").Len())
}

func TestWorkerUnknownJobFailsImmediately(t *testing.T) {
	q, _, _ := setupQueue(t)
	ctx := context.Background()

	w := NewWorker(q, WorkerConfig{MaxAttempts: 5}, nil)
	job, err := q.Enqueue(ctx, "send_postcard", nil, time.Time{})
	require.NoError(t, err)

	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	stored, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, stored.Status)
}

func TestWorkerDuplicateHandlerPanics(t *testing.T) {
	q, _, _ := setupQueue(t)
	require.Panics(t, func() {
		NewWorker(q, WorkerConfig{}, nil, &funcHandler{name: "a"}, &funcHandler{name: "a"})
	})
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	q, _, _ := setupQueue(t)
	h := &funcHandler{name: JobAnalyzeInterview}
	w := NewWorker(q, WorkerConfig{PollInterval: 10 * time.Millisecond}, nil, h)

	_, err := q.Enqueue(context.Background(), JobAnalyzeInterview, Args{"interview_id": 3}, time.Time{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return h.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorkerShutdownMidJobRequeues(t *testing.T) {
	q, _, _ := setupQueue(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := &funcHandler{name: JobInitiateInterviewCall, fn: func(jobCtx context.Context, _ *Job) error {
		cancel()
		<-jobCtx.Done()
		return jobCtx.Err()
	}}
	w := NewWorker(q, WorkerConfig{MaxAttempts: 3}, nil, h)

	job, err := q.Enqueue(context.Background(), JobInitiateInterviewCall, Args{}, time.Time{})
	require.NoError(t, err)

	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	stored, err := q.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusQueued, stored.Status)
	require.Equal(t, 1, stored.Attempts)
}

func TestWorkerRecoversStaleRunningJob(t *testing.T) {
	q, _, clock := setupQueue(t)
	ctx := context.Background()

	core, logs := observer.New(zapcore.DebugLevel)
	h := &funcHandler{name: JobAnalyzeInterview}
	w := NewWorker(q, WorkerConfig{JobTimeout: time.Minute}, zap.New(core), h)

	job, err := q.Enqueue(ctx, JobAnalyzeInterview, Args{"interview_id": 4}, time.Time{})
	require.NoError(t, err)

	// A worker that died after claiming leaves the job running.
	claimed, err := q.Claim(ctx)
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	clock.Advance(30 * time.Second)
	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.False(t, processed, "a job within its timeout is left alone")

	clock.Advance(time.Minute)
	processed, err = w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, int32(1), h.calls.Load())

	stored, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)
	require.Equal(t, 2, stored.Attempts)
	require.Equal(t, 1, logs.FilterMessage("recovered stale jobs").Len())
}
