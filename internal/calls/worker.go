package calls

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// settleTimeout bounds the queue write that records a job outcome. It runs on
// a context detached from the worker so shutdown cannot strand a running job.
const settleTimeout = 10 * time.Second

// Handler executes one kind of job.
type Handler interface {
	Name() string
	Execute(ctx context.Context, job *Job) error
}

// WorkerConfig tunes polling and retries.
type WorkerConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	JobTimeout   time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Minute
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 2 * time.Minute
	}
	return c
}

// Worker polls the queue and dispatches due jobs to handlers by name.
type Worker struct {
	queue    *Queue
	handlers map[string]Handler
	cfg      WorkerConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewWorker builds a worker. Registering two handlers with the same name panics.
func NewWorker(queue *Queue, cfg WorkerConfig, logger *zap.Logger, handlers ...Handler) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Worker{
		queue:    queue,
		handlers: make(map[string]Handler, len(handlers)),
		cfg:      cfg.withDefaults(),
		logger:   logger.With(zap.String("component", "call-worker")),
		now:      queue.now,
	}
	for _, h := range handlers {
		if _, exists := w.handlers[h.Name()]; exists {
			panic(fmt.Sprintf("handler already registered for name: %s", h.Name()))
		}
		w.handlers[h.Name()] = h
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("call worker started", zap.Duration("poll_interval", w.cfg.PollInterval))

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// Drain everything that is due before sleeping again.
		for {
			processed, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Error("poll call queue", zap.Error(err))
				break
			}
			if !processed {
				break
			}
		}

		select {
		case <-ctx.Done():
			w.logger.Info("call worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce claims and executes at most one due job. It reports whether a job was processed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	// A job still running after its timeout plus the settle window belongs to
	// a worker that died before recording the outcome.
	cutoff := w.now().Add(-(w.cfg.JobTimeout + settleTimeout))
	if n, err := w.queue.RequeueStale(ctx, cutoff, w.cfg.MaxAttempts); err != nil {
		return false, err
	} else if n > 0 {
		w.logger.Warn("recovered stale jobs", zap.Int64("count", n))
	}

	job, err := w.queue.Claim(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	log := w.logger.With(
		zap.String("job_id", job.ID),
		zap.String("job", job.Name),
		zap.Int("attempt", job.Attempts),
	)

	settleCtx, settle := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer settle()

	handler, ok := w.handlers[job.Name]
	if !ok {
		log.Error("no handler registered for job")
		job.Attempts = w.cfg.MaxAttempts
		return true, w.queue.Fail(settleCtx, job, fmt.Errorf("no handler registered for %s", job.Name), w.now(), w.cfg.MaxAttempts)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	execErr := handler.Execute(jobCtx, job)
	cancel()

	if execErr == nil {
		log.Info("job completed")
		return true, w.queue.Complete(settleCtx, job.ID)
	}

	retryAt := w.now().Add(w.cfg.RetryBackoff)
	if err := w.queue.Fail(settleCtx, job, execErr, retryAt, w.cfg.MaxAttempts); err != nil {
		return true, err
	}

	if job.Status == StatusFailed {
		log.Error("job failed permanently", zap.Error(execErr))
	} else {
		log.Warn("job failed, will retry", zap.Error(execErr), zap.Time("retry_at", retryAt))
	}
	return true, nil
}
