package calls

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/oklog/ulid/v2"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

// Queue persists jobs in the call_jobs table.
type Queue struct {
	db  *sql.DB
	now func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueClock overrides the clock used for ETAs and timestamps.
func WithQueueClock(now func() time.Time) QueueOption {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// NewQueue wraps a database that already carries the call_jobs schema.
func NewQueue(db *sql.DB, opts ...QueueOption) *Queue {
	q := &Queue{
		db:      db,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) newID(at time.Time) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(at), q.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Enqueue stores a job that becomes due at eta. A zero eta means now.
func (q *Queue) Enqueue(ctx context.Context, name string, args Args, eta time.Time) (*Job, error) {
	if name == "" {
		return nil, errors.New("job name is required")
	}

	now := q.now()
	if eta.IsZero() {
		eta = now
	}
	if args == nil {
		args = Args{}
	}

	id, err := q.newID(now)
	if err != nil {
		return nil, errors.Wrap(err, "generate job id")
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Wrap(err, "encode job args")
	}

	job := &Job{
		ID:        id,
		Name:      name,
		Args:      args,
		ETA:       eta,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO call_jobs (id, name, args, eta, status, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, '', ?, ?)`,
		job.ID, job.Name, string(payload), eta.UnixMilli(), string(StatusQueued), now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		err = errors.Wrap(err, "enqueue job")
		err = errors.WithDetail(err, fmt.Sprintf("Job ID: %s", job.ID))
		err = errors.WithDetail(err, fmt.Sprintf("Name: %s", job.Name))
		return nil, err
	}

	return job, nil
}

// Claim marks the oldest due job as running and returns it. It returns
// (nil, nil) when nothing is due. The status check in the UPDATE keeps two
// workers from claiming the same job.
func (q *Queue) Claim(ctx context.Context) (*Job, error) {
	for {
		now := q.now()

		var id string
		err := q.db.QueryRowContext(ctx, `
			SELECT id FROM call_jobs
			WHERE status = ? AND eta <= ?
			ORDER BY eta ASC, id ASC LIMIT 1`,
			string(StatusQueued), now.UnixMilli(),
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "select due job")
		}

		res, err := q.db.ExecContext(ctx, `
			UPDATE call_jobs SET status = ?, attempts = attempts + 1, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(StatusRunning), now.UnixMilli(), id, string(StatusQueued),
		)
		if err != nil {
			err = errors.Wrap(err, "claim job")
			return nil, errors.WithDetail(err, fmt.Sprintf("Job ID: %s", id))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Another worker won the race; look for the next due job.
			continue
		}

		return q.Get(ctx, id)
	}
}

// RequeueStale returns running jobs whose last update is before cutoff to the
// queue. Jobs out of attempts are marked failed instead. It reports how many
// jobs were touched.
func (q *Queue) RequeueStale(ctx context.Context, cutoff time.Time, maxAttempts int) (int64, error) {
	now := q.now().UnixMilli()
	const abandoned = "abandoned while running"

	failed, err := q.db.ExecContext(ctx, `
		UPDATE call_jobs SET status = ?, last_error = ?, updated_at = ?
		WHERE status = ? AND updated_at < ? AND attempts >= ?`,
		string(StatusFailed), abandoned, now, string(StatusRunning), cutoff.UnixMilli(), maxAttempts,
	)
	if err != nil {
		return 0, errors.Wrap(err, "fail stale jobs")
	}

	requeued, err := q.db.ExecContext(ctx, `
		UPDATE call_jobs SET status = ?, eta = ?, last_error = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?`,
		string(StatusQueued), now, abandoned, now, string(StatusRunning), cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "requeue stale jobs")
	}

	nFailed, _ := failed.RowsAffected()
	nRequeued, _ := requeued.RowsAffected()
	return nFailed + nRequeued, nil
}

// Complete marks a running job as done.
func (q *Queue) Complete(ctx context.Context, id string) error {
	return q.setStatus(ctx, id, StatusCompleted, "")
}

// Fail records a failed attempt. The job is re-queued at retryAt while it has
// attempts left, otherwise it is marked failed for good.
func (q *Queue) Fail(ctx context.Context, job *Job, cause error, retryAt time.Time, maxAttempts int) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	if job.Attempts >= maxAttempts {
		job.Status = StatusFailed
		job.LastError = msg
		return q.setStatus(ctx, job.ID, StatusFailed, msg)
	}

	now := q.now()
	res, err := q.db.ExecContext(ctx, `
		UPDATE call_jobs SET status = ?, eta = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		string(StatusQueued), retryAt.UnixMilli(), msg, now.UnixMilli(), job.ID,
	)
	if err != nil {
		err = errors.Wrap(err, "requeue job")
		err = errors.WithDetail(err, fmt.Sprintf("Job ID: %s", job.ID))
		return errors.WithDetail(err, fmt.Sprintf("Attempts: %d", job.Attempts))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrJobNotFound, "job %s", job.ID)
	}

	job.Status = StatusQueued
	job.ETA = retryAt
	job.LastError = msg
	return nil
}

func (q *Queue) setStatus(ctx context.Context, id string, status JobStatus, lastError string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE call_jobs SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(status), lastError, q.now().UnixMilli(), id,
	)
	if err != nil {
		err = errors.Wrap(err, "update job status")
		err = errors.WithDetail(err, fmt.Sprintf("Job ID: %s", id))
		return errors.WithDetail(err, fmt.Sprintf("Status: %s", status))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrJobNotFound, "job %s", id)
	}
	return nil
}

// Get loads a job by id.
func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, args, eta, status, attempts, last_error, created_at, updated_at
		FROM call_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrJobNotFound, "job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get job %s", id)
	}
	return job, nil
}

// List returns jobs with the given status ordered by ETA. An empty status lists all jobs.
func (q *Queue) List(ctx context.Context, status JobStatus, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, name, args, eta, status, attempts, last_error, created_at, updated_at FROM call_jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY eta ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan job")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var payload, status string
	var eta, created, updated int64

	if err := row.Scan(&job.ID, &job.Name, &payload, &eta, &status, &job.Attempts, &job.LastError, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &job.Args); err != nil {
		return nil, errors.Wrapf(err, "decode args of job %s", job.ID)
	}

	job.Status = JobStatus(status)
	job.ETA = time.UnixMilli(eta)
	job.CreatedAt = time.UnixMilli(created)
	job.UpdatedAt = time.UnixMilli(updated)
	return &job, nil
}
