package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	InterviewScheduled = "scheduled"
	InterviewCalling   = "calling"
	InterviewCompleted = "completed"
	InterviewAnalyzed  = "analyzed"
	InterviewFailed    = "failed"
)

// Interview is a mock-interview phone call booked through the chat.
type Interview struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	PhoneNumber   string    `json:"phone_number"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Status        string    `json:"status"`
	CallSID       string    `json:"call_sid,omitempty"`
	RecordingURL  string    `json:"recording_url,omitempty"`
	Feedback      string    `json:"feedback,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const interviewColumns = `id, user_id, phone_number, scheduled_time, status, call_sid, recording_url, feedback, created_at, updated_at`

// CreateInterview inserts a new interview record and returns its identifier.
func (s *Store) CreateInterview(ctx context.Context, in *Interview) (int64, error) {
	now := s.now()
	if in.Status == "" {
		in.Status = InterviewScheduled
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO interviews (user_id, phone_number, scheduled_time, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.UserID, in.PhoneNumber, in.ScheduledTime.Unix(), in.Status, now.Unix(), now.Unix(),
	)
	if err != nil {
		err = errors.Wrap(err, "create interview")
		return 0, errors.WithDetailf(err, "user: %s", in.UserID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "read interview id")
	}

	in.ID = id
	in.CreatedAt = time.Unix(now.Unix(), 0)
	in.UpdatedAt = in.CreatedAt
	return id, nil
}

// GetInterview returns the interview with the given id or ErrNotFound.
func (s *Store) GetInterview(ctx context.Context, id int64) (*Interview, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id)
	in, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "interview %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get interview %d", id)
	}
	return in, nil
}

// SetInterviewStatus moves an interview to status.
func (s *Store) SetInterviewStatus(ctx context.Context, id int64, status string) error {
	return s.updateInterview(ctx, id, `status = ?`, status)
}

// SetInterviewCall records the telephony call identifier and marks the interview as calling.
func (s *Store) SetInterviewCall(ctx context.Context, id int64, callSID string) error {
	return s.updateInterview(ctx, id, `call_sid = ?, status = ?`, callSID, InterviewCalling)
}

// CompleteInterview stores the recording location of a finished call.
func (s *Store) CompleteInterview(ctx context.Context, id int64, recordingURL string) error {
	return s.updateInterview(ctx, id, `recording_url = ?, status = ?`, recordingURL, InterviewCompleted)
}

// SaveInterviewFeedback stores the generated feedback and marks the interview analyzed.
func (s *Store) SaveInterviewFeedback(ctx context.Context, id int64, feedback string) error {
	return s.updateInterview(ctx, id, `feedback = ?, status = ?`, feedback, InterviewAnalyzed)
}

// UpcomingInterviews lists a user's scheduled interviews after from, soonest first.
func (s *Store) UpcomingInterviews(ctx context.Context, userID string, from time.Time) ([]*Interview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+interviewColumns+` FROM interviews
		WHERE user_id = ? AND status = ? AND scheduled_time >= ?
		ORDER BY scheduled_time ASC`, userID, InterviewScheduled, from.Unix())
	if err != nil {
		return nil, errors.Wrapf(err, "query upcoming interviews of %q", userID)
	}
	defer rows.Close()

	var result []*Interview
	for rows.Next() {
		in, err := scanInterview(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan interview")
		}
		result = append(result, in)
	}
	return result, rows.Err()
}

func (s *Store) updateInterview(ctx context.Context, id int64, set string, args ...any) error {
	args = append(args, s.now().Unix(), id)
	res, err := s.db.ExecContext(ctx, `UPDATE interviews SET `+set+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return errors.Wrapf(err, "update interview %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "interview %d", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterview(row rowScanner) (*Interview, error) {
	var in Interview
	var scheduled, created, updated int64
	if err := row.Scan(&in.ID, &in.UserID, &in.PhoneNumber, &scheduled, &in.Status,
		&in.CallSID, &in.RecordingURL, &in.Feedback, &created, &updated); err != nil {
		return nil, err
	}
	in.ScheduledTime = time.Unix(scheduled, 0)
	in.CreatedAt = time.Unix(created, 0)
	in.UpdatedAt = time.Unix(updated, 0)
	return &in, nil
}
