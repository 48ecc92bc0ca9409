package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

// MentorshipRequest records a user's interest in being matched with a mentor.
type MentorshipRequest struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	InterestField string    `json:"interest_field"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateMentorshipRequest stores req and fills in its id.
func (s *Store) CreateMentorshipRequest(ctx context.Context, req *MentorshipRequest) error {
	now := s.now()
	var userID sql.NullString
	if req.UserID != "" {
		userID = sql.NullString{String: req.UserID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mentorship_requests (user_id, interest_field, created_at) VALUES (?, ?, ?)`,
		userID, req.InterestField, now.Unix(),
	)
	if err != nil {
		return errors.Wrap(err, "create mentorship request")
	}

	req.ID, _ = res.LastInsertId()
	req.CreatedAt = time.Unix(now.Unix(), 0)
	return nil
}
