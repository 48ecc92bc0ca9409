package store

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Dashboard aggregates a user's activity.
type Dashboard struct {
	UserID             string       `json:"user_id"`
	Sessions           int          `json:"sessions"`
	Messages           int          `json:"messages"`
	Interviews         int          `json:"interviews"`
	MentorshipRequests int          `json:"mentorship_requests"`
	Upcoming           []*Interview `json:"upcoming_interviews"`
}

// Dashboard collects counters and upcoming interviews for userID.
func (s *Store) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	d := &Dashboard{UserID: userID, Upcoming: []*Interview{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT session_id) FROM conversation_entries WHERE user_id = ?),
			(SELECT COUNT(*) FROM conversation_entries WHERE user_id = ?),
			(SELECT COUNT(*) FROM interviews WHERE user_id = ?),
			(SELECT COUNT(*) FROM mentorship_requests WHERE user_id = ?)`,
		userID, userID, userID, userID,
	).Scan(&d.Sessions, &d.Messages, &d.Interviews, &d.MentorshipRequests)
	if err != nil {
		return nil, errors.Wrapf(err, "dashboard counters for %q", userID)
	}

	upcoming, err := s.UpcomingInterviews(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	if upcoming != nil {
		d.Upcoming = upcoming
	}

	return d, nil
}
