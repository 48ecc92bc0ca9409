package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ErrEmailTaken is returned when signing up with an email that already exists.
var ErrEmailTaken = errors.New("email already exists")

// UserProfile is a registered Asha user.
type UserProfile struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
}

const userColumns = `id, user_id, name, email, contact, created_at`

// CreateUser registers a new user with a freshly generated user id.
func (s *Store) CreateUser(ctx context.Context, name, email string) (*UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.UserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u := &UserProfile{
		UserID:    uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     email,
		CreatedAt: time.Unix(s.now().Unix(), 0),
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, name, email, contact, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.UserID, u.Name, u.Email, u.Contact, u.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create user")
	}

	u.ID, _ = res.LastInsertId()
	return u, nil
}

// UserByEmail looks a user up by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE email = ?`, email)
}

// UserByID looks a user up by the public user id.
func (s *Store) UserByID(ctx context.Context, userID string) (*UserProfile, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE user_id = ?`, userID)
}

func (s *Store) queryUser(ctx context.Context, query string, arg any) (*UserProfile, error) {
	var u UserProfile
	var created int64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.UserID, &u.Name, &u.Email, &u.Contact, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query user")
	}
	u.CreatedAt = time.Unix(created, 0)
	return &u, nil
}
