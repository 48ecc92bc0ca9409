package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/asha/internal/utils"
)

const titleLength = 50

// KV is the key-value store holding session ids and titles.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Session identifies the conversation a message belongs to.
type Session struct {
	ID    string
	Title string
	New   bool
}

type sessions struct {
	kv  KV
	ttl time.Duration
}

func sessionKey(userID string) string { return "session:" + userID }

func titleKey(sessionID string) string { return "title:" + sessionID }

// resolve returns the active session of userID or starts one titled after text.
// Resolving an existing session extends its lifetime.
func (s sessions) resolve(ctx context.Context, userID, text string) (Session, error) {
	id, ok, err := s.kv.Get(ctx, sessionKey(userID))
	if err != nil {
		return Session{}, fmt.Errorf("read session of %q: %w", userID, err)
	}

	if ok && id != "" {
		title, _, err := s.kv.Get(ctx, titleKey(id))
		if err != nil {
			return Session{}, fmt.Errorf("read title of session %q: %w", id, err)
		}
		if s.ttl > 0 {
			if err := s.store(ctx, userID, id, title); err != nil {
				return Session{}, err
			}
		}
		return Session{ID: id, Title: title}, nil
	}

	session := Session{
		ID:    uuid.NewString(),
		Title: sessionTitle(text),
		New:   true,
	}
	if err := s.store(ctx, userID, session.ID, session.Title); err != nil {
		return Session{}, err
	}
	return session, nil
}

// store writes both session keys, restarting their idle timeout.
func (s sessions) store(ctx context.Context, userID, id, title string) error {
	if err := s.kv.Set(ctx, sessionKey(userID), id, s.ttl); err != nil {
		return fmt.Errorf("store session of %q: %w", userID, err)
	}
	if err := s.kv.Set(ctx, titleKey(id), title, s.ttl); err != nil {
		return fmt.Errorf("store title of session %q: %w", id, err)
	}
	return nil
}

func sessionTitle(text string) string {
	return strings.TrimSpace(utils.RemoveInvalidCharacters(utils.FirstRunes(strings.TrimSpace(text), titleLength)))
}
