// Package mentorship records mentorship requests and points users to mentor platforms.
package mentorship

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spigell/asha/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultField = "Technology"
	defaultKey   = "default"
	maxLinks     = 2
)

//go:embed mentor_links.json
var linksJSON []byte

// Links maps a lower-cased field to mentor platform URLs.
type Links map[string][]string

// DefaultLinks returns the embedded link table.
func DefaultLinks() (Links, error) {
	var links Links
	if err := json.Unmarshal(linksJSON, &links); err != nil {
		return nil, fmt.Errorf("decode mentor links: %w", err)
	}
	if len(links[defaultKey]) == 0 {
		return nil, fmt.Errorf("mentor links have no %q entry", defaultKey)
	}
	return links, nil
}

// For returns up to two links for field. A field with a single link is topped
// up with the first default link.
func (l Links) For(field string) []string {
	key := strings.ToLower(strings.TrimSpace(field))
	selected, ok := l[key]
	if !ok || len(selected) == 0 {
		selected = l[defaultKey]
	}

	out := make([]string, 0, maxLinks)
	for _, link := range selected {
		if len(out) == maxLinks {
			break
		}
		out = append(out, link)
	}
	if len(out) < maxLinks && len(l[defaultKey]) > 0 && !slices.Contains(out, l[defaultKey][0]) {
		out = append(out, l[defaultKey][0])
	}
	return out
}

type Recorder interface {
	CreateMentorshipRequest(ctx context.Context, req *store.MentorshipRequest) error
}

// Confirmation is the answer to a mentorship request.
type Confirmation struct {
	RequestID int64    `json:"request_id"`
	Field     string   `json:"interest_field"`
	Links     []string `json:"links"`
	Text      string   `json:"response"`
}

type Service struct {
	recorder Recorder
	links    Links
	logger   *zap.Logger
}

func NewService(recorder Recorder, links Links, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{recorder: recorder, links: links, logger: logger}
}

// Record stores the request and builds the reply. userID may be empty.
func (s *Service) Record(ctx context.Context, userID, field string) (*Confirmation, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		field = DefaultField
	}

	req := &store.MentorshipRequest{UserID: userID, InterestField: field}
	if err := s.recorder.CreateMentorshipRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("record mentorship request: %w", err)
	}

	links := s.links.For(field)
	s.logger.Info("mentorship request recorded",
		zap.Int64("request_id", req.ID),
		zap.String("field", field),
		zap.Int("links", len(links)),
	)

	return &Confirmation{
		RequestID: req.ID,
		Field:     field,
		Links:     links,
		Text:      formatReply(field, links),
	}, nil
}

func formatReply(field string, links []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌱 **Mentorship Opportunity in %s**\n\n", field)
	for _, link := range links {
		fmt.Fprintf(&b, "👉 %s\n", link)
	}
	b.WriteString("Grow your network and get guidance from leaders in the field!")
	return b.String()
}
