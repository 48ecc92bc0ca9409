// Package jobs answers job-search requests: it queries the listings provider,
// runs the filtering pipeline and renders the chat reply.
package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/asha/internal/filtering"
	"github.com/spigell/asha/internal/jsearch"
	"go.uber.org/zap"
)

const (
	DefaultTitle    = "developer"
	DefaultLocation = "India"
	DefaultLimit    = 5
)

type Query struct {
	Title    string `json:"job_title"`
	Location string `json:"location"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
}

func (q Query) withDefaults() Query {
	if strings.TrimSpace(q.Title) == "" {
		q.Title = DefaultTitle
	}
	if strings.TrimSpace(q.Location) == "" {
		q.Location = DefaultLocation
	}
	q.Title = strings.TrimSpace(q.Title)
	q.Location = strings.TrimSpace(q.Location)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	return q
}

type Result struct {
	Query    Query             `json:"query"`
	Listings *jsearch.Listings `json:"listings"`
	Text     string            `json:"response"`
}

type Service struct {
	searcher  jsearch.Searcher
	employers []string
	logger    *zap.Logger
}

// NewService builds the service. Listings from excludedEmployers are never shown.
func NewService(searcher jsearch.Searcher, excludedEmployers []string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{searcher: searcher, employers: excludedEmployers, logger: logger}
}

func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	q = q.withDefaults()

	found, err := s.searcher.Search(ctx, q.Title, q.Location)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}

	cfg := &filtering.Config{Employers: s.employers, Page: q.Page, Limit: q.Limit}
	listings, err := filtering.Run(ctx, cfg, filtering.Deps{Logger: s.logger}, filtering.Default(), found)
	if err != nil {
		return nil, fmt.Errorf("filter jobs: %w", err)
	}

	s.logger.Info("job search",
		zap.String("title", q.Title),
		zap.String("location", q.Location),
		zap.Int("found", found.Len()),
		zap.Int("shown", listings.Len()),
	)

	return &Result{Query: q, Listings: listings, Text: FormatReply(q.Title, q.Location, listings)}, nil
}

// FormatReply renders listings as a markdown list.
func FormatReply(title, location string, listings *jsearch.Listings) string {
	if listings.Len() == 0 {
		return fmt.Sprintf("❌ No jobs found for %s in %s.\n"+
			"But don't worry! Try again later or check out our mentorship programs to stay prepared.", title, location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌟 **Jobs for %s in %s**\n\n", title, location)
	for _, item := range listings.Items {
		label := item.Title
		if item.Employer != "" {
			label += " – " + item.Employer
		}
		if item.City != "" {
			label += " (" + item.City + ")"
		}
		fmt.Fprintf(&b, "🔗 [%s](%s)\n", label, item.ApplyLink)
	}
	b.WriteString("\n🚀 **Apply now and join our women-in-tech network!**")
	return b.String()
}
