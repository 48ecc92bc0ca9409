package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/asha/internal/jsearch"
	"github.com/spigell/asha/internal/utils"
)

// toggle carries the enable/disable state shared by all steps.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type sanitizeFilter struct {
	toggle
}

// NewSanitize creates a step that strips control and invalid characters from displayed fields.
func NewSanitize() Filter {
	return &sanitizeFilter{}
}

func (f *sanitizeFilter) Name() string { return "sanitize" }

func (f *sanitizeFilter) Validate(*Config) error { return nil }

func (f *sanitizeFilter) Apply(_ context.Context, _ Deps, l *jsearch.Listings) (*jsearch.Listings, Step, error) {
	for _, item := range l.Items {
		item.Title = strings.TrimSpace(utils.RemoveInvalidCharacters(item.Title))
		item.Employer = strings.TrimSpace(utils.RemoveInvalidCharacters(item.Employer))
		item.City = strings.TrimSpace(utils.RemoveInvalidCharacters(item.City))
	}
	return l, Step{Initial: l.Len(), Left: l.Len()}, nil
}

type applyLinkFilter struct {
	toggle
}

// NewApplyLink creates a step that removes listings without an apply link.
func NewApplyLink() Filter {
	return &applyLinkFilter{}
}

func (f *applyLinkFilter) Name() string { return "apply_link" }

func (f *applyLinkFilter) Validate(*Config) error { return nil }

func (f *applyLinkFilter) Apply(_ context.Context, deps Deps, l *jsearch.Listings) (*jsearch.Listings, Step, error) {
	initial := l.Len()
	excluded := l.Filter(func(item *jsearch.Listing) bool {
		return strings.TrimSpace(item.ApplyLink) != ""
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding listings without apply link",
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", l.Len()),
		)
	}
	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

type employersFilter struct {
	toggle
	employers []string
}

// NewEmployers creates a step that removes listings by employers configured in the config.
func NewEmployers() Filter {
	return &employersFilter{}
}

func (f *employersFilter) Name() string { return "employers" }

func (f *employersFilter) Validate(cfg *Config) error {
	f.employers = nil
	if cfg != nil {
		f.employers = append(f.employers, cfg.Employers...)
	}
	return nil
}

func (f *employersFilter) Apply(_ context.Context, deps Deps, l *jsearch.Listings) (*jsearch.Listings, Step, error) {
	initial := l.Len()
	if len(f.employers) == 0 {
		return l, Step{Initial: initial, Left: initial}, nil
	}

	excluded := l.Exclude(jsearch.ListingEmployerField, f.employers)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding listings by employers",
			zap.Strings("excluded_employers", f.employers),
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *employersFilter) Status() Status {
	details := map[string]string{}
	if len(f.employers) > 0 {
		details["employers"] = strings.Join(f.employers, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type paginateFilter struct {
	toggle
	page  int
	limit int
}

// NewPaginate creates a step that keeps a single page of listings.
func NewPaginate() Filter {
	return &paginateFilter{}
}

func (f *paginateFilter) Name() string { return "paginate" }

func (f *paginateFilter) Validate(cfg *Config) error {
	f.page, f.limit = 1, 0
	if cfg == nil {
		return nil
	}
	if cfg.Page < 0 || cfg.Limit < 0 {
		return fmt.Errorf("page and limit must not be negative (page=%d, limit=%d)", cfg.Page, cfg.Limit)
	}
	if cfg.Page > 0 {
		f.page = cfg.Page
	}
	f.limit = cfg.Limit
	return nil
}

func (f *paginateFilter) Apply(_ context.Context, _ Deps, l *jsearch.Listings) (*jsearch.Listings, Step, error) {
	initial := l.Len()
	paged := l.Page(f.page, f.limit)
	return paged, Step{Initial: initial, Dropped: initial - paged.Len(), Left: paged.Len()}, nil
}

func (f *paginateFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"page":  strconv.Itoa(f.page),
			"limit": strconv.Itoa(f.limit),
		},
	}
}
