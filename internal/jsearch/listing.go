package jsearch

import "strings"

const (
	ListingIDField       = "ID"
	ListingEmployerField = "Employer"
)

type Listings struct {
	Items []*Listing `json:"items"`
}

type Listing struct {
	ID             string `json:"job_id,omitempty"`
	Title          string `json:"job_title,omitempty"`
	Employer       string `json:"employer_name,omitempty"`
	EmployerLogo   string `json:"employer_logo,omitempty"`
	City           string `json:"job_city,omitempty"`
	State          string `json:"job_state,omitempty"`
	Country        string `json:"job_country,omitempty"`
	ApplyLink      string `json:"job_apply_link,omitempty"`
	EmploymentType string `json:"job_employment_type,omitempty"`
	IsRemote       bool   `json:"job_is_remote,omitempty"`
	Publisher      string `json:"job_publisher,omitempty"`
	PostedAt       string `json:"job_posted_at_datetime_utc,omitempty"`
	Description    string `json:"job_description,omitempty"`
}

func (va *Listing) GetStringField(name string) string {
	switch name {
	case ListingIDField:
		return va.ID
	case ListingEmployerField:
		return va.Employer
	default:
		return ""
	}
}

func (l *Listings) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// Exclude drops listings whose field matches any target, ignoring case, and
// returns the dropped ids. Order of the remaining listings is preserved.
func (l *Listings) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	return l.Filter(func(item *Listing) bool {
		_, hit := set[strings.ToLower(strings.TrimSpace(item.GetStringField(name)))]
		return !hit
	})
}

// Filter keeps listings for which keep returns true and returns the ids of the dropped ones.
func (l *Listings) Filter(keep func(*Listing) bool) []string {
	var excluded []string
	kept := l.Items[:0]
	for _, item := range l.Items {
		if keep(item) {
			kept = append(kept, item)
			continue
		}
		excluded = append(excluded, item.ID)
	}
	l.Items = kept
	return excluded
}

// Page returns listings of the 1-based page of size limit.
func (l *Listings) Page(page, limit int) *Listings {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return &Listings{Items: append([]*Listing(nil), l.Items...)}
	}

	start := (page - 1) * limit
	if start >= len(l.Items) {
		return &Listings{}
	}
	end := min(start+limit, len(l.Items))
	return &Listings{Items: append([]*Listing(nil), l.Items[start:end]...)}
}
