// Package intent maps chat messages to a fixed set of routing labels.
package intent

import (
	"regexp"
	"strings"
)

// Intent is a routing label derived from a single message.
type Intent string

const (
	JobSearch        Intent = "job_search"
	ResumeHelp       Intent = "resume_help"
	InterviewBooking Intent = "interview_booking"
	Mentorship       Intent = "mentorship"
	CareerAdvice     Intent = "career_advice"
	EventsInfo       Intent = "events_info"
	BotInfo          Intent = "bot_info"
	GeneralQuery     Intent = "general_query"
)

func (i Intent) String() string { return string(i) }

// rule matches when any phrase is a substring of the lower-cased text or any
// word pattern matches it.
type rule struct {
	intent  Intent
	phrases []string
	words   []*regexp.Regexp
}

// rules are evaluated in order and the first match wins. A message mentioning
// both a job and a mentor is a job search.
var rules = []rule{
	{
		intent:  JobSearch,
		phrases: []string{"job", "jobs", "hiring", "position", "work", "vacancy", "opening"},
	},
	{
		intent:  ResumeHelp,
		phrases: []string{"resume", "curriculum vitae", "build my resume", "create resume"},
		words:   []*regexp.Regexp{regexp.MustCompile(`\bcv\b`)},
	},
	{
		intent:  InterviewBooking,
		phrases: []string{"interview", "mock call", "practice call", "phone screen", "telephonic interview"},
	},
	{
		intent:  Mentorship,
		phrases: []string{"mentor", "mentorship", "guidance", "guide me", "coach"},
	},
	{
		intent:  CareerAdvice,
		phrases: []string{"advice", "suggest", "help me with", "tips", "guidance"},
	},
	{
		intent:  EventsInfo,
		phrases: []string{"event", "hackathon", "workshop", "webinar", "conference"},
	},
	{
		intent:  BotInfo,
		phrases: []string{"who are you", "what can you do", "your name", "about you"},
	},
}

// Classify returns the first intent whose keywords occur in text, or
// GeneralQuery when none do.
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.matches(lower) {
			return r.intent
		}
	}
	return GeneralQuery
}

func (r rule) matches(lower string) bool {
	for _, phrase := range r.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	for _, word := range r.words {
		if word.MatchString(lower) {
			return true
		}
	}
	return false
}

// All lists every label in precedence order, GeneralQuery last.
func All() []Intent {
	all := make([]Intent, 0, len(rules)+1)
	for _, r := range rules {
		all = append(all, r.intent)
	}
	return append(all, GeneralQuery)
}

// Valid reports whether s names a known intent.
func Valid(s string) bool {
	for _, i := range All() {
		if string(i) == s {
			return true
		}
	}
	return false
}
