// Package extract pulls interview scheduling details out of free text.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// Indian mobile numbers: ten digits starting with 6-9, not part of a longer digit run.
	phonePattern = regexp.MustCompile(`(?:^|\D)([6-9]\d{9})(?:\D|$)`)

	clockPattern    = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})(?:\s*([ap])\.?m\.?\b)?`)
	meridiemPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*([ap])\.?m\b`)
	atHourPattern   = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})\b`)
)

// Schedule is the result of parsing one message. Zero values mean absent.
type Schedule struct {
	Phone string
	Time  time.Time
}

func (s Schedule) HasPhone() bool { return s.Phone != "" }

func (s Schedule) HasTime() bool { return !s.Time.IsZero() }

// Complete reports whether both the phone number and the time are present.
func (s Schedule) Complete() bool { return s.HasPhone() && s.HasTime() }

// FromText extracts a phone number and a call time from text. The time is
// resolved against now and is always strictly after it.
func FromText(text string, now time.Time) Schedule {
	s := Schedule{Phone: Phone(text)}
	if t, ok := Time(text, now); ok {
		s.Time = t
	}
	return s
}

// Phone returns the first mobile number found in text or an empty string.
func Phone(text string) string {
	m := phonePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// Time finds the first time expression in text. Patterns are tried in order:
// "H:MM" (optionally followed by am/pm), "H am|pm" and "at H".
func Time(text string, now time.Time) (time.Time, bool) {
	if m := clockPattern.FindStringSubmatch(text); m != nil {
		if hour, minute, ok := clock(m[1], m[2], m[3]); ok {
			return resolve(now, hour, minute), true
		}
	}

	if m := meridiemPattern.FindStringSubmatch(text); m != nil {
		if hour, minute, ok := clock(m[1], "0", m[2]); ok {
			return resolve(now, hour, minute), true
		}
	}

	if m := atHourPattern.FindStringSubmatch(text); m != nil {
		if hour, minute, ok := clock(m[1], "0", ""); ok {
			return resolve(now, hour, minute), true
		}
	}

	return time.Time{}, false
}

// clock converts captured groups into a 24h hour and minute. meridiem is
// "a", "p" or empty.
func clock(h, m, meridiem string) (int, int, bool) {
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, 0, false
	}

	switch strings.ToLower(meridiem) {
	case "p":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	case "a":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// resolve places hour:minute on now's date and rolls over to the next day
// unless the result is strictly in the future.
func resolve(now time.Time, hour, minute int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
