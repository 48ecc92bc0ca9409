package extract

import (
	"testing"
	"time"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.October, 19, hour, minute, 0, 0, ist)
}

func TestPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		expect string
	}{
		{name: "bare number", text: "9876543210", expect: "9876543210"},
		{name: "inside sentence", text: "call me on 7012345678 please", expect: "7012345678"},
		{name: "country code with space", text: "+91 6123456789", expect: "6123456789"},
		{name: "starts with 5", text: "5876543210", expect: ""},
		{name: "too short", text: "987654321", expect: ""},
		{name: "part of longer run", text: "919876543210", expect: ""},
		{name: "first of two", text: "8888888888 or 9999999999", expect: "8888888888"},
		{name: "absent", text: "call me", expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Phone(tt.text); got != tt.expect {
				t.Fatalf("Phone(%q) = %q, expected %q", tt.text, got, tt.expect)
			}
		})
	}
}

func TestTime(t *testing.T) {
	t.Parallel()

	now := at(10, 0)

	tests := []struct {
		name   string
		text   string
		expect time.Time
		ok     bool
	}{
		{name: "24h clock later today", text: "9876543210 at 15:30", expect: at(15, 30), ok: true},
		{name: "clock already passed rolls to tomorrow", text: "8:15 works", expect: at(8, 15).AddDate(0, 0, 1), ok: true},
		{name: "clock with pm", text: "3:30 PM", expect: at(15, 30), ok: true},
		{name: "clock with am", text: "11:05 am", expect: at(11, 5), ok: true},
		{name: "hour with pm", text: "call me at 5pm", expect: at(17, 0), ok: true},
		{name: "twelve am is midnight", text: "12 am", expect: at(0, 0).AddDate(0, 0, 1), ok: true},
		{name: "twelve pm is noon", text: "12 p.m.", expect: at(12, 0), ok: true},
		{name: "at hour", text: "at 11 tomorrow", expect: at(11, 0), ok: true},
		{name: "exactly now rolls over", text: "10:00", expect: at(10, 0).AddDate(0, 0, 1), ok: true},
		{name: "invalid clock falls through to at", text: "25:99 or at 14", expect: at(14, 0), ok: true},
		{name: "invalid meridiem hour", text: "13 pm", ok: false},
		{name: "phone digits are not an hour", text: "at 9876543210", ok: false},
		{name: "absent", text: "call me", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Time(tt.text, now)
			if ok != tt.ok {
				t.Fatalf("Time(%q) ok = %v, expected %v", tt.text, ok, tt.ok)
			}
			if ok && !got.Equal(tt.expect) {
				t.Fatalf("Time(%q) = %s, expected %s", tt.text, got, tt.expect)
			}
		})
	}
}

func TestFromText(t *testing.T) {
	t.Parallel()

	now := at(16, 0)

	s := FromText("9876543210 at 15:30", now)
	if s.Phone != "9876543210" {
		t.Fatalf("unexpected phone %q", s.Phone)
	}
	if !s.Time.Equal(at(15, 30).AddDate(0, 0, 1)) {
		t.Fatalf("expected tomorrow 15:30, got %s", s.Time)
	}
	if !s.Complete() {
		t.Fatalf("expected complete schedule")
	}

	empty := FromText("call me", now)
	if empty.HasPhone() || empty.HasTime() {
		t.Fatalf("expected empty schedule, got %+v", empty)
	}
}

func TestTimeAlwaysInFuture(t *testing.T) {
	t.Parallel()

	for hour := 0; hour < 24; hour++ {
		now := at(hour, 30)
		for _, text := range []string{"0:00", "12:30", "23:59", "at 7", "9 pm"} {
			got, ok := Time(text, now)
			if !ok {
				t.Fatalf("expected %q to parse", text)
			}
			if !got.After(now) {
				t.Fatalf("Time(%q) = %s is not after %s", text, got, now)
			}
			if got.Sub(now) > 24*time.Hour {
				t.Fatalf("Time(%q) = %s is more than a day after %s", text, got, now)
			}
		}
	}
}

func TestFromTextIsDeterministic(t *testing.T) {
	t.Parallel()

	now := at(9, 0)
	first := FromText("9876543210 at 3:30 PM", now)
	for i := 0; i < 5; i++ {
		if got := FromText("9876543210 at 3:30 PM", now); got != first {
			t.Fatalf("extraction changed between runs: %+v != %+v", got, first)
		}
	}
}
