package mentorship

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spigell/asha/internal/store"
)

type stubRecorder struct {
	got *store.MentorshipRequest
	err error
}

func (s *stubRecorder) CreateMentorshipRequest(_ context.Context, req *store.MentorshipRequest) error {
	if s.err != nil {
		return s.err
	}
	req.ID = 42
	s.got = req
	return nil
}

func testLinks() Links {
	return Links{
		"ai":         {"https://ai-1", "https://ai-2", "https://ai-3"},
		"blockchain": {"https://chain-1"},
		"default":    {"https://default-1", "https://default-2"},
	}
}

func TestLinksFor(t *testing.T) {
	links := testLinks()

	cases := []struct {
		field string
		want  []string
	}{
		{field: "AI", want: []string{"https://ai-1", "https://ai-2"}},
		{field: " blockchain ", want: []string{"https://chain-1", "https://default-1"}},
		{field: "pottery", want: []string{"https://default-1", "https://default-2"}},
		{field: "default", want: []string{"https://default-1", "https://default-2"}},
	}

	for _, tc := range cases {
		if got := links.For(tc.field); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("For(%q) = %v, want %v", tc.field, got, tc.want)
		}
	}
}

func TestDefaultLinksEmbedded(t *testing.T) {
	links, err := DefaultLinks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, field := range []string{"ai", "ml", "web development", "data science", "cybersecurity", "cloud", "blockchain"} {
		if len(links.For(field)) != 2 {
			t.Fatalf("expected two links for %q", field)
		}
	}
}

func TestServiceRecord(t *testing.T) {
	rec := &stubRecorder{}
	svc := NewService(rec, testLinks(), nil)

	conf, err := svc.Record(context.Background(), "u1", "AI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.got.UserID != "u1" || rec.got.InterestField != "AI" {
		t.Fatalf("unexpected stored request %+v", rec.got)
	}
	if conf.RequestID != 42 {
		t.Fatalf("unexpected request id %d", conf.RequestID)
	}

	want := "🌱 **Mentorship Opportunity in AI**\n\n👉 https://ai-1\n👉 https://ai-2\nGrow your network and get guidance from leaders in the field!"
	if conf.Text != want {
		t.Fatalf("unexpected reply:\n%s", conf.Text)
	}
}

func TestServiceRecordDefaultsField(t *testing.T) {
	rec := &stubRecorder{}
	conf, err := NewService(rec, testLinks(), nil).Record(context.Background(), "", "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.Field != DefaultField || !strings.Contains(conf.Text, "https://default-1") {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
}

func TestServiceRecordError(t *testing.T) {
	svc := NewService(&stubRecorder{err: errors.New("locked")}, testLinks(), nil)
	if _, err := svc.Record(context.Background(), "u1", "AI"); err == nil {
		t.Fatal("expected error")
	}
}
