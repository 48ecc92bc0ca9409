package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/asha/internal/ai"
	"google.golang.org/genai"
)

type stubChat struct {
	response string
	err      error
	system   string
	history  []*genai.Content
	message  string
}

func (s *stubChat) Chat(_ context.Context, system string, history []*genai.Content, message string) (string, error) {
	s.system = system
	s.history = history
	s.message = message
	return s.response, s.err
}

func TestAssistantComplete(t *testing.T) {
	stub := &stubChat{response: "Here are some tips:\n- Keep it to one page"}
	assistant := NewAssistant(stub, nil, 0)

	history := []ai.Turn{
		{Role: ai.RoleUser, Text: "hi"},
		{Role: ai.RoleBot, Text: "Hello! How can I help?"},
		{Role: ai.RoleUser, Text: "   "},
	}

	reply, err := assistant.Complete(context.Background(), "how long should a resume be?", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != stub.response || reply.Action != "" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if !strings.Contains(stub.system, "Asha") {
		t.Fatalf("expected system instruction to describe Asha")
	}
	if len(stub.history) != 2 {
		t.Fatalf("expected blank turns to be dropped, got %d", len(stub.history))
	}
	if stub.history[0].Role != "user" || stub.history[1].Role != "model" {
		t.Fatalf("unexpected roles %q/%q", stub.history[0].Role, stub.history[1].Role)
	}
	if stub.message != "how long should a resume be?" {
		t.Fatalf("unexpected message %q", stub.message)
	}
}

func TestAssistantError(t *testing.T) {
	assistant := NewAssistant(&stubChat{err: errors.New("unavailable")}, nil, 0)
	if _, err := assistant.Complete(context.Background(), "hi", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseReply(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		text   string
		action string
	}{
		{name: "plain", raw: "Hello!", text: "Hello!"},
		{name: "trailing trigger", raw: "Let's build your resume.\n[[trigger:resume_form]]", text: "Let's build your resume.", action: "resume_form"},
		{name: "inline trigger", raw: "Sure [[trigger:resume_form]] go ahead", text: "Sure  go ahead", action: "resume_form"},
		{name: "unknown marker kept", raw: "[[other:x]] hi", text: "[[other:x]] hi"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reply := parseReply(tc.raw)
			if reply.Text != tc.text || reply.Action != tc.action {
				t.Fatalf("parseReply(%q) = %+v", tc.raw, reply)
			}
		})
	}
}
