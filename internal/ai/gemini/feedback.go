package gemini

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/asha/internal/calls"
	"go.uber.org/zap"
)

//go:embed feedback_prompt.md
var feedbackTemplate string

const feedbackSystem = "You review mock interview transcripts for a career coaching service."

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// FeedbackWriter produces interviewer feedback for a finished call.
type FeedbackWriter struct {
	generator contentGenerator
	logger    *zap.Logger
}

func NewFeedbackWriter(generator contentGenerator, logger *zap.Logger) *FeedbackWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackWriter{generator: generator, logger: logger}
}

func (f *FeedbackWriter) InterviewFeedback(ctx context.Context, transcript []calls.Utterance) (string, error) {
	if len(transcript) == 0 {
		return "", errors.New("transcript is empty")
	}

	prompt := buildFeedbackPrompt(transcript)
	f.logger.Debug("requesting interview feedback", zap.Int("utterances", len(transcript)))

	feedback, err := f.generator.GenerateContent(ctx, feedbackSystem, prompt)
	if err != nil {
		return "", fmt.Errorf("interview feedback: %w", err)
	}
	return feedback, nil
}

func buildFeedbackPrompt(transcript []calls.Utterance) string {
	var b strings.Builder
	for _, u := range transcript {
		role := u.Role
		if role == "" {
			role = "user"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, strings.TrimSpace(u.Text))
	}

	template := feedbackTemplate
	if strings.TrimSpace(template) == "" {
		template = "Give interview feedback starting with 'Overall Feedback:'.\n\nTranscript:\n{{TRANSCRIPT}}"
	}
	return strings.ReplaceAll(template, "{{TRANSCRIPT}}", strings.TrimRight(b.String(), "\n"))
}
