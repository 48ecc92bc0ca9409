package gemini

import (
	"context"
	_ "embed"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spigell/asha/internal/ai"
	"github.com/spigell/asha/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

//go:embed assistant_prompt.md
var assistantPrompt string

const defaultMaxLogLength = 200

var triggerPattern = regexp.MustCompile(`\[\[trigger:([a-z0-9_\-]+)\]\]`)

type chatGenerator interface {
	Chat(ctx context.Context, system string, history []*genai.Content, message string) (string, error)
}

// Assistant answers free-form career questions through Gemini.
type Assistant struct {
	generator chatGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewAssistant(generator chatGenerator, logger *zap.Logger, maxLogLength int) *Assistant {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Assistant) Complete(ctx context.Context, prompt string, history []ai.Turn) (*ai.Reply, error) {
	contents := historyContents(history)

	a.logger.Debug("gemini chat request",
		zap.Int("history_turns", len(contents)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.Chat(ctx, assistantPrompt, contents, prompt)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("gemini chat response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	return parseReply(raw), nil
}

func historyContents(history []ai.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		if turn.Role == ai.RoleBot {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
			continue
		}
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}
	return contents
}

// parseReply strips trigger markers from raw and returns the first one as the action.
func parseReply(raw string) *ai.Reply {
	reply := &ai.Reply{}
	if m := triggerPattern.FindStringSubmatch(raw); m != nil {
		reply.Action = m[1]
	}

	text := triggerPattern.ReplaceAllString(raw, "")
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	reply.Text = strings.TrimSpace(strings.Join(kept, "\n"))
	return reply
}
