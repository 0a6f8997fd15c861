package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/revrost/go-openrouter"
)

// Synthesizer rewrites a rendered report into a narrative profile through
// OpenRouter. It is optional; rendering never depends on it and callers fall
// back to the plain template on any failure.
type Synthesizer struct {
	client *openrouter.Client
	model  string
	log    *slog.Logger
}

func NewSynthesizer(apiKey, model string, log *slog.Logger) (*Synthesizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("synthesizer: api key is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{
		client: openrouter.NewClient(strings.TrimSpace(apiKey)),
		model:  model,
		log:    log,
	}, nil
}

const synthSystemPrompt = `You turn raw research notes about a startup founder into a concise narrative profile.
Write in markdown. Keep every source link from the notes. Do not invent facts:
everything in the profile must be traceable to the notes. Open with a short
biography paragraph, then themes (what they build, what they talk about
publicly), then a linked list of notable appearances.`

// Synthesize returns the narrative profile, or the original rendered report
// unchanged when the model call fails.
func (s *Synthesizer) Synthesize(ctx context.Context, rendered string) string {
	resp, err := s.client.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model: s.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: synthSystemPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: rendered},
			},
		},
	})
	if err != nil {
		s.log.Warn("synthesis failed, keeping template report", "error", err)
		return rendered
	}
	if len(resp.Choices) == 0 {
		s.log.Warn("synthesis returned no choices, keeping template report")
		return rendered
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content.Text)
	if out == "" {
		return rendered
	}
	return out + "\n"
}
