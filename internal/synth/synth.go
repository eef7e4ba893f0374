// Package synth turns retrieved note text into a grounded natural-language
// answer via a chat-completion model. The model is instructed to answer only
// from the supplied notes; when no notes survive retrieval (or the budget
// trims them all away) it is told so and answers from general knowledge.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/IslandRhythms/notion-clone/internal/budget"
	"github.com/IslandRhythms/notion-clone/internal/logging"
	"github.com/IslandRhythms/notion-clone/internal/page"
)

// groundingPrompt frames the model as a note-summarizing assistant. The
// retrieved note excerpts are appended beneath it, one per "Note:" line.
const groundingPrompt = "You are a helpful assistant that summarizes relevant notes " +
	"to help answer a user's questions. Given the following notes, answer the user's question."

// noNotesPrompt is used when retrieval produced nothing usable. The model is
// told explicitly that no notes matched so it does not hallucinate sources.
const noNotesPrompt = "You are a helpful assistant. The user asked a question but none of " +
	"their notes were relevant. Answer from general knowledge and mention that no matching " +
	"notes were found."

// ChatModel is the narrow slice of the eino chat model surface the
// synthesizer needs. Any model.BaseChatModel satisfies it.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Synthesizer produces grounded answers from note excerpts. It implements
// qa.Synthesizer.
type Synthesizer struct {
	// model is the chat-completion backend.
	model ChatModel

	// maxContextTokens caps the estimated size of the prompt; lowest-ranked
	// notes are dropped first when the budget is exceeded.
	maxContextTokens int
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithMaxContextTokens overrides the default context token budget.
func WithMaxContextTokens(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxContextTokens = n
		}
	}
}

// New constructs a Synthesizer backed by the given chat model.
func New(cm ChatModel, opts ...Option) (*Synthesizer, error) {
	if cm == nil {
		return nil, fmt.Errorf("synth: chat model must not be nil")
	}
	s := &Synthesizer{
		model:            cm,
		maxContextTokens: budget.DefaultMaxContextTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Answer generates a response to question grounded in sources, which arrive
// ranked by relevance (most relevant first). An empty sources slice is valid:
// the model answers without grounding. Backend failures and empty completions
// are reported as page.ErrSynthesisUnavailable.
func (s *Synthesizer) Answer(ctx context.Context, question string, sources []string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", page.ErrInvalidQuestion
	}

	messages := s.buildMessages(ctx, question, sources)

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", page.ErrSynthesisUnavailable, err)
	}
	if resp == nil || resp.Content == "" {
		return "", fmt.Errorf("%w: model returned an empty completion", page.ErrSynthesisUnavailable)
	}
	return resp.Content, nil
}

// buildMessages assembles the system + user message pair, trimming sources
// to the token budget.
func (s *Synthesizer) buildMessages(ctx context.Context, question string, sources []string) []*schema.Message {
	reserved := budget.Estimate(groundingPrompt) + budget.Estimate(question) + 8

	before := len(sources)
	sources = budget.TrimSources(sources, reserved, s.maxContextTokens)
	if dropped := before - len(sources); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped note excerpts to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(sources)),
			slog.Int("max_tokens", s.maxContextTokens),
		)
	}

	if len(sources) == 0 {
		return []*schema.Message{
			schema.SystemMessage(noNotesPrompt),
			schema.UserMessage(question),
		}
	}

	var sb strings.Builder
	sb.WriteString(groundingPrompt)
	for _, src := range sources {
		sb.WriteString("\nNote: ")
		sb.WriteString(src)
	}
	return []*schema.Message{
		schema.SystemMessage(sb.String()),
		schema.UserMessage(question),
	}
}
