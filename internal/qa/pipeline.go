package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IslandRhythms/notion-clone/internal/logging"
	"github.com/IslandRhythms/notion-clone/internal/page"
)

// DefaultTopK is the number of pages retrieved as grounding context for a
// question.
const DefaultTopK = 3

// Pipeline answers questions over the stored pages: embed the question,
// retrieve the most similar pages, synthesize an answer grounded in their
// text. Each stage either succeeds or fails the whole operation; a retrieval
// that finds nothing is not a failure.
type Pipeline struct {
	embed  Embedder
	search Searcher
	synth  Synthesizer
	topK   int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithTopK overrides the number of pages retrieved per question.
func WithTopK(k int) PipelineOption {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// NewPipeline constructs a Pipeline from its three stages.
func NewPipeline(embed Embedder, search Searcher, synth Synthesizer, opts ...PipelineOption) (*Pipeline, error) {
	if embed == nil {
		return nil, fmt.Errorf("qa: embedder must not be nil")
	}
	if search == nil {
		return nil, fmt.Errorf("qa: searcher must not be nil")
	}
	if synth == nil {
		return nil, fmt.Errorf("qa: synthesizer must not be nil")
	}
	p := &Pipeline{embed: embed, search: search, synth: synth, topK: DefaultTopK}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Ask answers question on behalf of callerID. The question must contain
// non-whitespace text. Retrieved pages the caller may not read are dropped
// before synthesis; zero surviving pages still produces an answer, from a
// model that was told no notes matched.
func (p *Pipeline) Ask(ctx context.Context, callerID, question string) (*page.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, page.ErrInvalidQuestion
	}

	vecs, err := p.embed.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}

	hits, err := p.search.TopSimilar(ctx, vecs[0], p.topK)
	if err != nil {
		return nil, err
	}

	// Private pages owned by someone else never reach the model.
	accessible := hits[:0]
	for _, h := range hits {
		if h.CanAccess(callerID) {
			accessible = append(accessible, h)
		}
	}
	hits = accessible

	sources := make([]string, 0, len(hits))
	for _, h := range hits {
		if text := page.Extract(h.Blocks); text != "" {
			sources = append(sources, text)
		}
	}

	logging.FromContext(ctx).Debug("retrieved grounding pages",
		slog.Int("hits", len(hits)),
		slog.Int("top_k", p.topK),
	)

	answer, err := p.synth.Answer(ctx, question, sources)
	if err != nil {
		return nil, err
	}

	return &page.QueryResult{
		Question: question,
		Pages:    hits,
		Answer:   answer,
	}, nil
}
