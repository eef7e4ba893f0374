// Package qa defines the interfaces of the question-answering pipeline —
// embedding, similarity search, and answer synthesis — and the pipeline that
// orchestrates them. Concrete implementations (OpenAI, Ollama, SQLite, Qdrant)
// satisfy these interfaces so the pipeline never depends on a specific backend.
package qa

import (
	"context"

	"github.com/IslandRhythms/notion-clone/internal/page"
)

// Embedder converts text into dense vector embeddings of a fixed
// dimensionality determined by the remote model.
// Implementations must be safe to call from multiple goroutines, must not
// retry internally, and must not cache: retry policy belongs to the caller.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice. Any empty input text
	// fails with page.ErrEmptyInput before a network call is made; remote
	// failures wrap page.ErrEmbeddingUnavailable.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher performs nearest-neighbor retrieval over stored page embeddings.
// Implementations must be safe to call from multiple goroutines.
type Searcher interface {
	// TopSimilar returns up to k pages ranked by descending cosine similarity
	// to vec. Pages without an embedding are never candidates. Ties are broken
	// by most recent UpdatedAt. k <= 0 yields an empty result.
	TopSimilar(ctx context.Context, vec []float32, k int) ([]page.Page, error)
}

// Synthesizer produces a natural-language answer grounded in retrieved
// source texts. Implementations must be safe to call from multiple goroutines.
type Synthesizer interface {
	// Answer sends the grounding sources and the literal question to a
	// chat-completion model and returns its text response verbatim. Remote
	// failures wrap page.ErrSynthesisUnavailable; a failure is never replaced
	// with a canned answer.
	Answer(ctx context.Context, question string, sources []string) (string, error)
}
