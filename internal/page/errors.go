package page

import "errors"

// Sentinel errors shared across the storage, indexing, and query pipelines.
// Wrap them with fmt.Errorf("...: %w", err) and test with errors.Is — the
// HTTP layer maps each kind to a status code; no component ever downgrades
// one of these to a default or empty result.
var (
	// ErrNotFound indicates a page or user lookup by identifier found nothing.
	ErrNotFound = errors.New("not found")

	// ErrEmptyInput indicates an attempt to embed empty text. Callers must
	// check for empty extracted text before invoking the embedder.
	ErrEmptyInput = errors.New("empty input rejected")

	// ErrEmbeddingUnavailable indicates the remote embedding call failed:
	// network error, timeout, bad credentials, or a malformed response.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrSynthesisUnavailable indicates the remote chat-completion call failed.
	ErrSynthesisUnavailable = errors.New("synthesis unavailable")

	// ErrInvalidQuestion indicates the question text was empty.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrInconsistentUpdate indicates a multi-step write (page row plus a
	// secondary index or owner bookkeeping) failed partway. The caller must
	// not assume the operation succeeded.
	ErrInconsistentUpdate = errors.New("inconsistent update")

	// ErrForbidden indicates the caller is not the creator of a private page.
	ErrForbidden = errors.New("forbidden")
)
