// Package page defines the core domain types for the notes service: pages
// made of ordered content blocks, the ephemeral question-answering result,
// and the sentinel errors shared by every pipeline. Concrete storage, embedding,
// and synthesis implementations live in their own packages and depend on this one.
package page

import "time"

// ContentBlock is one unit of page content: a paragraph, heading, or image
// reference. Tag identifies the block kind; HTML and ImageURL are optional.
// Block order is the rendering order and is preserved through persistence.
type ContentBlock struct {
	// Tag is the block kind (e.g. "p", "h1", "img"). Required.
	Tag string `json:"tag"`

	// HTML is the block's markup content. Empty for image-only blocks.
	HTML string `json:"html,omitempty"`

	// ImageURL points at an uploaded image for image blocks.
	ImageURL string `json:"imageUrl,omitempty"`
}

// Page is a stored rich-text page. The embedding is derived data: it reflects
// the text extracted from Blocks as of the last successful save, and is nil
// when that text is empty. Pages with a nil embedding are excluded from
// similarity search.
type Page struct {
	// ID is the opaque page identifier, assigned on first save.
	ID string `json:"id"`

	// Blocks is the ordered block sequence making up the page content.
	Blocks []ContentBlock `json:"blocks"`

	// CreatorID is the owning user's identifier. Empty means the page is
	// public: readable, writable, and deletable by any caller.
	CreatorID string `json:"creator,omitempty"`

	// Embedding is the page content's vector representation, or nil when the
	// page has no extractable text.
	Embedding []float32 `json:"-"`

	// CreatedAt is when the page was first saved.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is when the page was last saved. Used as the deterministic
	// tie-breaker when similarity scores are equal.
	UpdatedAt time.Time `json:"updatedAt"`
}

// CanAccess reports whether callerID may mutate or delete the page.
// The only denial branch is a page that has a creator which is not the
// caller; public pages (no creator) are open to everyone.
func (p *Page) CanAccess(callerID string) bool {
	return p.CreatorID == "" || p.CreatorID == callerID
}

// QueryResult is the ephemeral outcome of one question-answering request.
// It is never persisted.
type QueryResult struct {
	// Question is the literal question that was asked.
	Question string `json:"question"`

	// Pages holds the retrieved source pages, ranked by descending similarity.
	Pages []Page `json:"sources"`

	// Answer is the synthesized natural-language answer.
	Answer string `json:"answer"`
}
