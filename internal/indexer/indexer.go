// Package indexer coordinates the page lifecycle: every create and
// content-mutating update extracts the page's text, recomputes its embedding,
// and persists blocks and embedding together, so the stored embedding always
// reflects the blocks as of the last successful save. Reads never touch the
// index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IslandRhythms/notion-clone/internal/images"
	"github.com/IslandRhythms/notion-clone/internal/logging"
	"github.com/IslandRhythms/notion-clone/internal/page"
	"github.com/IslandRhythms/notion-clone/internal/qa"
	"github.com/IslandRhythms/notion-clone/internal/store"
)

// SimilarityIndex is the mirror target for page embeddings. The Qdrant index
// satisfies it; tests use fakes.
type SimilarityIndex interface {
	// Upsert mirrors a page embedding. A nil vector removes the point.
	Upsert(ctx context.Context, pageID string, vec []float32) error
	// Delete removes a page's point. Unknown points are not an error.
	Delete(ctx context.Context, pageID string) error
}

// Indexer is the write path of the page store: extract, embed, persist,
// mirror. It also serves reads with the access checks applied.
type Indexer struct {
	pages  store.PageStore
	embed  qa.Embedder
	mirror SimilarityIndex // optional
	images *images.Store   // optional
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithSimilarityIndex mirrors embeddings into idx on every save and delete.
func WithSimilarityIndex(idx SimilarityIndex) Option {
	return func(ix *Indexer) { ix.mirror = idx }
}

// WithImageStore removes a page's image directory when the page is deleted.
func WithImageStore(st *images.Store) Option {
	return func(ix *Indexer) { ix.images = st }
}

// New constructs an Indexer over the given store and embedder.
func New(pages store.PageStore, embed qa.Embedder, opts ...Option) (*Indexer, error) {
	if pages == nil {
		return nil, fmt.Errorf("indexer: page store must not be nil")
	}
	if embed == nil {
		return nil, fmt.Errorf("indexer: embedder must not be nil")
	}
	ix := &Indexer{pages: pages, embed: embed}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Save persists p on behalf of callerID, recomputing the embedding from the
// current blocks. A page without an ID is created (owned by callerID when one
// is supplied); a page with an ID replaces the stored blocks after the access
// check. A page whose blocks yield no text is stored without an embedding.
// Embedding failure fails the save: blocks and embedding change together or
// not at all.
func (ix *Indexer) Save(ctx context.Context, callerID string, p *page.Page) (*page.Page, error) {
	if p == nil {
		return nil, fmt.Errorf("indexer: page must not be nil")
	}

	next := *p
	if next.ID == "" {
		next.CreatorID = callerID
	} else {
		existing, err := ix.pages.FindByID(ctx, next.ID)
		switch {
		case errors.Is(err, page.ErrNotFound):
			// Client-supplied identifier for a new page.
			next.CreatorID = callerID
		case err != nil:
			return nil, err
		default:
			if !existing.CanAccess(callerID) {
				return nil, page.ErrForbidden
			}
			// Ownership is fixed at creation; an update never reassigns it.
			next.CreatorID = existing.CreatorID
			next.CreatedAt = existing.CreatedAt
		}
	}

	text := page.Extract(next.Blocks)
	if text == "" {
		next.Embedding = nil
	} else {
		vecs, err := ix.embed.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		next.Embedding = vecs[0]
	}

	saved, err := ix.pages.Save(ctx, &next)
	if err != nil {
		return nil, err
	}

	if ix.mirror != nil {
		if err := ix.mirror.Upsert(ctx, saved.ID, saved.Embedding); err != nil {
			return nil, fmt.Errorf("%w: page %s saved but not mirrored to the similarity index: %v",
				page.ErrInconsistentUpdate, saved.ID, err)
		}
	}
	return saved, nil
}

// Get returns the page if callerID may read it.
func (ix *Indexer) Get(ctx context.Context, callerID, id string) (*page.Page, error) {
	p, err := ix.pages.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(callerID) {
		return nil, page.ErrForbidden
	}
	return p, nil
}

// List returns the identifiers of the pages owned by callerID.
func (ix *Indexer) List(ctx context.Context, callerID string) ([]string, error) {
	return ix.pages.ListByCreator(ctx, callerID)
}

// Delete removes the page after the access check, then cascades: the
// similarity-index point and the page's image directory. The image cleanup is
// best-effort; a mirror failure after a successful delete is reported as an
// inconsistent update.
func (ix *Indexer) Delete(ctx context.Context, callerID, id string) error {
	p, err := ix.pages.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.CanAccess(callerID) {
		return page.ErrForbidden
	}

	if err := ix.pages.Delete(ctx, id); err != nil {
		return err
	}

	if ix.images != nil {
		ix.images.RemovePage(ctx, id)
	}
	if ix.mirror != nil {
		if err := ix.mirror.Delete(ctx, id); err != nil {
			return fmt.Errorf("%w: page %s deleted but not removed from the similarity index: %v",
				page.ErrInconsistentUpdate, id, err)
		}
	}
	return nil
}

// Reindex recomputes the embedding of every page owned by callerID from its
// stored blocks. Used after switching embedding models. Failures on a single
// page abort the pass so a partial reindex is visible to the operator.
func (ix *Indexer) Reindex(ctx context.Context, callerID string) (int, error) {
	ids, err := ix.pages.ListByCreator(ctx, callerID)
	if err != nil {
		return 0, err
	}

	log := logging.FromContext(ctx)
	count := 0
	for _, id := range ids {
		p, err := ix.pages.FindByID(ctx, id)
		if errors.Is(err, page.ErrNotFound) {
			// Deleted since the listing; nothing to reindex.
			continue
		}
		if err != nil {
			return count, err
		}
		if _, err := ix.Save(ctx, callerID, p); err != nil {
			return count, fmt.Errorf("indexer: reindex %s: %w", id, err)
		}
		count++
		log.Debug("reindexed page", slog.String("page_id", id))
	}
	return count, nil
}
