// Package search provides the optional Qdrant-backed similarity index.
// Page embeddings are mirrored into a Qdrant collection on save and queried
// at question time; the SQLite store remains the source of truth for page
// content, so query results are hydrated back through it. When Qdrant is not
// configured the store's own brute-force search serves retrieval instead.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/IslandRhythms/notion-clone/internal/page"
	"github.com/IslandRhythms/notion-clone/internal/store"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex mirrors page embeddings into a Qdrant collection keyed by page id.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *QdrantConfig
}

// NewQdrantIndex creates a QdrantIndex, ensuring the target collection exists
// (creating it with cosine distance if necessary).
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	ix := &QdrantIndex{client: client, cfg: cfg}
	if err := ix.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return ix, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (ix *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := ix.client.CollectionExists(ctx, ix.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = ix.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: ix.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     ix.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", ix.cfg.Collection, err)
	}
	return nil
}

// Upsert mirrors one page's embedding into the collection. A nil vector
// removes the point instead: pages without extractable text must never be
// similarity-search candidates.
func (ix *QdrantIndex) Upsert(ctx context.Context, pageID string, vec []float32) error {
	if len(vec) == 0 {
		return ix.Delete(ctx, pageID)
	}

	_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ix.cfg.Collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pageID),
			Vectors: qdrant.NewVectors(vec...),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %s: %w", pageID, err)
	}
	return nil
}

// Delete removes a page's point from the collection. Deleting a point that
// was never indexed is not an error.
func (ix *QdrantIndex) Delete(ctx context.Context, pageID string) error {
	_, err := ix.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: ix.cfg.Collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pageID)),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete %s: %w", pageID, err)
	}
	return nil
}

// Query returns up to k page ids ranked by descending cosine similarity.
func (ix *QdrantIndex) Query(ctx context.Context, vec []float32, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	limit := uint64(k)
	results, err := ix.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ix.cfg.Collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query: %w", err)
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Id.GetUuid())
	}
	return ids, nil
}

// Ping calls the Qdrant HealthCheck RPC. Used by readiness probes.
func (ix *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := ix.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (ix *QdrantIndex) Close() error {
	return ix.client.Close()
}

// Hydrator implements qa.Searcher by querying the Qdrant index for ranked
// page ids and loading the full pages from the store. Index entries whose
// page has since been deleted are skipped rather than surfaced.
type Hydrator struct {
	// index is the Qdrant similarity index.
	index *QdrantIndex

	// pages is the source of truth for page content.
	pages store.PageStore
}

// NewHydrator constructs a Hydrator from the given index and page store.
func NewHydrator(index *QdrantIndex, pages store.PageStore) (*Hydrator, error) {
	if index == nil {
		return nil, fmt.Errorf("search: index must not be nil")
	}
	if pages == nil {
		return nil, fmt.Errorf("search: page store must not be nil")
	}
	return &Hydrator{index: index, pages: pages}, nil
}

// TopSimilar returns up to k pages ranked by the index, hydrated from the store.
func (h *Hydrator) TopSimilar(ctx context.Context, vec []float32, k int) ([]page.Page, error) {
	ids, err := h.index.Query(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	out := make([]page.Page, 0, len(ids))
	for _, id := range ids {
		p, err := h.pages.FindByID(ctx, id)
		if errors.Is(err, page.ErrNotFound) {
			// Stale index entry; the page was deleted after indexing.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
