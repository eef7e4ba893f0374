package server

import (
	"context"
	"fmt"

	"github.com/IslandRhythms/notion-clone/internal/search"
	"github.com/IslandRhythms/notion-clone/internal/store"
)

// StorePinger probes the SQLite page store. It satisfies the Pinger
// interface and is used by GET /api/ready.
type StorePinger struct {
	// store is the page store to probe.
	store *store.SQLiteStore
}

// NewStorePinger constructs a StorePinger for the given store.
func NewStorePinger(s *store.SQLiteStore) *StorePinger {
	return &StorePinger{store: s}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "store" }

// Ping round-trips the database connection.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// QdrantPinger probes the Qdrant similarity index using its native
// HealthCheck RPC. It satisfies the Pinger interface and is used by
// GET /api/ready.
type QdrantPinger struct {
	// index is the Qdrant index to probe.
	index *search.QdrantIndex
}

// NewQdrantPinger constructs a QdrantPinger for the given index.
func NewQdrantPinger(index *search.QdrantIndex) *QdrantPinger {
	return &QdrantPinger{index: index}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if err := p.index.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
