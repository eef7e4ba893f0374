package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/IslandRhythms/notion-clone/internal/embedder"
	"github.com/IslandRhythms/notion-clone/internal/images"
	"github.com/IslandRhythms/notion-clone/internal/indexer"
	"github.com/IslandRhythms/notion-clone/internal/qa"
	"github.com/IslandRhythms/notion-clone/internal/search"
	"github.com/IslandRhythms/notion-clone/internal/store"
)

// components bundles the storage and indexing pipeline shared by the serve,
// ask, and reindex commands.
type components struct {
	Store    *store.SQLiteStore
	Embedder qa.Embedder

	// Index is the optional Qdrant mirror. Nil when QDRANT_HOST is unset;
	// the store's brute-force search serves retrieval instead.
	Index *search.QdrantIndex

	// Searcher answers top-K similarity queries: the Qdrant hydrator when a
	// mirror is configured, otherwise the store itself.
	Searcher qa.Searcher

	Images  *images.Store
	Indexer *indexer.Indexer
}

// buildComponents opens the page store, embedder, optional Qdrant index, and
// image store, and wires them into an indexer. The returned cleanup func
// closes everything and must be called (even on error paths it is non-nil).
func buildComponents(ctx context.Context, log *slog.Logger) (*components, func(), error) {
	cleanup := func() {}

	dbPath := os.Getenv("NOTION_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, cleanup, fmt.Errorf("resolve default db path: %w", err)
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, cleanup, fmt.Errorf("open page store: %w", err)
	}
	cleanup = func() { _ = st.Close() }
	log.Info("page store opened", slog.String("path", dbPath))

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, cleanup, fmt.Errorf("initialise embedder: %w", err)
	}

	comps := &components{
		Store:    st,
		Embedder: emb,
		Searcher: st,
	}

	opts := []indexer.Option{}

	if host := os.Getenv("QDRANT_HOST"); host != "" {
		idx, err := search.NewQdrantIndex(ctx, &search.QdrantConfig{
			Host:       host,
			Port:       envInt("QDRANT_PORT", 6334),
			Collection: envOrDefault("QDRANT_COLLECTION", "notion_pages"),
			VectorSize: uint64(embedder.DefaultDimensions(envOrDefault("EMBEDDING_PROVIDER", "openai"))),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_USE_TLS") == "true",
		})
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("connect to qdrant: %w", err)
		}
		prev := cleanup
		cleanup = func() {
			_ = idx.Close()
			prev()
		}

		hydrator, err := search.NewHydrator(idx, st)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("build qdrant searcher: %w", err)
		}
		comps.Index = idx
		comps.Searcher = hydrator
		opts = append(opts, indexer.WithSimilarityIndex(idx))
		log.Info("qdrant index enabled", slog.String("host", host))
	}

	imagesDir := os.Getenv("NOTION_IMAGES_DIR")
	if imagesDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Warn("images: could not resolve home dir, image cleanup disabled", slog.Any("error", err))
		} else {
			imagesDir = filepath.Join(home, ".notion", "images")
		}
	}
	if imagesDir != "" {
		imgStore, err := images.NewStore(imagesDir)
		if err != nil {
			log.Warn("images: could not open image store, image cleanup disabled", slog.Any("error", err))
		} else {
			comps.Images = imgStore
			opts = append(opts, indexer.WithImageStore(imgStore))
		}
	}

	ix, err := indexer.New(st, emb, opts...)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("build indexer: %w", err)
	}
	comps.Indexer = ix

	return comps, cleanup, nil
}

// envOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
