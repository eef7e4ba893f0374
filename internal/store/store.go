// Package store provides the SQLite-backed page store. It persists pages
// (content blocks, optional owner, derived embedding vector) together with the
// owner's page-set bookkeeping, and serves brute-force cosine similarity
// search over the stored embeddings.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/IslandRhythms/notion-clone/internal/page"
)

// PageStore persists and retrieves pages. Implementations must be safe for
// concurrent use. Concurrent saves of the same page identifier are not
// coordinated: the last write to complete wins.
type PageStore interface {
	// Save upserts the page, assigning an identifier on first save and
	// preserving it thereafter. The page row and the owner's page set are
	// written in a single transaction: a save never leaves one side updated
	// and the other not.
	Save(ctx context.Context, p *page.Page) (*page.Page, error)
	// FindByID returns the page, or page.ErrNotFound.
	FindByID(ctx context.Context, id string) (*page.Page, error)
	// ListByCreator returns the identifiers of the pages owned by userID.
	// Order is not significant.
	ListByCreator(ctx context.Context, userID string) ([]string, error)
	// Delete removes the page and its owner-set entry in a single
	// transaction. Returns page.ErrNotFound when no such page exists.
	Delete(ctx context.Context, id string) error
	// TopSimilar implements qa.Searcher over the stored embeddings.
	TopSimilar(ctx context.Context, vec []float32, k int) ([]page.Page, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a PageStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the page database.
// It resolves to ~/.notion/pages.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".notion")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "pages.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS pages (
    id          TEXT PRIMARY KEY,
    blocks      TEXT    NOT NULL,  -- JSON array of content blocks, order preserved
    creator_id  TEXT    NOT NULL DEFAULT '',
    embedding   BLOB,              -- little-endian float32 vector; NULL when no extractable text
    created_at  INTEGER NOT NULL,  -- Unix nanoseconds
    updated_at  INTEGER NOT NULL   -- Unix nanoseconds; deterministic similarity tie-breaker
);
CREATE TABLE IF NOT EXISTS user_pages (
    user_id  TEXT NOT NULL,
    page_id  TEXT NOT NULL,
    PRIMARY KEY (user_id, page_id)
);
CREATE INDEX IF NOT EXISTS idx_pages_creator ON pages (creator_id);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Save upserts the page and maintains the owner's page set in one transaction.
// Blocks, embedding, and timestamps always update together or not at all.
func (s *SQLiteStore) Save(ctx context.Context, p *page.Page) (*page.Page, error) {
	saved := *p
	now := time.Now()
	saved.UpdatedAt = now
	if saved.ID == "" {
		saved.ID = uuid.NewString()
		saved.CreatedAt = now
	}

	blocks, err := json.Marshal(saved.Blocks)
	if err != nil {
		return nil, fmt.Errorf("store: marshal blocks: %w", err)
	}
	blob := EncodeEmbedding(saved.Embedding)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin save: %w", err)
	}
	defer tx.Rollback()

	// Preserve created_at across updates; the excluded=... form keeps the
	// upsert a single statement.
	const q = `
INSERT INTO pages (id, blocks, creator_id, embedding, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    blocks     = excluded.blocks,
    embedding  = excluded.embedding,
    updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, q,
		saved.ID, string(blocks), saved.CreatorID, blob,
		now.UnixNano(), now.UnixNano(),
	); err != nil {
		return nil, fmt.Errorf("store: save page: %w", err)
	}

	if saved.CreatorID != "" {
		const link = `INSERT OR IGNORE INTO user_pages (user_id, page_id) VALUES (?, ?)`
		if _, err := tx.ExecContext(ctx, link, saved.CreatorID, saved.ID); err != nil {
			return nil, fmt.Errorf("store: %w: link owner: %v", page.ErrInconsistentUpdate, err)
		}
	}

	// created_at of an updated row is the stored value, not now.
	var createdNs int64
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM pages WHERE id = ?`, saved.ID).Scan(&createdNs); err != nil {
		return nil, fmt.Errorf("store: read created_at: %w", err)
	}
	saved.CreatedAt = time.Unix(0, createdNs)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit save: %w", err)
	}
	return &saved, nil
}

// FindByID returns the page with the given identifier, or page.ErrNotFound.
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*page.Page, error) {
	const q = `SELECT id, blocks, creator_id, embedding, created_at, updated_at FROM pages WHERE id = ?`
	p, err := scanPage(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: page %s: %w", id, page.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: find page %s: %w", id, err)
	}
	return p, nil
}

// ListByCreator returns the identifiers of the pages owned by userID.
func (s *SQLiteStore) ListByCreator(ctx context.Context, userID string) ([]string, error) {
	const q = `SELECT page_id FROM user_pages WHERE user_id = ?`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list pages for %s: %w", userID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan page id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list pages for %s: %w", userID, err)
	}
	return ids, nil
}

// Delete removes the page row and its owner-set entry in one transaction.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete page %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete page %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("store: page %s: %w", id, page.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_pages WHERE page_id = ?`, id); err != nil {
		return fmt.Errorf("store: %w: unlink owner of %s: %v", page.ErrInconsistentUpdate, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit delete: %w", err)
	}
	return nil
}

// TopSimilar returns up to k pages ranked by descending cosine similarity to
// vec. Pages with a NULL embedding are never candidates. Equal scores are
// ordered by most recent UpdatedAt, then by id, so results are deterministic.
func (s *SQLiteStore) TopSimilar(ctx context.Context, vec []float32, k int) ([]page.Page, error) {
	if k <= 0 || len(vec) == 0 {
		return nil, nil
	}

	const q = `SELECT id, blocks, creator_id, embedding, created_at, updated_at
FROM pages WHERE embedding IS NOT NULL`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: similarity query: %w", err)
	}
	defer rows.Close()

	type scored struct {
		p     page.Page
		score float64
	}
	var candidates []scored
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan candidate: %w", err)
		}
		sim, err := CosineSimilarity(vec, p.Embedding)
		if err != nil {
			// Dimension mismatch or zero magnitude: the row cannot be ranked
			// against this query, skip it.
			continue
		}
		candidates = append(candidates, scored{p: *p, score: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: similarity query: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if !candidates[i].p.UpdatedAt.Equal(candidates[j].p.UpdatedAt) {
			return candidates[i].p.UpdatedAt.After(candidates[j].p.UpdatedAt)
		}
		return candidates[i].p.ID < candidates[j].p.ID
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]page.Page, 0, k)
	for _, c := range candidates[:k] {
		out = append(out, c.p)
	}
	return out, nil
}

// Ping reports whether the database is reachable. Used by readiness probes.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPage decodes one pages row into a page.Page.
func scanPage(r rowScanner) (*page.Page, error) {
	var (
		p         page.Page
		blocks    string
		blob      []byte
		createdNs int64
		updatedNs int64
	)
	if err := r.Scan(&p.ID, &blocks, &p.CreatorID, &blob, &createdNs, &updatedNs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(blocks), &p.Blocks); err != nil {
		return nil, fmt.Errorf("unmarshal blocks: %w", err)
	}
	vec, err := DecodeEmbedding(blob)
	if err != nil {
		return nil, err
	}
	p.Embedding = vec
	p.CreatedAt = time.Unix(0, createdNs)
	p.UpdatedAt = time.Unix(0, updatedNs)
	return &p, nil
}
