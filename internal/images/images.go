// Package images manages the on-disk image directories backing image blocks.
// Uploads land under <root>/<pageID>/ (written by the outer web layer);
// deleting a page removes the whole directory. Cleanup is best-effort: a
// failed removal is logged and never blocks the page deletion itself.
package images

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IslandRhythms/notion-clone/internal/logging"
)

// Store locates per-page image directories under a root directory.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("images: root directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("images: failed to create root directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// Dir returns the root directory of the image store.
func (s *Store) Dir() string {
	return s.root
}

// RemovePage deletes the image directory for pageID. Failures are logged and
// swallowed: orphaned image files are an acceptable cost, a blocked page
// deletion is not.
func (s *Store) RemovePage(ctx context.Context, pageID string) {
	// Guard against removing the root itself or escaping it.
	if pageID == "" || pageID != filepath.Base(pageID) {
		return
	}
	dir := filepath.Join(s.root, pageID)
	if err := os.RemoveAll(dir); err != nil {
		logging.FromContext(ctx).Warn("images: failed to remove page image directory",
			slog.String("page_id", pageID),
			slog.Any("error", err),
		)
	}
}
