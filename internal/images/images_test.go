package images

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func Test_Store_RemovePage(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := NewStore(root)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	dir := filepath.Join(root, "page-1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.png"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	s.RemovePage(context.Background(), "page-1")
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("page directory should be gone, stat err = %v", err)
	}

	// Removing a page with no images is a no-op.
	s.RemovePage(context.Background(), "never-existed")
}

func Test_Store_RemovePage_RefusesTraversal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := NewStore(filepath.Join(root, "images"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	canary := filepath.Join(root, "keep.txt")
	if err := os.WriteFile(canary, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"", "..", "../", filepath.Join("..", "keep.txt")} {
		s.RemovePage(context.Background(), id)
	}
	if _, err := os.Stat(canary); err != nil {
		t.Errorf("file outside the image root was removed: %v", err)
	}
	if _, err := os.Stat(s.Dir()); err != nil {
		t.Errorf("image root itself was removed: %v", err)
	}
}

func Test_NewStore_EmptyDir(t *testing.T) {
	t.Parallel()
	if _, err := NewStore(""); err == nil {
		t.Fatal("NewStore(\"\") expected error")
	}
}
