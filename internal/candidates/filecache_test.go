package candidates

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileCacheGetRebuildsWhenMissing(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	fc := NewFileCache(db, dir)

	cards, err := fc.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cards == nil {
		t.Error("Get returned nil, want empty slice")
	}

	if _, err := os.Stat(filepath.Join(dir, cacheFilename)); err != nil {
		t.Errorf("cache file not materialized: %v", err)
	}
}

func TestFileCacheGetServesExistingFile(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	fc := NewFileCache(db, dir)

	// A handcrafted file is served as-is, no rebuild.
	canned := `[{"id": 999, "name": "Canned"}]`
	if err := os.WriteFile(filepath.Join(dir, cacheFilename), []byte(canned), 0o644); err != nil {
		t.Fatal(err)
	}

	cards, err := fc.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != 999 {
		t.Errorf("cards = %+v, want the canned entry", cards)
	}
}

func TestFileCacheCorruptFileIsRebuilt(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	fc := NewFileCache(db, dir)

	if err := os.WriteFile(filepath.Join(dir, cacheFilename), []byte(`{broken`), 0o644); err != nil {
		t.Fatal(err)
	}

	cards, err := fc.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("cards = %+v, want empty rebuild", cards)
	}
}

func TestFileCacheInvalidate(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	fc := NewFileCache(db, dir)

	if _, err := fc.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	fc.Invalidate()

	if _, err := os.Stat(filepath.Join(dir, cacheFilename)); !os.IsNotExist(err) {
		t.Error("cache file still exists after Invalidate")
	}

	// Invalidating twice is fine.
	fc.Invalidate()
}
