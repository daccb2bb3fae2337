package candidates

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gradescout/gradescout/internal/metrics"
	"github.com/gradescout/gradescout/internal/models"
)

const cacheFilename = "profitable_candidates_cache.json"

// rebuildParams are the discovery thresholds behind the materialized
// list. Looser than the presentation defaults on purpose: the file
// holds the superset and the filter endpoint narrows it per request.
var rebuildParams = Params{
	PriceDelta: 40,
	Psa10Min:   80,
	MinNetGain: 0,
}

// FileCache materializes the assembled candidate list as a JSON file
// so serving reads never touch the discovery query. The file is
// rebuilt on demand when missing and invalidated by the update cycle.
type FileCache struct {
	db  *gorm.DB
	dir string

	mu sync.Mutex
}

func NewFileCache(db *gorm.DB, dir string) *FileCache {
	return &FileCache{db: db, dir: dir}
}

func (f *FileCache) path() string {
	return filepath.Join(f.dir, cacheFilename)
}

// Get returns the materialized list, rebuilding it when the file is
// missing or unreadable.
func (f *FileCache) Get() ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path())
	if err == nil {
		var cards []models.Candidate
		if err := json.Unmarshal(raw, &cards); err == nil {
			return cards, nil
		}
		log.Printf("candidates: corrupt cache file, rebuilding: %v", err)
	}

	return f.rebuild()
}

// Refresh rebuilds the materialized list unconditionally.
func (f *FileCache) Refresh() ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rebuild()
}

// Invalidate deletes the cache file; the next Get rebuilds it.
func (f *FileCache) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path()); err != nil && !os.IsNotExist(err) {
		log.Printf("candidates: failed to delete cache file: %v", err)
	}
}

// rebuild runs the discovery query and atomically replaces the file.
// Callers must hold the mutex.
func (f *FileCache) rebuild() ([]models.Candidate, error) {
	cards, err := FindProfitable(f.db, rebuildParams)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild candidate cache: %w", err)
	}

	raw, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, err
	}
	tmp := filepath.Join(f.dir, uuid.New().String()+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, f.path()); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	metrics.CandidateCacheRebuilds.Inc()
	metrics.CandidateCount.Set(float64(len(cards)))
	log.Printf("candidates: rebuilt cache with %d candidates", len(cards))
	return cards, nil
}
