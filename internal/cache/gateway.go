// Package cache implements the snapshot gateway between logical
// queries and the upstream API. Every successful live fetch persists a
// timestamped JSON snapshot keyed by a deterministic name derived from
// the logical query, so the rest of the system can be replayed from
// disk without network access.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gradescout/gradescout/internal/metrics"
)

const (
	// TimeLayout is the timestamp format used in snapshot envelopes.
	TimeLayout = "2006-01-02 15:04:05"

	// Snapshots older than this are pruned whenever a new one is written.
	maxSnapshotAge = 60 * 24 * time.Hour

	hotCacheSize = 256
)

// Mode controls how Resolve balances the snapshot store against the
// network. Flags combine: ForceRefresh|CacheOnly deletes the snapshot
// and short-circuits to "no data" without fetching.
type Mode uint8

const (
	// PreferCache returns the snapshot when present, else fetches live.
	PreferCache Mode = 0
	// CacheOnly never fetches; a missing snapshot yields "no data".
	CacheOnly Mode = 1 << iota
	// ForceNetwork skips the snapshot read and always fetches live.
	ForceNetwork
	// ForceRefresh deletes any existing snapshot before proceeding.
	ForceRefresh
)

// FetchFunc performs the live fetch for a logical query.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Envelope wraps every payload with its freshness stamp. Data is nil
// for the "no data" sentinel: the query has no answer yet, which
// callers must treat as unknown, not empty.
type Envelope struct {
	Data        json.RawMessage `json:"data"`
	UpdatedDate string          `json:"updated_date"`
}

// HasData reports whether the envelope carries a payload.
func (e *Envelope) HasData() bool {
	return e != nil && len(e.Data) > 0 && string(e.Data) != "null"
}

// Gateway resolves logical queries against a snapshot directory with
// an LRU layer in front of the files.
type Gateway struct {
	dir string
	hot *lru.Cache[string, *Envelope]
}

// NewGateway creates the snapshot directory if needed.
func NewGateway(dir string) (*Gateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	hot, err := lru.New[string, *Envelope](hotCacheSize)
	if err != nil {
		return nil, err
	}
	return &Gateway{dir: dir, hot: hot}, nil
}

// Resolve is a total function: fetch failures and cache misses in
// cache-only mode both come back as a "no data" envelope, never as an
// error the caller has to unwind.
func (g *Gateway) Resolve(ctx context.Context, key string, fetch FetchFunc, mode Mode) *Envelope {
	if mode&ForceRefresh != 0 {
		g.Delete(key)
	}

	if mode&(ForceNetwork|ForceRefresh) == 0 {
		if env := g.load(key); env != nil {
			metrics.CacheHitsTotal.Inc()
			return env
		}
		metrics.CacheMissesTotal.Inc()
	}

	if mode&CacheOnly != 0 {
		log.Printf("cache: cache-only miss for %q", key)
		return &Envelope{}
	}

	log.Printf("cache: fetching live data for %q", key)
	data, err := fetch(ctx)
	if err != nil {
		log.Printf("cache: fetch for %q failed: %v", key, err)
		return &Envelope{}
	}

	env := &Envelope{
		Data:        json.RawMessage(data),
		UpdatedDate: time.Now().Format(TimeLayout),
	}
	if err := g.store(key, env); err != nil {
		log.Printf("cache: failed to persist snapshot %q: %v", key, err)
	}
	return env
}

// Delete removes a snapshot and its hot-cache entry.
func (g *Gateway) Delete(key string) {
	g.hot.Remove(key)
	path := g.path(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("cache: failed to delete snapshot %q: %v", key, err)
	}
}

func (g *Gateway) path(key string) string {
	return filepath.Join(g.dir, key+".json")
}

// load returns nil on a miss. Corrupt snapshots count as misses so the
// next fetch overwrites them. Envelopes missing a freshness stamp are
// stamped from the file's modification time and re-persisted.
func (g *Gateway) load(key string) *Envelope {
	if env, ok := g.hot.Get(key); ok {
		return env
	}

	path := g.path(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("cache: corrupt snapshot %q treated as miss: %v", key, err)
		return nil
	}

	if env.UpdatedDate == "" {
		stamp := time.Now()
		if info, err := os.Stat(path); err == nil {
			stamp = info.ModTime()
		}
		env.UpdatedDate = stamp.Format(TimeLayout)
		if err := g.store(key, &env); err != nil {
			log.Printf("cache: failed to re-stamp snapshot %q: %v", key, err)
		}
	}

	g.hot.Add(key, &env)
	return &env
}

// store writes the envelope atomically: a uuid-named temp file in the
// same directory, then a rename over the target.
func (g *Gateway) store(key string, env *Envelope) error {
	g.pruneOld()

	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(g.dir, uuid.New().String()+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, g.path(key)); err != nil {
		os.Remove(tmp)
		return err
	}

	g.hot.Add(key, env)
	return nil
}

// pruneOld removes snapshots past the retention window.
func (g *Gateway) pruneOld() {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxSnapshotAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(g.dir, entry.Name())); err == nil {
				log.Printf("cache: pruned stale snapshot %s", entry.Name())
			}
		}
	}
}
