package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestGateway(t *testing.T) (*Gateway, string) {
	t.Helper()
	dir := t.TempDir()
	g, err := NewGateway(dir)
	if err != nil {
		t.Fatalf("NewGateway failed: %v", err)
	}
	return g, dir
}

// countingFetch returns a FetchFunc that counts invocations.
func countingFetch(data string, err error) (FetchFunc, *int) {
	calls := new(int)
	return func(ctx context.Context) ([]byte, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return []byte(data), nil
	}, calls
}

func TestResolvePreferCacheFetchesOnceAndPersists(t *testing.T) {
	g, dir := newTestGateway(t)
	fetch, calls := countingFetch(`[1, 2, 3]`, nil)

	env := g.Resolve(context.Background(), "k", fetch, PreferCache)
	if !env.HasData() {
		t.Fatal("first resolve returned no data")
	}
	if env.UpdatedDate == "" {
		t.Error("fetched envelope missing freshness stamp")
	}

	// Second resolve is served from the snapshot.
	env2 := g.Resolve(context.Background(), "k", fetch, PreferCache)
	if !env2.HasData() {
		t.Fatal("second resolve returned no data")
	}
	if *calls != 1 {
		t.Errorf("fetch called %d times, want 1", *calls)
	}

	if _, err := os.Stat(filepath.Join(dir, "k.json")); err != nil {
		t.Errorf("snapshot file not persisted: %v", err)
	}
}

func TestResolveCacheOnlyNeverFetches(t *testing.T) {
	g, _ := newTestGateway(t)
	fetch, calls := countingFetch(`[1]`, nil)

	env := g.Resolve(context.Background(), "missing", fetch, CacheOnly)
	if env.HasData() {
		t.Error("cache-only miss returned data")
	}
	if *calls != 0 {
		t.Errorf("fetch called %d times, want 0", *calls)
	}
}

func TestResolveForceNetworkSkipsSnapshot(t *testing.T) {
	g, _ := newTestGateway(t)

	first, _ := countingFetch(`"old"`, nil)
	g.Resolve(context.Background(), "k", first, PreferCache)

	second, calls := countingFetch(`"new"`, nil)
	env := g.Resolve(context.Background(), "k", second, ForceNetwork)
	if *calls != 1 {
		t.Fatalf("fetch called %d times, want 1", *calls)
	}
	if string(env.Data) != `"new"` {
		t.Errorf("data = %s, want \"new\"", env.Data)
	}

	// The new payload replaced the snapshot.
	env2 := g.Resolve(context.Background(), "k", second, CacheOnly)
	if string(env2.Data) != `"new"` {
		t.Errorf("snapshot data = %s, want \"new\"", env2.Data)
	}
}

func TestResolveForceRefreshWithCacheOnlyShortCircuits(t *testing.T) {
	g, dir := newTestGateway(t)

	fetch, _ := countingFetch(`"x"`, nil)
	g.Resolve(context.Background(), "k", fetch, PreferCache)

	fetch2, calls := countingFetch(`"y"`, nil)
	env := g.Resolve(context.Background(), "k", fetch2, ForceRefresh|CacheOnly)
	if env.HasData() {
		t.Error("expected no data after refresh+cache-only")
	}
	if *calls != 0 {
		t.Errorf("fetch called %d times, want 0", *calls)
	}
	if _, err := os.Stat(filepath.Join(dir, "k.json")); !os.IsNotExist(err) {
		t.Error("snapshot should have been deleted")
	}
}

func TestResolveFetchFailureIsNoData(t *testing.T) {
	g, _ := newTestGateway(t)
	fetch, _ := countingFetch("", errors.New("upstream down"))

	env := g.Resolve(context.Background(), "k", fetch, PreferCache)
	if env == nil {
		t.Fatal("Resolve returned nil")
	}
	if env.HasData() {
		t.Error("failed fetch returned data")
	}
}

func TestResolveCorruptSnapshotIsAMiss(t *testing.T) {
	g, dir := newTestGateway(t)

	if err := os.WriteFile(filepath.Join(dir, "k.json"), []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	fetch, calls := countingFetch(`"fresh"`, nil)
	env := g.Resolve(context.Background(), "k", fetch, PreferCache)
	if *calls != 1 {
		t.Errorf("fetch called %d times, want 1", *calls)
	}
	if string(env.Data) != `"fresh"` {
		t.Errorf("data = %s, want \"fresh\"", env.Data)
	}
}

func TestResolveRestampsLegacySnapshot(t *testing.T) {
	g, dir := newTestGateway(t)

	// A legacy snapshot without a freshness stamp gets one derived
	// from the file's mtime.
	if err := os.WriteFile(filepath.Join(dir, "k.json"), []byte(`{"data": [1, 2]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	fetch, calls := countingFetch("", nil)
	env := g.Resolve(context.Background(), "k", fetch, PreferCache)
	if *calls != 0 {
		t.Errorf("fetch called %d times, want 0", *calls)
	}
	if !env.HasData() {
		t.Fatal("legacy snapshot not served")
	}
	if env.UpdatedDate == "" {
		t.Error("legacy snapshot not re-stamped")
	}

	// The re-stamp is persisted.
	raw, err := os.ReadFile(filepath.Join(dir, "k.json"))
	if err != nil {
		t.Fatal(err)
	}
	var onDisk Envelope
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk.UpdatedDate == "" {
		t.Error("re-stamp not written back to disk")
	}
}

func TestDelete(t *testing.T) {
	g, dir := newTestGateway(t)

	fetch, _ := countingFetch(`"x"`, nil)
	g.Resolve(context.Background(), "k", fetch, PreferCache)

	g.Delete("k")

	if _, err := os.Stat(filepath.Join(dir, "k.json")); !os.IsNotExist(err) {
		t.Error("snapshot file still exists after Delete")
	}
	env := g.Resolve(context.Background(), "k", fetch, CacheOnly)
	if env.HasData() {
		t.Error("deleted snapshot still served")
	}
}

func TestEnvelopeHasData(t *testing.T) {
	tests := []struct {
		name string
		env  *Envelope
		want bool
	}{
		{"nil envelope", nil, false},
		{"empty", &Envelope{}, false},
		{"json null", &Envelope{Data: json.RawMessage(`null`)}, false},
		{"payload", &Envelope{Data: json.RawMessage(`[]`)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.env.HasData(); got != tt.want {
				t.Errorf("HasData() = %v, want %v", got, tt.want)
			}
		})
	}
}
