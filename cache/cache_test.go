package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dailyyoga/cachekit/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingRecorder struct {
	hits, misses, evictions, invalidations atomic.Int64
}

func (r *countingRecorder) Hit()             { r.hits.Add(1) }
func (r *countingRecorder) Miss()            { r.misses.Add(1) }
func (r *countingRecorder) Evict(n int)      { r.evictions.Add(int64(n)) }
func (r *countingRecorder) Invalidate(n int) { r.invalidations.Add(int64(n)) }

// stores builds one of each store kind sharing the given clock
func stores(t *testing.T, clock *fakeClock, ttl time.Duration) map[string]Cache {
	t.Helper()
	log := logger.NewNop()

	mem, err := NewMemory(log, &MemoryConfig{Name: "mem", DefaultTTL: ttl}, withClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	lru, err := NewLRU(log, &LRUConfig{Name: "lru", MaxEntries: 100, DefaultTTL: ttl}, withClock(clock.Now))
	if err != nil {
		t.Fatalf("NewLRU failed: %v", err)
	}
	return map[string]Cache{"memory": mem, "lru": lru}
}

type counter struct {
	calls atomic.Int32
}

func (f *counter) fetch(v any) Fetcher {
	return func(ctx context.Context) (any, error) {
		f.calls.Add(1)
		return v, nil
	}
}

func keysOf(c Cache) []string {
	var keys []string
	for _, info := range c.EntryInfo() {
		keys = append(keys, info.Key)
	}
	sort.Strings(keys)
	return keys
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func fill(t *testing.T, c Cache, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if _, err := c.Get(context.Background(), k, func(ctx context.Context) (any, error) { return k, nil }); err != nil {
			t.Fatalf("Get(%q) failed: %v", k, err)
		}
	}
}

// ============ Get Tests ============

func TestGet_FetchOncePerMiss(t *testing.T) {
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			var f counter
			v, err := c.Get(context.Background(), "k", f.fetch("value"))
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if v != "value" {
				t.Errorf("expected value, got %v", v)
			}
			if f.calls.Load() != 1 {
				t.Errorf("expected 1 fetch, got %d", f.calls.Load())
			}
		})
	}
}

func TestGet_HitAvoidsRefetch(t *testing.T) {
	type vendor struct{ Name string }

	clock := newFakeClock()
	for name, c := range stores(t, clock, time.Minute) {
		t.Run(name, func(t *testing.T) {
			var f counter
			original := &vendor{Name: "acme"}

			first, _ := c.Get(context.Background(), "vendor:1", f.fetch(original))
			clock.Advance(59 * time.Second)
			second, err := c.Get(context.Background(), "vendor:1", f.fetch(&vendor{Name: "other"}))
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if f.calls.Load() != 1 {
				t.Errorf("expected 1 fetch, got %d", f.calls.Load())
			}
			if first != second || second.(*vendor) != original {
				t.Error("expected the cached pointer to be returned")
			}
		})
	}
}

func TestGet_ExpiryForcesRefetch(t *testing.T) {
	clock := newFakeClock()
	for name, c := range stores(t, clock, time.Minute) {
		t.Run(name, func(t *testing.T) {
			var f counter
			c.Get(context.Background(), "k", f.fetch("same"))
			clock.Advance(time.Minute)
			c.Get(context.Background(), "k", f.fetch("same"))
			if f.calls.Load() != 2 {
				t.Errorf("expected 2 fetches after ttl elapsed, got %d", f.calls.Load())
			}
		})
	}
}

func TestGet_CustomTTLOverridesDefault(t *testing.T) {
	clock := newFakeClock()
	for name, c := range stores(t, clock, time.Hour) {
		t.Run(name, func(t *testing.T) {
			var f counter
			c.Get(context.Background(), "short", f.fetch(1), WithTTL(100*time.Millisecond))
			clock.Advance(150 * time.Millisecond)

			// the store default would still consider the entry fresh
			c.Get(context.Background(), "short", f.fetch(1))
			if f.calls.Load() != 1 {
				t.Errorf("expected default ttl hit, got %d fetches", f.calls.Load())
			}

			c.Get(context.Background(), "short", f.fetch(1), WithTTL(100*time.Millisecond))
			if f.calls.Load() != 2 {
				t.Errorf("expected short ttl to refetch, got %d fetches", f.calls.Load())
			}
		})
	}
}

func TestGet_CustomTTLWallClock(t *testing.T) {
	c, err := NewMemory(logger.NewNop(), &MemoryConfig{DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	var f counter
	c.Get(context.Background(), "k", f.fetch("v"), WithTTL(100*time.Millisecond))
	time.Sleep(150 * time.Millisecond)
	c.Get(context.Background(), "k", f.fetch("v"), WithTTL(100*time.Millisecond))

	if f.calls.Load() != 2 {
		t.Errorf("expected 2 fetches, got %d", f.calls.Load())
	}
}

func TestGet_FetcherErrorPropagates(t *testing.T) {
	errBoom := errors.New("boom")
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(context.Background(), "k", func(ctx context.Context) (any, error) {
				return nil, errBoom
			})
			if !errors.Is(err, errBoom) {
				t.Fatalf("expected errBoom, got %v", err)
			}

			stats := c.Stats()
			if stats.Misses != 1 || stats.Size != 0 {
				t.Errorf("expected 1 miss and no entry, got %+v", stats)
			}

			var f counter
			c.Get(context.Background(), "k", f.fetch("ok"))
			if f.calls.Load() != 1 {
				t.Error("expected fetcher to run again after a failed fetch")
			}
		})
	}
}

func TestGet_NilFetcher(t *testing.T) {
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			if _, err := c.Get(context.Background(), "k", nil); !errors.Is(err, ErrNilFetcher) {
				t.Errorf("expected ErrNilFetcher, got %v", err)
			}
			if c.Stats().Lookups() != 0 {
				t.Error("nil fetcher must not move counters")
			}
		})
	}
}

func TestGet_TagsReplacedOnRecompute(t *testing.T) {
	clock := newFakeClock()
	for name, c := range stores(t, clock, time.Minute) {
		t.Run(name, func(t *testing.T) {
			var f counter
			c.Get(context.Background(), "k", f.fetch(1), WithTags("old"))
			clock.Advance(time.Minute)
			c.Get(context.Background(), "k", f.fetch(2), WithTags("new"))

			if n := c.InvalidateByTags("old"); n != 0 {
				t.Errorf("expected old tag to be gone, removed %d", n)
			}
			if n := c.InvalidateByTags("new"); n != 1 {
				t.Errorf("expected new tag to match, removed %d", n)
			}
		})
	}
}

func TestGet_ConcurrentColdMissesAllFetch(t *testing.T) {
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			const callers = 2
			var started sync.WaitGroup
			started.Add(callers)
			release := make(chan struct{})
			var calls atomic.Int32

			var done sync.WaitGroup
			results := make([]any, callers)
			for i := 0; i < callers; i++ {
				done.Add(1)
				go func(i int) {
					defer done.Done()
					results[i], _ = c.Get(context.Background(), "cold", func(ctx context.Context) (any, error) {
						calls.Add(1)
						started.Done()
						<-release
						return i, nil
					})
				}(i)
			}

			waitCh := make(chan struct{})
			go func() {
				started.Wait()
				close(waitCh)
			}()
			select {
			case <-waitCh:
			case <-time.After(2 * time.Second):
				close(release)
				t.Fatal("expected every caller to run its own fetcher")
			}
			close(release)
			done.Wait()

			if calls.Load() != callers {
				t.Errorf("expected %d fetches, got %d", callers, calls.Load())
			}
			if stats := c.Stats(); stats.Misses != callers || stats.Size != 1 {
				t.Errorf("unexpected stats %+v", stats)
			}
		})
	}
}

func TestGetAs(t *testing.T) {
	c, _ := NewMemory(logger.NewNop(), nil)
	ctx := context.Background()

	n, err := GetAs(ctx, c, "n", func(ctx context.Context) (int, error) { return 42, nil })
	if err != nil || n != 42 {
		t.Fatalf("expected 42, got %d (%v)", n, err)
	}

	if _, err := GetAs(ctx, c, "n", func(ctx context.Context) (string, error) { return "x", nil }); err == nil {
		t.Error("expected type mismatch error")
	}

	if _, err := GetAs[int](ctx, c, "nil", nil); !errors.Is(err, ErrNilFetcher) {
		t.Errorf("expected ErrNilFetcher, got %v", err)
	}
}

// ============ Invalidation Tests ============

func TestInvalidate(t *testing.T) {
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			fill(t, c, "a", "b")
			c.Invalidate("a")
			c.Invalidate("missing")
			if got := keysOf(c); !equalKeys(got, []string{"b"}) {
				t.Errorf("expected [b], got %v", got)
			}
		})
	}
}

func TestInvalidateByTags_SetIntersection(t *testing.T) {
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			var f counter
			ctx := context.Background()
			c.Get(ctx, "tag-a", f.fetch(1), WithTags("A"))
			c.Get(ctx, "tag-b", f.fetch(2), WithTags("B"))
			c.Get(ctx, "tag-ab", f.fetch(3), WithTags("A", "B"))
			c.Get(ctx, "untagged", f.fetch(4))

			if n := c.InvalidateByTags("A"); n != 2 {
				t.Errorf("expected 2 removed, got %d", n)
			}
			if got := keysOf(c); !equalKeys(got, []string{"tag-b", "untagged"}) {
				t.Errorf("expected [tag-b untagged], got %v", got)
			}
		})
	}
}

func TestInvalidateByTags_EmptyIsNoop(t *testing.T) {
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			var f counter
			c.Get(context.Background(), "x", f.fetch(1), WithTags("A"))
			fill(t, c, "y")

			if n := c.InvalidateByTags(); n != 0 {
				t.Errorf("expected nothing removed, got %d", n)
			}
			if n := c.InvalidateByTags([]string{}...); n != 0 {
				t.Errorf("expected nothing removed, got %d", n)
			}
			if c.Stats().Size != 2 {
				t.Errorf("expected 2 entries, got %d", c.Stats().Size)
			}
		})
	}
}

func TestInvalidatePattern_ExactGlob(t *testing.T) {
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			fill(t, c, "vendor:1", "vendor:2", "vendor-id:1", "product:1")

			if n := c.InvalidatePattern("vendor:*"); n != 2 {
				t.Errorf("expected 2 removed, got %d", n)
			}
			if got := keysOf(c); !equalKeys(got, []string{"product:1", "vendor-id:1"}) {
				t.Errorf("unexpected remaining keys %v", got)
			}
			if n := c.InvalidatePattern("nothing*"); n != 0 {
				t.Errorf("expected no match, got %d", n)
			}
			if n := c.InvalidatePattern("*"); n != 2 {
				t.Errorf("expected * to remove everything, got %d", n)
			}
		})
	}
}

func TestInvalidate_RecorderCounts(t *testing.T) {
	rec := &countingRecorder{}
	c, _ := NewMemory(logger.NewNop(), nil, WithRecorder(rec))
	fill(t, c, "a", "b", "c")
	c.Get(context.Background(), "a", func(ctx context.Context) (any, error) { return nil, nil })

	c.Invalidate("a")
	c.InvalidatePattern("b*")
	c.InvalidatePattern("zzz")

	if rec.misses.Load() != 3 || rec.hits.Load() != 1 {
		t.Errorf("expected 3 misses and 1 hit, got %d/%d", rec.misses.Load(), rec.hits.Load())
	}
	if rec.invalidations.Load() != 2 {
		t.Errorf("expected 2 invalidations, got %d", rec.invalidations.Load())
	}
}

// ============ Stats Tests ============

func TestStats_HitRate(t *testing.T) {
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			c.Clear()
			if rate := c.Stats().HitRate; rate != 0 {
				t.Errorf("expected 0 hit rate before any lookup, got %v", rate)
			}

			var f counter
			for i := 0; i < 3; i++ {
				c.Get(context.Background(), "k", f.fetch(i))
			}

			stats := c.Stats()
			if stats.Hits != 2 || stats.Misses != 1 {
				t.Errorf("expected hits=2 misses=1, got %+v", stats)
			}
			if stats.HitRate != 2.0/3.0 {
				t.Errorf("expected hit rate 2/3, got %v", stats.HitRate)
			}
			if stats.Size != 1 || stats.Entries != 1 {
				t.Errorf("expected size=entries=1, got %+v", stats)
			}
		})
	}
}

func TestClear_ResetsEverything(t *testing.T) {
	for name, c := range stores(t, newFakeClock(), time.Minute) {
		t.Run(name, func(t *testing.T) {
			fill(t, c, "a", "b", "c", "a")
			c.Clear()

			stats := c.Stats()
			if stats.Size != 0 || stats.Hits != 0 || stats.Misses != 0 {
				t.Errorf("expected zeroed stats, got %+v", stats)
			}
			if len(c.EntryInfo()) != 0 {
				t.Error("expected no entries after Clear")
			}
		})
	}
}

func TestEntryInfo(t *testing.T) {
	clock := newFakeClock()
	for name, c := range stores(t, clock, time.Hour) {
		t.Run(name, func(t *testing.T) {
			var f counter
			c.Get(context.Background(), "k", f.fetch(1), WithTags("t1", "t2"))
			clock.Advance(10 * time.Second)
			c.Get(context.Background(), "k", f.fetch(1))
			c.Get(context.Background(), "k", f.fetch(1))
			clock.Advance(5 * time.Second)

			infos := c.EntryInfo()
			if len(infos) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(infos))
			}
			info := infos[0]
			if info.Age != 15*time.Second {
				t.Errorf("expected age measured from the last write (15s), got %v", info.Age)
			}
			if info.AccessCount != 3 {
				t.Errorf("expected access count 3, got %d", info.AccessCount)
			}
			if len(info.Tags) != 2 || info.Tags[0] != "t1" || info.Tags[1] != "t2" {
				t.Errorf("unexpected tags %v", info.Tags)
			}
		})
	}
}

func TestEntryInfo_MemorySortedByKey(t *testing.T) {
	c, _ := NewMemory(logger.NewNop(), nil)
	fill(t, c, "c", "a", "b")
	infos := c.EntryInfo()
	for i, want := range []string{"a", "b", "c"} {
		if infos[i].Key != want {
			t.Errorf("position %d: expected %s, got %s", i, want, infos[i].Key)
		}
	}
}

// ============ Factory Tests ============

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		want    string
		wantErr bool
	}{
		{"nil config", nil, "lru", false},
		{"memory", &Config{Kind: KindMemory}, "memory", false},
		{"lru with overrides", &Config{Kind: KindLRU, LRU: &LRUConfig{MaxEntries: 2}}, "lru", false},
		{"unknown kind", &Config{Kind: "redis"}, "", true},
		{"invalid lru", &Config{Kind: KindLRU, LRU: &LRUConfig{MaxEntries: -1}}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(logger.NewNop(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			switch c.(type) {
			case *MemoryCache:
				if tt.want != "memory" {
					t.Errorf("expected %s store, got memory", tt.want)
				}
			case *LRUCache:
				if tt.want != "lru" {
					t.Errorf("expected %s store, got lru", tt.want)
				}
			}
		})
	}
}
