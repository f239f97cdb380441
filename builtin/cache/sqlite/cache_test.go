package sqlite

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spetr/unusedmember/pkg/types"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c := New()
	if err := c.Init(filepath.Join(t.TempDir(), "cache", "findings.db")); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleFindings(path string) []types.Finding {
	return []types.Finding{
		{
			RuleID:   "UnusedPrivateMember",
			DeclID:   2,
			Name:     "unusedParameter",
			Kind:     types.DeclParameter,
			Message:  "Function parameter `unusedParameter` is unused.",
			Location: types.Location{Path: path, Span: types.Span{StartLine: 3, StartCol: 20, EndLine: 3, EndCol: 35}},
		},
		{
			RuleID:   "UnusedPrivateMember",
			DeclID:   5,
			Name:     "helper",
			Kind:     types.DeclFunction,
			Message:  "Private function `helper` is unused.",
			Location: types.Location{Path: path, Span: types.Span{StartLine: 7, StartCol: 5, EndLine: 9, EndCol: 6}},
		},
	}
}

func TestCache(t *testing.T) {
	c := openCache(t)
	const path = "/src/A.kt"

	t.Run("MissBeforePut", func(t *testing.T) {
		_, ok, err := c.Get(path, "h1", "c1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok {
			t.Error("expected a miss on an empty cache")
		}
	})

	t.Run("HitAfterPut", func(t *testing.T) {
		want := sampleFindings(path)
		if err := c.Put(path, "h1", "c1", want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, ok, err := c.Get(path, "h1", "c1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !ok {
			t.Fatal("expected a hit")
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("findings mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("FileHashChanged", func(t *testing.T) {
		if _, ok, _ := c.Get(path, "h2", "c1"); ok {
			t.Error("a changed file must miss")
		}
	})

	t.Run("ConfigHashChanged", func(t *testing.T) {
		if _, ok, _ := c.Get(path, "h1", "c2"); ok {
			t.Error("a changed configuration must miss")
		}
	})

	t.Run("CleanFileHit", func(t *testing.T) {
		if err := c.Put("/src/B.kt", "hb", "c1", nil); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, ok, err := c.Get("/src/B.kt", "hb", "c1")
		if err != nil || !ok {
			t.Fatalf("Get = (%v, %v), want a hit", ok, err)
		}
		if len(got) != 0 {
			t.Errorf("expected no findings, got %d", len(got))
		}
	})

	t.Run("PutReplaces", func(t *testing.T) {
		if err := c.Put(path, "h3", "c1", sampleFindings(path)[:1]); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, ok, _ := c.Get(path, "h3", "c1")
		if !ok || len(got) != 1 {
			t.Errorf("expected 1 finding after replace, got %d (hit=%v)", len(got), ok)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := c.Stats()
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Files != 2 || stats.Findings != 1 {
			t.Errorf("stats = %+v, want 2 files and 1 finding", stats)
		}
		if stats.LastAnalyzed.IsZero() {
			t.Error("LastAnalyzed not set")
		}
		if stats.DBSizeBytes == 0 {
			t.Error("DBSizeBytes not set")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := c.Delete(path); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, ok, _ := c.Get(path, "h3", "c1"); ok {
			t.Error("deleted file must miss")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := c.Clear(); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		stats, err := c.Stats()
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Files != 0 || stats.Findings != 0 {
			t.Errorf("stats after Clear = %+v", stats)
		}
	})
}

// Two generations of findings for one file are written back and forth while
// readers check that a hit never mixes hashes of one generation with rows of
// the other.
func TestCache_ConcurrentGetPut(t *testing.T) {
	c := openCache(t)
	const path = "/src/A.kt"

	generations := []struct {
		hash     string
		findings []types.Finding
	}{
		{"h1", sampleFindings(path)},
		{"h2", sampleFindings(path)[:1]},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			g := generations[i%2]
			if err := c.Put(path, g.hash, "c1", g.findings); err != nil {
				t.Errorf("Put failed: %v", err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				g := generations[(i+r)%2]
				got, ok, err := c.Get(path, g.hash, "c1")
				if err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
				if ok && len(got) != len(g.findings) {
					t.Errorf("hash %s returned %d findings, want %d", g.hash, len(got), len(g.findings))
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestCache_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.db")

	c := New()
	if err := c.Init(path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := c.Put("/src/A.kt", "h", "c", sampleFindings("/src/A.kt")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	c.Close()

	reopened := New()
	if err := reopened.Init(path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get("/src/A.kt", "h", "c")
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v), want a hit", ok, err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 findings, got %d", len(got))
	}
}

func TestCache_Memory(t *testing.T) {
	c := New()
	if err := c.Init(":memory:"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer c.Close()

	if err := c.Put("/a.kt", "h", "c", nil); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok, _ := c.Get("/a.kt", "h", "c"); !ok {
		t.Error("expected a hit from the in-memory database")
	}
}
