package cache

import (
	"testing"
	"time"

	"github.com/arc-language/omg/internal/model"
)

func TestSearchCacheHitMiss(t *testing.T) {
	c := New(100, time.Minute, time.Minute)

	if _, ok := c.GetSearch("curl", 10); ok {
		t.Fatal("expected miss before Put")
	}

	pkgs := []model.Package{{Name: "curl"}}
	c.PutSearch("curl", 10, pkgs)

	got, ok := c.GetSearch("curl", 10)
	if !ok || len(got) != 1 || got[0].Name != "curl" {
		t.Fatalf("expected cached curl result, got %+v ok=%v", got, ok)
	}

	// different limit is a distinct entry
	if _, ok := c.GetSearch("curl", 20); ok {
		t.Fatal("expected miss for a different limit")
	}
}

func TestInfoPutClearsNegativeCache(t *testing.T) {
	c := New(100, time.Minute, time.Minute)

	c.PutInfoMiss("ghost")
	if !c.IsInfoMiss("ghost") {
		t.Fatal("expected ghost to be a recorded miss")
	}

	c.PutInfo("ghost", model.DetailedPackageInfo{Name: "ghost", Version: "1.0"})
	if c.IsInfoMiss("ghost") {
		t.Fatal("expected positive PutInfo to clear the negative cache entry")
	}
	info, ok := c.GetInfo("ghost")
	if !ok || info.Version != "1.0" {
		t.Fatalf("expected cached info, got %+v ok=%v", info, ok)
	}
}

func TestPutInfoMissDoesNotOverridePositive(t *testing.T) {
	c := New(100, time.Minute, time.Minute)
	c.PutInfo("curl", model.DetailedPackageInfo{Name: "curl"})
	c.PutInfoMiss("curl")
	if c.IsInfoMiss("curl") {
		t.Fatal("a positive entry must not be shadowed by a later miss record")
	}
}

func TestStatusTTLExpiry(t *testing.T) {
	c := New(100, time.Minute, 10*time.Millisecond)
	c.PutStatus(model.StatusResult{TotalPackages: 5})

	if _, ok := c.GetStatus(); !ok {
		t.Fatal("expected fresh status to be present")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.GetStatus(); ok {
		t.Fatal("expected expired status to be evicted")
	}
}

func TestExplicitAndExplicitCount(t *testing.T) {
	c := New(100, time.Minute, time.Minute)
	c.PutExplicit([]model.Package{{Name: "vim"}})
	c.PutExplicitCount(42)

	pkgs, ok := c.GetExplicit()
	if !ok || len(pkgs) != 1 {
		t.Fatalf("expected cached explicit list, got %+v ok=%v", pkgs, ok)
	}
	n, ok := c.GetExplicitCount()
	if !ok || n != 42 {
		t.Fatalf("expected cached count 42, got %d ok=%v", n, ok)
	}
}

func TestStatsAccumulate(t *testing.T) {
	c := New(100, time.Minute, time.Minute)
	c.PutSearch("curl", 10, []model.Package{{Name: "curl"}})

	c.GetSearch("curl", 10)  // hit
	c.GetSearch("vim", 10)   // miss
	c.GetInfo("curl")        // miss

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Errorf("expected 2 misses, got %d", stats.Misses)
	}
}

func TestClearEmptiesEveryTier(t *testing.T) {
	c := New(100, time.Minute, time.Minute)
	c.PutSearch("curl", 10, []model.Package{{Name: "curl"}})
	c.PutInfo("curl", model.DetailedPackageInfo{Name: "curl"})
	c.PutStatus(model.StatusResult{TotalPackages: 1})
	c.PutExplicit([]model.Package{{Name: "curl"}})

	c.Clear()

	if _, ok := c.GetSearch("curl", 10); ok {
		t.Error("expected search cache cleared")
	}
	if _, ok := c.GetInfo("curl"); ok {
		t.Error("expected info cache cleared")
	}
	if _, ok := c.GetStatus(); ok {
		t.Error("expected status cleared")
	}
	if _, ok := c.GetExplicit(); ok {
		t.Error("expected explicit list cleared")
	}
}

func TestInvalidateOnMtime(t *testing.T) {
	c := New(100, time.Minute, time.Minute)
	c.PutStatus(model.StatusResult{TotalPackages: 1})

	now := time.Now()
	if c.InvalidateOnMtime(now, now) {
		t.Error("equal mtimes should not invalidate")
	}
	if _, ok := c.GetStatus(); !ok {
		t.Fatal("expected status to survive a no-op invalidation")
	}

	if !c.InvalidateOnMtime(now, now.Add(time.Second)) {
		t.Error("a newer mtime should invalidate")
	}
	if _, ok := c.GetStatus(); ok {
		t.Fatal("expected status cleared after invalidation")
	}
}
