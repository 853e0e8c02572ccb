package pkgindex

import (
	"testing"

	"github.com/arc-language/omg/internal/model"
)

func samplePackages() []model.DetailedPackageInfo {
	return []model.DetailedPackageInfo{
		{Name: "curl", Version: "8.0-1", Description: "command line transfer tool"},
		{Name: "curlftpfs", Version: "0.3.2-1", Description: "mount ftp via curl"},
		{Name: "lib-curl", Version: "8.0-1", Description: "library for curl"},
		{Name: "wget", Version: "1.21-1", Description: "retrieve files, good for curl replacement"},
		{Name: "aria2", Version: "1.36-1", Description: "lightweight download utility"},
	}
}

func TestSearchExactMatchRanksFirst(t *testing.T) {
	idx := Build(samplePackages())
	results := idx.Search("curl", 10)
	if len(results) == 0 || results[0].Name != "curl" {
		t.Fatalf("expected exact match 'curl' first, got %+v", results)
	}
}

func TestSearchPrefixBeforeWordBoundary(t *testing.T) {
	idx := Build(samplePackages())
	results := idx.Search("curl", 10)

	pos := map[string]int{}
	for i, p := range results {
		pos[p.Name] = i
	}
	if pos["curl"] > pos["curlftpfs"] {
		t.Errorf("exact match must rank before prefix match: %+v", results)
	}
	if pos["curlftpfs"] > pos["lib-curl"] {
		t.Errorf("prefix match must rank before word-boundary match: %+v", results)
	}
	if _, ok := pos["lib-curl"]; !ok {
		t.Errorf("expected lib-curl (word-boundary match) present: %+v", results)
	}
}

func TestSearchDescriptionOnlyRanksLast(t *testing.T) {
	idx := Build(samplePackages())
	results := idx.Search("curl", 10)

	pos := map[string]int{}
	for i, p := range results {
		pos[p.Name] = i
	}
	wgetPos, wgetFound := pos["wget"]
	if !wgetFound {
		t.Fatalf("expected wget (description-only match) in results: %+v", results)
	}
	for name, p := range pos {
		if name != "wget" && p > wgetPos {
			t.Errorf("description-only match %q should not outrank %q", "wget", name)
		}
	}
}

func TestSearchDeterministicOrdering(t *testing.T) {
	idx := Build(samplePackages())
	first := idx.Search("curl", 10)
	second := idx.Search("curl", 10)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic result length")
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Fatalf("non-deterministic ordering at %d: %q vs %q", i, first[i].Name, second[i].Name)
		}
	}
}

func TestSearchLimit(t *testing.T) {
	idx := Build(samplePackages())
	results := idx.Search("curl", 2)
	if len(results) != 2 {
		t.Fatalf("expected limit of 2 results, got %d", len(results))
	}
}

func TestGetExactAndMissing(t *testing.T) {
	idx := Build(samplePackages())
	p, ok := idx.Get("curl")
	if !ok || p.Version != "8.0-1" {
		t.Fatalf("expected to find curl, got %+v ok=%v", p, ok)
	}
	if _, ok := idx.Get("doesnotexist"); ok {
		t.Fatalf("expected miss for unknown package")
	}
}

func TestSuggestPrefix(t *testing.T) {
	idx := Build(samplePackages())
	names := idx.Suggest("curl", 10)
	if len(names) != 2 {
		t.Fatalf("expected 2 names with prefix curl, got %+v", names)
	}
	if names[0] != "curl" {
		t.Errorf("expected shortest match 'curl' first, got %+v", names)
	}
}

func TestLen(t *testing.T) {
	idx := Build(samplePackages())
	if idx.Len() != len(samplePackages()) {
		t.Fatalf("expected Len() to match input size")
	}
}

func TestBuildPreservesDependsAndLicenses(t *testing.T) {
	pkgs := []model.DetailedPackageInfo{
		{Name: "foo", Version: "1.0", Depends: []string{"bar", "baz"}, Licenses: []string{"MIT"}},
	}
	idx := Build(pkgs)
	p, ok := idx.Get("foo")
	if !ok {
		t.Fatal("expected foo present")
	}
	if len(p.Depends) != 2 || p.Depends[0] != "bar" {
		t.Errorf("unexpected Depends: %+v", p.Depends)
	}
	if len(p.Licenses) != 1 || p.Licenses[0] != "MIT" {
		t.Errorf("unexpected Licenses: %+v", p.Licenses)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := Build(samplePackages())
	if got := idx.Search("", 10); got != nil {
		t.Errorf("expected nil results for empty query, got %+v", got)
	}
}
