package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/arc-language/omg/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.bolt")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetStatusMissingIsNotError(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.GetStatus()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected no status on a fresh store")
	}
}

func TestSetGetStatusRoundTrip(t *testing.T) {
	s := openTestStore(t)
	want := model.StatusResult{TotalPackages: 120, ExplicitPackages: 40, UpdatesAvailable: 3}

	if err := s.SetStatus(want); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, found, err := s.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !found {
		t.Fatal("expected status to be found")
	}
	if got.TotalPackages != want.TotalPackages || got.ExplicitPackages != want.ExplicitPackages || got.UpdatesAvailable != want.UpdatesAvailable {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSetGetNamesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	names := []string{"curl", "wget", "aria2"}

	if err := s.SetNames("completion:pacman", names); err != nil {
		t.Fatalf("SetNames: %v", err)
	}

	got, err := s.GetNames("completion:pacman")
	if err != nil {
		t.Fatalf("GetNames: %v", err)
	}
	if len(got) != 3 || got[0] != "curl" {
		t.Fatalf("unexpected names: %+v", got)
	}

	// unrelated key is absent
	missing, err := s.GetNames("completion:apt")
	if err != nil {
		t.Fatalf("GetNames: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for an unset key, got %+v", missing)
	}
}

func TestSetStatusOverwrites(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetStatus(model.StatusResult{TotalPackages: 1}); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := s.SetStatus(model.StatusResult{TotalPackages: 2}); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, found, err := s.GetStatus()
	if err != nil || !found {
		t.Fatalf("GetStatus: found=%v err=%v", found, err)
	}
	if got.TotalPackages != 2 {
		t.Fatalf("expected overwritten value 2, got %d", got.TotalPackages)
	}
}
