package omgclient_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/arc-language/omg/internal/flatstatus"
	"github.com/arc-language/omg/internal/omgclient"
)

func TestStatusPrefersFlatStatusFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OMG_DATA_DIR", dir)
	t.Setenv("OMG_DISABLE_DAEMON", "1")

	if err := flatstatus.Write(filepath.Join(dir, "status.bin"), flatstatus.Record{
		Total: 50, Explicit: 10, Orphans: 1, UpdatesAvailable: 2,
	}); err != nil {
		t.Fatalf("flatstatus.Write: %v", err)
	}

	result, err := omgclient.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if result.TotalPackages != 50 || result.ExplicitPackages != 10 || result.OrphanPackages != 1 || result.UpdatesAvailable != 2 {
		t.Fatalf("expected flat status values to pass through, got %+v", result)
	}
}

func TestStatusFallsBackWhenNoFlatStatus(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OMG_DATA_DIR", dir)
	t.Setenv("OMG_DISABLE_DAEMON", "1")

	// No flat status file exists and the daemon is disabled, so Status
	// must fall through to the direct-read path without erroring even
	// though /var/lib/pacman and /var/lib/dpkg likely do not exist here.
	result, err := omgclient.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	_ = result
}
