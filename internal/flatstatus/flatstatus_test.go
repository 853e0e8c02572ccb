package flatstatus

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.bin")
	rec := Record{Total: 100, Explicit: 40, Orphans: 2, UpdatesAvailable: 5}

	if err := Write(path, rec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, ok := Read(path)
	if !ok {
		t.Fatal("expected fresh record to be readable")
	}
	if got.Total != 100 || got.Explicit != 40 || got.Orphans != 2 || got.UpdatesAvailable != 5 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.TimestampUnixS == 0 {
		t.Error("expected Write to stamp a nonzero timestamp")
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, ok := Read(filepath.Join(t.TempDir(), "nope.bin")); ok {
		t.Fatal("expected miss for nonexistent file")
	}
}

func TestReadRejectsWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.bin")
	if err := os.WriteFile(path, []byte("too short"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := Read(path); ok {
		t.Fatal("expected miss for wrong-size file")
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.bin")
	buf := make([]byte, size)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := Read(path); ok {
		t.Fatal("expected miss for zeroed (bad magic) file")
	}
}

func TestReadRejectsStaleRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.bin")
	rec := Record{Total: 1, TimestampUnixS: uint64(time.Now().Add(-2 * time.Minute).Unix())}
	buf := rec.marshal()
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := Read(path); ok {
		t.Fatal("expected miss for a record older than the freshness window")
	}
}

func TestReadRejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.bin")
	rec := Record{Total: 1, TimestampUnixS: uint64(time.Now().Unix())}
	buf := rec.marshal()
	buf[4] = 99
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := Read(path); ok {
		t.Fatal("expected miss for unsupported version byte")
	}
}
