// Package paths resolves the filesystem locations the engine reads and
// writes, honoring the documented environment variable overrides.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// TestMode reports whether OMG_TEST_MODE=1 is set, which swaps backends
// for deterministic fixtures instead of touching the real system DBs.
func TestMode() bool {
	v := os.Getenv("OMG_TEST_MODE")
	return v == "1" || v == "true"
}

// DaemonDisabled reports whether OMG_DISABLE_DAEMON=1 is set, forcing
// direct-DB mode for all clients.
func DaemonDisabled() bool {
	v := os.Getenv("OMG_DISABLE_DAEMON")
	return v == "1" || v == "true"
}

// DataDir returns $OMG_DATA_DIR, or a user-cache-relative default.
func DataDir() string {
	if d := os.Getenv("OMG_DATA_DIR"); d != "" {
		return d
	}
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "omg")
	}
	return filepath.Join(os.TempDir(), "omg")
}

// SocketPath resolves $OMG_SOCKET, then $XDG_RUNTIME_DIR/omg.sock, then
// /tmp/omg-<uid>.sock.
func SocketPath() string {
	if s := os.Getenv("OMG_SOCKET"); s != "" {
		return s
	}
	if rt := os.Getenv("XDG_RUNTIME_DIR"); rt != "" {
		return filepath.Join(rt, "omg.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("omg-%d.sock", os.Getuid()))
}

// FlatStatusPath is $OMG_DATA_DIR/status.bin.
func FlatStatusPath() string {
	return filepath.Join(DataDir(), "status.bin")
}

// MmapIndexPath is $OMG_DATA_DIR/index.mmap.
func MmapIndexPath() string {
	return filepath.Join(DataDir(), "index.mmap")
}

// KVStorePath is $OMG_DATA_DIR/cache.bolt.
func KVStorePath() string {
	return filepath.Join(DataDir(), "cache.bolt")
}

// EnsureDataDir creates the data directory (0700, owner-only) if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o700)
}

// Arch/Debian package-manager DB paths, consumed read-only.
const (
	ArchSyncDir      = "/var/lib/pacman/sync"
	ArchLocalDir     = "/var/lib/pacman/local"
	DebianListsDir   = "/var/lib/apt/lists"
	DebianStatusFile = "/var/lib/dpkg/status"
	DebianExtStates  = "/var/lib/apt/extended_states"
)

// WatchedPaths returns the complete set of paths the refresh worker and
// cache invalidation hook watch for mtime changes.
func WatchedPaths() []string {
	return []string{ArchSyncDir, ArchLocalDir, DebianListsDir, DebianStatusFile, DebianExtStates}
}
