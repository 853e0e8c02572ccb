// Package refresh implements the background worker that keeps the
// daemon's package index, mmap archive, and flat status file current
// with the underlying system package databases.
package refresh

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arc-language/omg/internal/cache"
	"github.com/arc-language/omg/internal/flatstatus"
	"github.com/arc-language/omg/internal/kvstore"
	"github.com/arc-language/omg/internal/mmapindex"
	"github.com/arc-language/omg/internal/paths"
	"github.com/arc-language/omg/internal/pkgindex"
)

// Config tunes the worker's cadence. Zero values are replaced with
// sensible operational defaults by NewWorker.
type Config struct {
	// TickInterval is how often a cycle runs even with no filesystem
	// event. Default 300s.
	TickInterval time.Duration
	// MmapIdleTimeout is how long a mmap handle may sit untouched
	// before the sweeper closes it. Default 30m.
	MmapIdleTimeout time.Duration
	// StatusPath and MmapPath override internal/paths defaults; tests
	// set these to a t.TempDir() instead of the real data directory.
	StatusPath string
	MmapPath   string

	// ArchSyncDir, ArchLocalDir, DebianListsDir, DebianStatusFile, and
	// DebianExtStates override internal/paths' real system-DB locations.
	// Tests point these at synthetic fixtures so a mtime bump can be
	// observed without touching /var/lib/pacman or /var/lib/dpkg.
	ArchSyncDir      string
	ArchLocalDir     string
	DebianListsDir   string
	DebianStatusFile string
	DebianExtStates  string
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 300 * time.Second
	}
	if c.MmapIdleTimeout <= 0 {
		c.MmapIdleTimeout = 30 * time.Minute
	}
	if c.StatusPath == "" {
		c.StatusPath = paths.FlatStatusPath()
	}
	if c.MmapPath == "" {
		c.MmapPath = paths.MmapIndexPath()
	}
	if c.ArchSyncDir == "" {
		c.ArchSyncDir = paths.ArchSyncDir
	}
	if c.ArchLocalDir == "" {
		c.ArchLocalDir = paths.ArchLocalDir
	}
	if c.DebianListsDir == "" {
		c.DebianListsDir = paths.DebianListsDir
	}
	if c.DebianStatusFile == "" {
		c.DebianStatusFile = paths.DebianStatusFile
	}
	if c.DebianExtStates == "" {
		c.DebianExtStates = paths.DebianExtStates
	}
	return c
}

// Worker owns the shared index/mmap pointers and cache it refreshes. It
// holds no reference to *daemon.State: daemon imports refresh to type
// its own Refresh field, so refresh must not import daemon back.
type Worker struct {
	index    *atomic.Pointer[pkgindex.Index]
	mmap     *atomic.Pointer[mmapindex.MappedIndex]
	debIndex *atomic.Pointer[pkgindex.Index]
	cache    *cache.Cache
	kv       *kvstore.Store

	cfg Config

	kick      chan struct{}
	lastMtime int64
}

// NewWorker builds a Worker over the shared index/mmap pointers, cache,
// and KV store a daemon.State exposes. Passing the pieces directly
// (rather than *daemon.State) keeps this package import-cycle-free with
// internal/daemon, which embeds a *Worker in its own State.
func NewWorker(index, debIndex *atomic.Pointer[pkgindex.Index], mmap *atomic.Pointer[mmapindex.MappedIndex], c *cache.Cache, kv *kvstore.Store, cfg Config) *Worker {
	return &Worker{
		index:    index,
		debIndex: debIndex,
		mmap:     mmap,
		cache:    c,
		kv:       kv,
		cfg:      cfg.withDefaults(),
		kick:     make(chan struct{}, 1),
	}
}

// Kick requests an out-of-band refresh cycle, coalescing with any
// already-pending kick. Called by the CacheClear RPC handler; the
// startup cycle is the one Run performs before entering its loop.
func (w *Worker) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run drives the refresh loop until ctx is canceled. It runs one cycle
// immediately, then on every tick, filesystem event, or Kick.
func (w *Worker) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("refresh: fsnotify unavailable, falling back to ticker only: %v", err)
	} else {
		defer watcher.Close()
		for _, p := range w.watchedPaths() {
			if err := watcher.Add(p); err != nil {
				log.Printf("refresh: not watching %s: %v", p, err)
			}
		}
	}

	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	w.cycle()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cycle()
		case <-w.kick:
			w.cycle()
		case ev, ok := <-watcherEvents(watcher):
			if !ok {
				continue
			}
			_ = ev
			w.cycle()
		case err, ok := <-watcherErrors(watcher):
			if !ok {
				continue
			}
			log.Printf("refresh: watcher error: %v", err)
		}
	}
}

// watcherEvents/watcherErrors return the watcher's channels, or nil
// channels (which block forever in a select) when fsnotify failed to
// initialize, so Run's select still works with a nil *fsnotify.Watcher.
func watcherEvents(w *fsnotify.Watcher) chan fsnotify.Event {
	if w == nil {
		return nil
	}
	return w.Events
}

func watcherErrors(w *fsnotify.Watcher) chan error {
	if w == nil {
		return nil
	}
	return w.Errors
}

// watchedPaths returns the configured set of filesystem locations to
// watch for changes, honoring Config's test overrides.
func (w *Worker) watchedPaths() []string {
	return []string{w.cfg.ArchSyncDir, w.cfg.ArchLocalDir, w.cfg.DebianListsDir, w.cfg.DebianStatusFile, w.cfg.DebianExtStates}
}

// cycle runs one refresh pass: recompute status, write it out, rebuild
// the index if anything changed on disk, prewarm the explicit cache,
// and sweep idle mmap handles.
func (w *Worker) cycle() {
	snap := buildSnapshot(w.cfg)

	if err := flatstatus.Write(w.cfg.StatusPath, flatstatus.Record{
		Total:            uint32(snap.status.TotalPackages),
		Explicit:         uint32(snap.status.ExplicitPackages),
		Orphans:          uint32(snap.status.OrphanPackages),
		UpdatesAvailable: uint32(snap.status.UpdatesAvailable),
	}); err != nil {
		log.Printf("refresh: writing flat status: %v", err)
	}
	w.cache.PutStatus(snap.status)
	if w.kv != nil {
		if err := w.kv.SetStatus(snap.status); err != nil {
			log.Printf("refresh: persisting status to kvstore: %v", err)
		}
	}

	if snap.watchedMtime != w.lastMtime {
		w.rebuildIndex(snap)
		w.lastMtime = snap.watchedMtime
	}

	w.prewarmExplicit(snap)
	w.sweepMmap()
}

func (w *Worker) rebuildIndex(snap snapshot) {
	idx := pkgindex.Build(snap.catalog)
	w.index.Store(idx)
	w.debIndex.Store(pkgindex.Build(snap.debCatalog))

	if err := mmapindex.Save(snap.catalog, w.cfg.MmapPath); err != nil {
		log.Printf("refresh: saving mmap index: %v", err)
		return
	}
	mapped, err := mmapindex.Open(w.cfg.MmapPath)
	if err != nil {
		log.Printf("refresh: opening mmap index: %v", err)
		return
	}
	if old := w.mmap.Swap(mapped); old != nil {
		old.Close()
	}
}

func (w *Worker) prewarmExplicit(snap snapshot) {
	w.cache.PutExplicit(snap.explicit)
	w.cache.PutExplicitCount(len(snap.explicit))
}

// sweepMmap drops the mmap handle once it has gone unused for longer
// than cfg.MmapIdleTimeout, so a long-idle daemon doesn't keep pinning a
// stale mapping. A later Search/Get simply falls back to the in-memory
// pkgindex.Index until the next rebuildIndex.
func (w *Worker) sweepMmap() {
	mapped := w.mmap.Load()
	if mapped == nil {
		return
	}
	idle := time.Duration(time.Now().UnixNano()-mapped.LastAccess()) * time.Nanosecond
	if idle > w.cfg.MmapIdleTimeout {
		if w.mmap.CompareAndSwap(mapped, nil) {
			mapped.Close()
		}
	}
}
