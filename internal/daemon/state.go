// Package daemon implements the omg daemon: a Unix-socket RPC server
// holding the shared package index, mmap index, cache, and persistent KV
// store, dispatched to from one goroutine per connection.
package daemon

import (
	"sync/atomic"
	"time"

	"github.com/arc-language/omg/internal/cache"
	"github.com/arc-language/omg/internal/kvstore"
	"github.com/arc-language/omg/internal/mmapindex"
	"github.com/arc-language/omg/internal/pkgindex"
	"github.com/arc-language/omg/internal/refresh"
)

// State is every piece of shared data a request handler needs, held by
// reference so the refresh worker can swap the Index/Mmap pointers
// without handlers ever observing a half-built structure.
type State struct {
	Index *atomic.Pointer[pkgindex.Index]
	Mmap  *atomic.Pointer[mmapindex.MappedIndex]
	// DebIndex holds only Debian/apt-origin packages, searched by the
	// DebianSearch RPC; Index/Mmap above hold the combined catalog used
	// by the generic Search RPC.
	DebIndex *atomic.Pointer[pkgindex.Index]
	Cache    *cache.Cache
	KV       *kvstore.Store

	// Refresh is set by cmd/omgd after NewState; it is nil in tests that
	// exercise Dispatch directly against a hand-built State.
	Refresh *refresh.Worker

	Metrics *Metrics

	startedAt time.Time
}

// NewState constructs a State with empty Index/Mmap pointers; the
// refresh worker populates them on its first cycle.
func NewState(c *cache.Cache, kv *kvstore.Store) *State {
	return &State{
		Index:     new(atomic.Pointer[pkgindex.Index]),
		Mmap:      new(atomic.Pointer[mmapindex.MappedIndex]),
		DebIndex:  new(atomic.Pointer[pkgindex.Index]),
		Cache:     c,
		KV:        kv,
		Metrics:   NewMetrics(),
		startedAt: time.Now(),
	}
}

// Uptime returns how long this State (and so the daemon process) has
// been running.
func (s *State) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

// Metrics holds cumulative daemon-wide counters exposed by the Metrics
// RPC, updated with plain atomics rather than a metrics library:
// telemetry is explicitly out of scope, so these counters are the
// minimal ambient instrumentation a long-running server keeps
// (connection/request counts), not an observability stack.
type Metrics struct {
	requestsTotal     atomic.Uint64
	requestsFailed    atomic.Uint64
	activeConnections atomic.Int64
}

// NewMetrics returns a zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordRequest(ok bool) {
	m.requestsTotal.Add(1)
	if !ok {
		m.requestsFailed.Add(1)
	}
}

func (m *Metrics) connOpened() { m.activeConnections.Add(1) }
func (m *Metrics) connClosed() { m.activeConnections.Add(-1) }

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() (requestsTotal, requestsFailed uint64, activeConnections int64) {
	return m.requestsTotal.Load(), m.requestsFailed.Load(), m.activeConnections.Load()
}
