package daemon

import (
	"context"

	"github.com/arc-language/omg/internal/model"
	"github.com/arc-language/omg/internal/rpc"
)

// Dispatch routes req to the handler for its Kind and returns the
// resulting Response. It is a pure function over *State: all shared
// mutable state lives behind State's atomic pointers and the cache's own
// locking, so Dispatch itself holds no locks and is safe to call from
// many goroutines concurrently.
func Dispatch(ctx context.Context, st *State, req rpc.Request) rpc.Response {
	resp := dispatch(ctx, st, req)
	st.Metrics.recordRequest(resp.Ok)
	return resp
}

// dispatch runs the handler for req.Kind on its own goroutine and races
// it against ctx's deadline, so a handler that runs longer than the
// per-request timeout never blocks the connection: the caller gets back
// a synthesized timeout response instead, and the handler goroutine is
// left to finish (or keep blocking) on its own.
func dispatch(ctx context.Context, st *State, req rpc.Request) rpc.Response {
	select {
	case <-ctx.Done():
		return rpc.NewError(req.ID, rpc.CodeInternalError, "Request timed out after 30 seconds")
	default:
	}

	done := make(chan rpc.Response, 1)
	go func() {
		done <- dispatchKind(ctx, st, req)
	}()

	select {
	case resp := <-done:
		return resp
	case <-ctx.Done():
		return rpc.NewError(req.ID, rpc.CodeInternalError, "Request timed out after 30 seconds")
	}
}

func dispatchKind(ctx context.Context, st *State, req rpc.Request) rpc.Response {
	switch req.Kind {
	case rpc.KindSearch:
		return handleSearch(st, req)
	case rpc.KindDebianSearch:
		return handleDebianSearch(st, req)
	case rpc.KindInfo:
		return handleInfo(st, req)
	case rpc.KindStatus:
		return handleStatus(st, req)
	case rpc.KindExplicit:
		return handleExplicit(st, req)
	case rpc.KindExplicitCount:
		return handleExplicitCount(st, req)
	case rpc.KindSecurityAudit:
		return rpc.NewError(req.ID, rpc.CodeMethodNotFound, "security_audit is out of scope for this build")
	case rpc.KindPing:
		return rpc.NewSuccess(req.ID, rpc.Result{Pong: true})
	case rpc.KindCacheStats:
		return handleCacheStats(st, req)
	case rpc.KindCacheClear:
		return handleCacheClear(st, req)
	case rpc.KindMetrics:
		return handleMetrics(st, req)
	case rpc.KindSuggest:
		return handleSuggest(st, req)
	case rpc.KindBatch:
		return handleBatch(ctx, st, req)
	default:
		return rpc.NewError(req.ID, rpc.CodeMethodNotFound, "unknown request kind: "+string(req.Kind))
	}
}

func currentIndex(st *State) *indexView {
	if idx := st.Index.Load(); idx != nil {
		return &indexView{mem: idx}
	}
	if mi := st.Mmap.Load(); mi != nil {
		return &indexView{mmap: mi}
	}
	return nil
}

// indexView lets handlers query whichever index is live (in-memory
// pkgindex.Index preferred, mmapindex.MappedIndex as a cold-start or
// fallback source) without branching at every call site.
type indexView struct {
	mem  interface {
		Get(name string) (model.DetailedPackageInfo, bool)
		Search(query string, limit int) []model.Package
		Suggest(prefix string, limit int) []string
	}
	mmap interface {
		Get(name string) (model.Package, bool)
		Search(query string, limit int) []model.Package
	}
}

func handleSearch(st *State, req rpc.Request) rpc.Response {
	if req.Query == "" {
		return rpc.NewError(req.ID, rpc.CodeInvalidParams, "query must not be empty")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	if cached, ok := st.Cache.GetSearch(req.Query, limit); ok {
		return rpc.NewSuccess(req.ID, rpc.Result{Packages: cached})
	}

	view := currentIndex(st)
	if view == nil {
		return rpc.NewError(req.ID, rpc.CodeInternalError, "package index is not yet built")
	}

	var results []model.Package
	if view.mem != nil {
		results = view.mem.Search(req.Query, limit)
	} else {
		results = view.mmap.Search(req.Query, limit)
	}

	st.Cache.PutSearch(req.Query, limit, results)
	return rpc.NewSuccess(req.ID, rpc.Result{Packages: results})
}

// handleDebianSearch searches only the Debian/apt-origin catalog,
// distinct from the generic Search RPC's combined index.
func handleDebianSearch(st *State, req rpc.Request) rpc.Response {
	if req.Query == "" {
		return rpc.NewError(req.ID, rpc.CodeInvalidParams, "query must not be empty")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	if cached, ok := st.Cache.GetDebianSearch(req.Query, limit); ok {
		return rpc.NewSuccess(req.ID, rpc.Result{Packages: cached})
	}

	idx := st.DebIndex.Load()
	if idx == nil {
		return rpc.NewError(req.ID, rpc.CodeInternalError, "debian package index is not yet built")
	}

	results := idx.Search(req.Query, limit)
	st.Cache.PutDebianSearch(req.Query, limit, results)
	return rpc.NewSuccess(req.ID, rpc.Result{Packages: results})
}

func handleInfo(st *State, req rpc.Request) rpc.Response {
	if req.Name == "" {
		return rpc.NewError(req.ID, rpc.CodeInvalidParams, "name must not be empty")
	}

	if st.Cache.IsInfoMiss(req.Name) {
		return rpc.NewError(req.ID, rpc.CodeNotFound, "package not found: "+req.Name)
	}
	if cached, ok := st.Cache.GetInfo(req.Name); ok {
		return rpc.NewSuccess(req.ID, rpc.Result{Info: cached})
	}

	idx := st.Index.Load()
	if idx == nil {
		return rpc.NewError(req.ID, rpc.CodeInternalError, "package index is not yet built")
	}

	info, ok := idx.Get(req.Name)
	if !ok {
		st.Cache.PutInfoMiss(req.Name)
		return rpc.NewError(req.ID, rpc.CodeNotFound, "package not found: "+req.Name)
	}
	st.Cache.PutInfo(req.Name, info)
	return rpc.NewSuccess(req.ID, rpc.Result{Info: &info})
}

func handleStatus(st *State, req rpc.Request) rpc.Response {
	if cached, ok := st.Cache.GetStatus(); ok {
		return rpc.NewSuccess(req.ID, rpc.Result{Status: &cached})
	}
	if st.KV != nil {
		if result, found, err := st.KV.GetStatus(); err == nil && found {
			st.Cache.PutStatus(result)
			return rpc.NewSuccess(req.ID, rpc.Result{Status: &result})
		}
	}
	return rpc.NewError(req.ID, rpc.CodeInternalError, "status is not yet available")
}

func handleExplicit(st *State, req rpc.Request) rpc.Response {
	if cached, ok := st.Cache.GetExplicit(); ok {
		return rpc.NewSuccess(req.ID, rpc.Result{Packages: cached})
	}
	return rpc.NewError(req.ID, rpc.CodeInternalError, "explicit package list is not yet available")
}

func handleExplicitCount(st *State, req rpc.Request) rpc.Response {
	if n, ok := st.Cache.GetExplicitCount(); ok {
		return rpc.NewSuccess(req.ID, rpc.Result{ExplicitCount: n})
	}
	return rpc.NewError(req.ID, rpc.CodeInternalError, "explicit package count is not yet available")
}

func handleCacheStats(st *State, req rpc.Request) rpc.Response {
	s := st.Cache.Stats()
	return rpc.NewSuccess(req.ID, rpc.Result{CacheStats: &rpc.CacheStatsResult{Hits: s.Hits, Misses: s.Misses}})
}

func handleCacheClear(st *State, req rpc.Request) rpc.Response {
	st.Cache.Clear()
	if st.Refresh != nil {
		st.Refresh.Kick()
	}
	return rpc.NewSuccess(req.ID, rpc.Result{Pong: true})
}

func handleMetrics(st *State, req rpc.Request) rpc.Response {
	total, failed, active := st.Metrics.Snapshot()
	return rpc.NewSuccess(req.ID, rpc.Result{MetricsResult: &rpc.MetricsResult{
		RequestsTotal:     total,
		RequestsFailed:    failed,
		ActiveConnections: active,
		UptimeSeconds:     int64(st.Uptime().Seconds()),
	}})
}

func handleSuggest(st *State, req rpc.Request) rpc.Response {
	if req.Query == "" {
		return rpc.NewError(req.ID, rpc.CodeInvalidParams, "query must not be empty")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	idx := st.Index.Load()
	if idx == nil {
		return rpc.NewError(req.ID, rpc.CodeInternalError, "package index is not yet built")
	}
	return rpc.NewSuccess(req.ID, rpc.Result{Names: idx.Suggest(req.Query, limit)})
}

// handleBatch dispatches each sub-request exactly as it would be
// dispatched standalone, preserving Batch's input order in the output.
// Batched reads share ordinary per-request cache semantics rather than
// an atomic all-or-nothing snapshot — see DESIGN.md's resolution of the
// batch-eviction Open Question.
func handleBatch(ctx context.Context, st *State, req rpc.Request) rpc.Response {
	results := make([]rpc.Response, len(req.Batch))
	for i, sub := range req.Batch {
		results[i] = dispatch(ctx, st, sub)
	}
	return rpc.NewSuccess(req.ID, rpc.Result{Batch: results})
}
