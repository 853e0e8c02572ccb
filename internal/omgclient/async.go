// Package omgclient implements the client side of the omg wire
// protocol: an AsyncClient for one-shot typed calls, a SyncClient
// connection pool for high-throughput callers, and a fast-path Status
// helper that prefers the flat status file and falls back through the
// daemon to a direct database read.
package omgclient

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/arc-language/omg/internal/rpc"
)

// AsyncClient owns a single connection and issues one request at a time,
// matching the framed request/response protocol's lack of built-in
// multiplexing: a Batch request is how multiple logical queries share
// one round trip, not concurrent calls on one connection.
type AsyncClient struct {
	conn   net.Conn
	nextID atomic.Uint64
	mu     sync.Mutex
	closed bool
}

// Dial connects to the Unix socket at path.
func Dial(ctx context.Context, path string) (*AsyncClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("omgclient: dialing %s: %w", path, err)
	}
	return &AsyncClient{conn: conn}, nil
}

// Call sends req (stamping a fresh ID unless one is already set) and
// waits for the matching response. If ctx is canceled while the call is
// in flight, Call closes the underlying connection; a
// canceled call's connection is never returned to any pool or reused —
// rather than leaving it in an indeterminate read state for a future
// caller.
func (c *AsyncClient) Call(ctx context.Context, req rpc.Request) (rpc.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return rpc.Response{}, fmt.Errorf("omgclient: client is closed")
	}

	if req.ID == 0 {
		req.ID = c.nextID.Add(1)
	}

	encoded, err := rpc.Encode(req)
	if err != nil {
		return rpc.Response{}, fmt.Errorf("omgclient: encoding request: %w", err)
	}

	type result struct {
		resp rpc.Response
		err  error
	}
	done := make(chan result, 1)

	go func() {
		if err := rpc.WriteFrame(c.conn, encoded); err != nil {
			done <- result{err: fmt.Errorf("omgclient: writing request: %w", err)}
			return
		}
		payload, err := rpc.ReadFrame(c.conn, rpc.MaxFrameSize)
		if err != nil {
			done <- result{err: fmt.Errorf("omgclient: reading response: %w", err)}
			return
		}
		resp, err := rpc.DecodeResponse(payload)
		if err != nil {
			done <- result{err: fmt.Errorf("omgclient: decoding response: %w", err)}
			return
		}
		done <- result{resp: resp}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return rpc.Response{}, r.err
		}
		if r.resp.ID != req.ID {
			return rpc.Response{}, fmt.Errorf("omgclient: response id %d does not match request id %d", r.resp.ID, req.ID)
		}
		return r.resp, nil
	case <-ctx.Done():
		c.closed = true
		c.conn.Close()
		return rpc.Response{}, ctx.Err()
	}
}

// Close closes the underlying connection.
func (c *AsyncClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.conn.Close()
}

func (c *AsyncClient) callKind(ctx context.Context, req rpc.Request) (rpc.Response, error) {
	resp, err := c.Call(ctx, req)
	if err != nil {
		return rpc.Response{}, err
	}
	if !resp.Ok {
		return resp, &rpcError{resp.Error}
	}
	return resp, nil
}

type rpcError struct{ e *rpc.RPCError }

func (r *rpcError) Error() string {
	if r.e == nil {
		return "omgclient: unknown error"
	}
	return fmt.Sprintf("omgclient: rpc error %d: %s", r.e.Code, r.e.Message)
}

// Search issues a Search request.
func (c *AsyncClient) Search(ctx context.Context, query string, limit int) (rpc.Result, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindSearch, Query: query, Limit: limit})
	return resp.Result, err
}

// DebianSearch issues a DebianSearch request.
func (c *AsyncClient) DebianSearch(ctx context.Context, query string, limit int) (rpc.Result, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindDebianSearch, Query: query, Limit: limit})
	return resp.Result, err
}

// Info issues an Info request.
func (c *AsyncClient) Info(ctx context.Context, name string) (rpc.Result, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindInfo, Name: name})
	return resp.Result, err
}

// Status issues a Status request.
func (c *AsyncClient) Status(ctx context.Context) (rpc.Result, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindStatus})
	return resp.Result, err
}

// Explicit issues an Explicit request.
func (c *AsyncClient) Explicit(ctx context.Context) (rpc.Result, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindExplicit})
	return resp.Result, err
}

// ExplicitCount issues an ExplicitCount request.
func (c *AsyncClient) ExplicitCount(ctx context.Context) (rpc.Result, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindExplicitCount})
	return resp.Result, err
}

// Suggest issues a Suggest request.
func (c *AsyncClient) Suggest(ctx context.Context, prefix string, limit int) (rpc.Result, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindSuggest, Query: prefix, Limit: limit})
	return resp.Result, err
}

// Ping issues a Ping request.
func (c *AsyncClient) Ping(ctx context.Context) error {
	_, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindPing})
	return err
}

// CacheStats issues a CacheStats request.
func (c *AsyncClient) CacheStats(ctx context.Context) (rpc.Result, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindCacheStats})
	return resp.Result, err
}

// CacheClear issues a CacheClear request.
func (c *AsyncClient) CacheClear(ctx context.Context) error {
	_, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindCacheClear})
	return err
}

// Metrics issues a Metrics request.
func (c *AsyncClient) Metrics(ctx context.Context) (rpc.Result, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindMetrics})
	return resp.Result, err
}

// Batch issues every sub-request as one round trip, returning results in
// the same order they were submitted.
func (c *AsyncClient) Batch(ctx context.Context, reqs []rpc.Request) ([]rpc.Response, error) {
	resp, err := c.callKind(ctx, rpc.Request{Kind: rpc.KindBatch, Batch: reqs})
	if err != nil {
		return nil, err
	}
	return resp.Result.Batch, nil
}
