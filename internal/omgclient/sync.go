package omgclient

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/arc-language/omg/internal/rpc"
)

// SyncClient is a pool of connections to one socket path, owned by the
// SyncClient value (callers share one SyncClient to share its pool).
// Each connection has at most one borrower at a time: a
// caller Acquires a connection, uses it for exactly one request/response
// round trip, then Releases it back (or drops it on error, shrinking
// the pool rather than returning a possibly-desynced connection).
type SyncClient struct {
	path string

	mu   sync.Mutex
	idle []net.Conn
}

// NewSyncClient returns a SyncClient targeting the Unix socket at path.
// No connections are opened until the first Acquire.
func NewSyncClient(path string) *SyncClient {
	return &SyncClient{path: path}
}

// Acquire returns an idle pooled connection, or dials a new one if the
// pool is empty.
func (s *SyncClient) Acquire(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	if n := len(s.idle); n > 0 {
		conn := s.idle[n-1]
		s.idle = s.idle[:n-1]
		s.mu.Unlock()
		return conn, nil
	}
	s.mu.Unlock()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", s.path)
	if err != nil {
		return nil, fmt.Errorf("omgclient: dialing %s: %w", s.path, err)
	}
	return conn, nil
}

// Release returns conn to the idle pool for reuse. Callers must not use
// conn again after calling Release.
func (s *SyncClient) Release(conn net.Conn) {
	s.mu.Lock()
	s.idle = append(s.idle, conn)
	s.mu.Unlock()
}

// Discard closes conn without returning it to the pool, for use after a
// protocol error or a canceled call that left the connection's read
// state unknown.
func (s *SyncClient) Discard(conn net.Conn) {
	conn.Close()
}

// Call acquires a connection, performs one request/response round trip,
// and releases the connection back to the pool on success. On any
// error — including a canceled ctx — the connection is discarded rather
// than pooled.
func (s *SyncClient) Call(ctx context.Context, req rpc.Request) (rpc.Response, error) {
	conn, err := s.Acquire(ctx)
	if err != nil {
		return rpc.Response{}, err
	}

	encoded, err := rpc.Encode(req)
	if err != nil {
		s.Discard(conn)
		return rpc.Response{}, fmt.Errorf("omgclient: encoding request: %w", err)
	}

	type result struct {
		resp rpc.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		if err := rpc.WriteFrame(conn, encoded); err != nil {
			done <- result{err: fmt.Errorf("omgclient: writing request: %w", err)}
			return
		}
		payload, err := rpc.ReadFrame(conn, rpc.MaxFrameSize)
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
			s.Discard(conn)
			return rpc.Response{}, r.err
		}
		s.Release(conn)
		return r.resp, nil
	case <-ctx.Done():
		s.Discard(conn)
		return rpc.Response{}, ctx.Err()
	}
}

// Close closes every idle pooled connection.
func (s *SyncClient) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.idle {
		c.Close()
	}
	s.idle = nil
}
