package daemon

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/arc-language/omg/internal/rpc"
)

// RequestTimeout bounds how long Dispatch may take to answer a single
// (non-batch) request before the connection handler synthesizes a
// timeout error.
const RequestTimeout = 30 * time.Second

// Listen resolves and binds the Unix domain socket at path, removing any
// stale socket file left behind by a prior unclean shutdown, and sets
// 0600 permissions so only the owning user can connect.
func Listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// Serve accepts connections on l until ctx is canceled, handling each on
// its own goroutine. On cancellation it stops accepting, waits for
// in-flight handlers to finish (bounded by RequestTimeout), and returns.
func Serve(ctx context.Context, l net.Listener, st *State) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			log.Printf("daemon: accept error: %v", err)
			continue
		}

		st.Metrics.connOpened()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer st.Metrics.connClosed()
			handleConn(ctx, conn, st)
		}()
	}

	wg.Wait()
	return nil
}

func handleConn(ctx context.Context, conn net.Conn, st *State) {
	defer conn.Close()

	// Close the connection on shutdown so a handler blocked reading from
	// an idle client returns instead of holding up Serve's drain.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-connDone:
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		payload, err := rpc.ReadFrame(conn, rpc.MaxFrameSize)
		if err != nil {
			if err != io.EOF {
				log.Printf("daemon: reading frame: %v", err)
			}
			return
		}

		req, err := rpc.DecodeRequest(payload)
		if err != nil {
			writeErrorAndClose(conn, 0, rpc.CodeParseError, "malformed request")
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
		resp := Dispatch(reqCtx, st, req)
		cancel()

		encoded, err := rpc.Encode(resp)
		if err != nil {
			log.Printf("daemon: encoding response: %v", err)
			return
		}
		if err := rpc.WriteFrame(conn, encoded); err != nil {
			log.Printf("daemon: writing frame: %v", err)
			return
		}
	}
}

func writeErrorAndClose(conn net.Conn, id uint64, code int32, message string) {
	resp := rpc.NewError(id, code, message)
	encoded, err := rpc.Encode(resp)
	if err != nil {
		return
	}
	_ = rpc.WriteFrame(conn, encoded)
}
