package omgclient_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arc-language/omg/internal/cache"
	"github.com/arc-language/omg/internal/daemon"
	"github.com/arc-language/omg/internal/model"
	"github.com/arc-language/omg/internal/omgclient"
	"github.com/arc-language/omg/internal/pkgindex"
	"github.com/arc-language/omg/internal/rpc"
)

func startServer(t *testing.T) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "omg.sock")

	st := daemon.NewState(cache.New(100, time.Minute, time.Minute), nil)
	idx := pkgindex.Build([]model.DetailedPackageInfo{
		{Name: "curl", Version: "8.0-1", Description: "transfer tool"},
	})
	st.Index.Store(idx)

	l, err := daemon.Listen(socketPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		daemon.Serve(ctx, l, st)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return socketPath
}

func TestAsyncClientSearch(t *testing.T) {
	socketPath := startServer(t)
	ctx := context.Background()

	client, err := omgclient.Dial(ctx, socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	result, err := client.Search(ctx, "curl", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Packages) == 0 || result.Packages[0].Name != "curl" {
		t.Fatalf("unexpected search result: %+v", result)
	}
}

func TestAsyncClientPingAndBatch(t *testing.T) {
	socketPath := startServer(t)
	ctx := context.Background()

	client, err := omgclient.Dial(ctx, socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	resps, err := client.Batch(ctx, []rpc.Request{
		{Kind: rpc.KindPing},
		{Kind: rpc.KindSearch, Query: "curl", Limit: 5},
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(resps) != 2 {
		t.Fatalf("expected 2 batch responses, got %d", len(resps))
	}
	if !resps[0].Result.Pong {
		t.Errorf("expected first batch response to be a pong")
	}
	if len(resps[1].Result.Packages) == 0 {
		t.Errorf("expected second batch response to carry search results")
	}
}

func TestAsyncClientInfoNotFoundSurfacesRPCError(t *testing.T) {
	socketPath := startServer(t)
	ctx := context.Background()

	client, err := omgclient.Dial(ctx, socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	_, err = client.Info(ctx, "doesnotexist")
	if err == nil {
		t.Fatal("expected an error for a missing package")
	}
}

func TestSyncClientCallReleasesConnectionForReuse(t *testing.T) {
	socketPath := startServer(t)
	ctx := context.Background()

	sc := omgclient.NewSyncClient(socketPath)
	defer sc.Close()

	for i := 0; i < 3; i++ {
		resp, err := sc.Call(ctx, rpc.Request{ID: uint64(i + 1), Kind: rpc.KindPing})
		if err != nil {
			t.Fatalf("Call %d: %v", i, err)
		}
		if !resp.Ok || !resp.Result.Pong {
			t.Fatalf("unexpected response at iteration %d: %+v", i, resp)
		}
	}
}

func TestAsyncClientCallCancellationClosesConnection(t *testing.T) {
	socketPath := startServer(t)

	client, err := omgclient.Dial(context.Background(), socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Call(ctx, rpc.Request{Kind: rpc.KindPing})
	if err == nil {
		t.Fatal("expected cancellation to surface an error")
	}

	// A second call on the same (now-closed) client must fail rather than
	// silently reuse a connection in an unknown state.
	_, err = client.Call(context.Background(), rpc.Request{Kind: rpc.KindPing})
	if err == nil {
		t.Fatal("expected calls after cancellation to fail, not reuse the connection")
	}
}
