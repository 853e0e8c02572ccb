// Command omgd is the omg background daemon: it holds the package index,
// mmap archive, multi-tier cache, and persistent KV store behind a
// Unix-socket RPC server, refreshed on a schedule by internal/refresh.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/arc-language/omg/internal/cache"
	"github.com/arc-language/omg/internal/config"
	"github.com/arc-language/omg/internal/daemon"
	"github.com/arc-language/omg/internal/kvstore"
	"github.com/arc-language/omg/internal/paths"
	"github.com/arc-language/omg/internal/refresh"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: $HOME/.config/omg/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("omgd: loading config: %v", err)
	}
	if cfg.Debug {
		cfg.Logger = log.New(os.Stderr, "[omgd] ", log.LstdFlags)
	}

	if err := paths.EnsureDataDir(); err != nil {
		log.Fatalf("omgd: creating data dir: %v", err)
	}

	kv, err := kvstore.Open(paths.KVStorePath())
	if err != nil {
		log.Fatalf("omgd: opening kvstore: %v", err)
	}
	defer kv.Close()

	c := cache.New(cfg.CacheMaxSize, cfg.CacheTTL, cfg.StatusTTL)
	st := daemon.NewState(c, kv)

	worker := refresh.NewWorker(st.Index, st.DebIndex, st.Mmap, c, kv, refresh.Config{
		TickInterval:    cfg.RefreshInterval,
		MmapIdleTimeout: cfg.MmapIdleTimeout,
		StatusPath:      paths.FlatStatusPath(),
		MmapPath:        paths.MmapIndexPath(),
	})
	st.Refresh = worker

	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = paths.SocketPath()
	}
	l, err := daemon.Listen(socketPath)
	if err != nil {
		log.Fatalf("omgd: listening on %s: %v", socketPath, err)
	}
	defer os.Remove(socketPath)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go worker.Run(ctx)

	log.Printf("omgd: listening on %s", socketPath)
	if err := daemon.Serve(ctx, l, st); err != nil {
		fmt.Fprintf(os.Stderr, "omgd: %v\n", err)
		os.Exit(1)
	}
	log.Printf("omgd: shut down cleanly")
}
