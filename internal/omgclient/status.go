package omgclient

import (
	"context"
	"fmt"

	"github.com/arc-language/omg/internal/archdb"
	"github.com/arc-language/omg/internal/debdb"
	"github.com/arc-language/omg/internal/flatstatus"
	"github.com/arc-language/omg/internal/model"
	"github.com/arc-language/omg/internal/paths"
	"github.com/arc-language/omg/internal/rpc"
)

// Status answers a status query via the fastest available source, in
// order: the flat status file (if fresh), a running daemon over its
// socket, then a direct read of the underlying package databases. This
// is the client-side honoring of OMG_DISABLE_DAEMON=1, which skips the
// daemon step: the flat status file is still tried first, then the
// direct-read fallback.
func Status(ctx context.Context) (model.StatusResult, error) {
	if rec, ok := flatstatus.Read(paths.FlatStatusPath()); ok {
		return model.StatusResult{
			TotalPackages:    int(rec.Total),
			ExplicitPackages: int(rec.Explicit),
			OrphanPackages:   int(rec.Orphans),
			UpdatesAvailable: int(rec.UpdatesAvailable),
		}, nil
	}

	if !paths.DaemonDisabled() {
		if result, err := statusViaDaemon(ctx); err == nil {
			return result, nil
		}
	}

	return statusDirect()
}

func statusViaDaemon(ctx context.Context) (model.StatusResult, error) {
	client, err := Dial(ctx, paths.SocketPath())
	if err != nil {
		return model.StatusResult{}, err
	}
	defer client.Close()

	resp, err := client.callKind(ctx, rpc.Request{Kind: rpc.KindStatus})
	if err != nil {
		return model.StatusResult{}, err
	}
	if resp.Result.Status == nil {
		return model.StatusResult{}, fmt.Errorf("omgclient: daemon returned an empty status")
	}
	return *resp.Result.Status, nil
}

// statusDirect recomputes a StatusResult straight from the on-disk Arch
// and Debian databases, with no caching, for use when neither the flat
// status file nor the daemon is available.
func statusDirect() (model.StatusResult, error) {
	var result model.StatusResult

	if localPkgs, err := archdb.ReadLocalDB(paths.ArchLocalDir); err == nil {
		for _, p := range localPkgs {
			result.TotalPackages++
			if p.Reason == model.ReasonExplicit {
				result.ExplicitPackages++
			}
		}
	}

	if debPkgs, err := debdb.ReadInstalled(paths.DebianStatusFile, paths.DebianExtStates); err == nil {
		for _, p := range debPkgs {
			result.TotalPackages++
			if p.Reason == model.ReasonExplicit {
				result.ExplicitPackages++
			}
		}
	}

	return result, nil
}
