// Command omgctl is a thin probe for the omg daemon's client package: it
// is not the interactive CLI/TUI (that remains out of scope), just a
// demonstration of the fast-path Status lookup and a Search round trip.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/arc-language/omg/internal/model"
	"github.com/arc-language/omg/internal/omgclient"
	"github.com/arc-language/omg/internal/paths"
	"github.com/arc-language/omg/internal/rpc"
)

func main() {
	search := flag.String("search", "", "Search for packages by keyword")
	debianSearch := flag.String("debian-search", "", "Search only the Debian/apt catalog")
	limit := flag.Int("limit", 20, "Maximum number of results")
	status := flag.Bool("status", false, "Print the system package status summary")
	timeout := flag.Duration("timeout", 5*time.Second, "Request timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch {
	case *status:
		runStatus(ctx)
	case *search != "":
		runSearch(ctx, *search, *limit, false)
	case *debianSearch != "":
		runSearch(ctx, *debianSearch, *limit, true)
	default:
		fmt.Println("omgctl - probe for the omg package query daemon")
		fmt.Println()
		fmt.Println("Usage: omgctl -status")
		fmt.Println("   or: omgctl -search=<keyword> [-limit=N]")
		fmt.Println("   or: omgctl -debian-search=<keyword> [-limit=N]")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}
}

func runStatus(ctx context.Context) {
	result, err := omgclient.Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "omgctl: status: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("total: %d  explicit: %d  orphans: %d  updates available: %d\n",
		result.TotalPackages, result.ExplicitPackages, result.OrphanPackages, result.UpdatesAvailable)
}

func runSearch(ctx context.Context, query string, limit int, debian bool) {
	socketPath := paths.SocketPath()
	client, err := omgclient.Dial(ctx, socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "omgctl: dialing daemon at %s: %v\n", socketPath, err)
		os.Exit(1)
	}
	defer client.Close()

	var res rpc.Result
	if debian {
		res, err = client.DebianSearch(ctx, query, limit)
	} else {
		res, err = client.Search(ctx, query, limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "omgctl: search: %v\n", err)
		os.Exit(1)
	}
	printPackages(res.Packages)
}

func printPackages(pkgs []model.Package) {
	if len(pkgs) == 0 {
		fmt.Println("no matches")
		return
	}
	for _, p := range pkgs {
		marker := " "
		if p.Installed {
			marker = "*"
		}
		fmt.Printf("%s %-30s %-15s %s\n", marker, p.Name, p.Version, p.Description)
	}
}
