package refresh

import (
	"github.com/arc-language/omg/internal/archdb"
	"github.com/arc-language/omg/internal/debdb"
	"github.com/arc-language/omg/internal/model"
	"github.com/arc-language/omg/internal/workerpool"
)

// snapshot is everything one refresh cycle reads off disk before it
// touches any shared state.
type snapshot struct {
	status       model.StatusResult
	catalog      []model.DetailedPackageInfo
	debCatalog   []model.DetailedPackageInfo
	explicit     []model.Package
	watchedMtime int64
}

// buildSnapshot reads every configured backend and joins sync/local
// records into the uniform catalog the package index is built from. A
// missing backend (e.g. no pacman on this host) contributes nothing and
// is not an error: both backends must degrade
// independently.
// buildSnapshot's four backend reads touch disjoint files, so they run
// on a small worker pool instead of one after another: a cycle's wall
// time is bounded by the slowest single read rather than their sum.
func buildSnapshot(cfg Config) snapshot {
	var snap snapshot

	pool := workerpool.New(4, 4)
	defer pool.Close()

	archSyncCh := make(chan []model.SyncPackage, 1)
	archLocalCh := make(chan []model.LocalPackage, 1)
	debSyncCh := make(chan []model.SyncPackage, 1)
	debLocalCh := make(chan []model.LocalPackage, 1)

	pool.Submit(func() {
		pkgs, _ := archdb.ReadSyncDir(cfg.ArchSyncDir)
		archSyncCh <- pkgs
	})
	pool.Submit(func() {
		pkgs, _ := archdb.ReadLocalDB(cfg.ArchLocalDir)
		archLocalCh <- pkgs
	})
	pool.Submit(func() {
		pkgs, _ := debdb.ReadPackagesDir(cfg.DebianListsDir)
		debSyncCh <- pkgs
	})
	pool.Submit(func() {
		pkgs, _ := debdb.ReadInstalled(cfg.DebianStatusFile, cfg.DebianExtStates)
		debLocalCh <- pkgs
	})

	archSync, archLocal := <-archSyncCh, <-archLocalCh
	debSync, debLocal := <-debSyncCh, <-debLocalCh

	snap.catalog = append(snap.catalog, joinArch(archSync, archLocal)...)
	snap.debCatalog = joinDeb(debSync, debLocal)
	snap.catalog = append(snap.catalog, snap.debCatalog...)

	for _, p := range archLocal {
		snap.status.TotalPackages++
		if p.Reason == model.ReasonExplicit {
			snap.status.ExplicitPackages++
		}
	}
	for _, p := range debLocal {
		snap.status.TotalPackages++
		if p.Reason == model.ReasonExplicit {
			snap.status.ExplicitPackages++
		}
	}
	snap.status.OrphanPackages = countOrphans(archLocal) + countOrphans(debLocal)
	snap.status.UpdatesAvailable = countUpdates(archSync, archLocal, archdb.CompareVersions) + countUpdates(debSync, debLocal, debdb.CompareVersions)

	snap.explicit = explicitPackages(archLocal, debLocal)
	snap.watchedMtime = newestMtime(cfg)
	return snap
}

// explicitPackages projects every explicitly-installed local record
// down to a Package, for the Explicit RPC's cache tier.
func explicitPackages(locals ...[]model.LocalPackage) []model.Package {
	var out []model.Package
	for _, list := range locals {
		for _, p := range list {
			if p.Reason != model.ReasonExplicit {
				continue
			}
			out = append(out, model.Package{
				Name:        p.Name,
				Version:     p.Version,
				Description: p.Description,
				Source:      model.SourceOfficial,
				Installed:   true,
			})
		}
	}
	return out
}

func countOrphans(pkgs []model.LocalPackage) int {
	n := 0
	for _, p := range pkgs {
		if p.Reason == model.ReasonDependency {
			n++
		}
	}
	return n
}

func countUpdates(sync []model.SyncPackage, local []model.LocalPackage, compare func(a, b string) int) int {
	syncByName := make(map[string]model.SyncPackage, len(sync))
	for _, s := range sync {
		syncByName[s.Name] = s
	}
	n := 0
	for _, l := range local {
		if s, ok := syncByName[l.Name]; ok && compare(s.Version, l.Version) > 0 {
			n++
		}
	}
	return n
}

func joinArch(sync []model.SyncPackage, local []model.LocalPackage) []model.DetailedPackageInfo {
	localByName := make(map[string]model.LocalPackage, len(local))
	for _, l := range local {
		localByName[l.Name] = l
	}
	out := make([]model.DetailedPackageInfo, 0, len(sync)+len(local))
	seen := make(map[string]bool, len(sync))
	for _, s := range sync {
		l, installed := localByName[s.Name]
		info := model.DetailedPackageInfo{
			Name: s.Name, Version: s.Version, Description: s.Description,
			URL: s.URL, InstallSize: s.InstallSize, DownloadSize: s.DownloadSize,
			Repo: s.Repo, Filename: s.Filename, Depends: s.Depends, Licenses: s.Licenses,
			Source: s.Source, Installed: installed,
		}
		if installed {
			info.Version = l.Version
		}
		out = append(out, info)
		seen[s.Name] = true
	}
	for _, l := range local {
		if seen[l.Name] {
			continue
		}
		out = append(out, model.DetailedPackageInfo{
			Name: l.Name, Version: l.Version, Description: l.Description,
			Source: model.SourceOfficial, Installed: true,
		})
	}
	return out
}

func joinDeb(sync []model.SyncPackage, local []model.LocalPackage) []model.DetailedPackageInfo {
	return joinArch(sync, local)
}

func newestMtime(cfg Config) int64 {
	newest := int64(0)
	for _, p := range []string{cfg.DebianStatusFile, cfg.DebianExtStates} {
		if m := debdb.FileMtime(p); m > newest {
			newest = m
		}
	}
	if m := archdb.DirMtime(cfg.ArchSyncDir); m > newest {
		newest = m
	}
	if m := archdb.DirMtime(cfg.ArchLocalDir); m > newest {
		newest = m
	}
	if m := archdb.DirMtime(cfg.DebianListsDir); m > newest {
		newest = m
	}
	return newest
}
