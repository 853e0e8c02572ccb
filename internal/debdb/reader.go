package debdb

import (
	"os"
	"path/filepath"

	"github.com/arc-language/omg/internal/model"
)

// ReadPackagesDir parses every file directly under dir (apt keeps
// per-repository Packages files under /var/lib/apt/lists), merging the
// results. A missing directory yields an empty slice, not an error.
func ReadPackagesDir(dir string) ([]model.SyncPackage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []model.SyncPackage
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		pkgs, err := ParsePackages(f)
		f.Close()
		if err != nil {
			continue
		}
		out = append(out, pkgs...)
	}
	return out, nil
}

// ReadInstalled parses statusPath and extStatesPath together, producing
// the final LocalPackage list with Reason correctly split between
// explicit and automatically-installed dependencies. A missing status
// file yields an empty result and a missing or unreadable extended_states
// file leaves every installed package explicit; neither is an error.
func ReadInstalled(statusPath, extStatesPath string) ([]model.LocalPackage, error) {
	statusFile, err := os.Open(statusPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer statusFile.Close()

	pkgs, err := ReadStatus(statusFile)
	if err != nil {
		return nil, err
	}

	autoInstalled := map[string]bool{}
	if extFile, err := os.Open(extStatesPath); err == nil {
		autoInstalled, err = ReadExtendedStates(extFile)
		extFile.Close()
		if err != nil {
			autoInstalled = map[string]bool{}
		}
	}

	ApplyAutoInstalled(pkgs, autoInstalled)
	return pkgs, nil
}

// FileMtime returns path's modification time in unix seconds, or 0 if the
// file does not exist. Used by the refresh worker to detect status/lists
// changes cheaply via fsnotify plus a stat check.
func FileMtime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}
