package archdb

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/arc-language/omg/internal/model"
)

// magic byte prefixes used to sniff compression.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// detectAndWrap peeks the first 4 bytes of r to choose a decompressor,
// returning a reader positioned at the start of the tar stream.
func detectAndWrap(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, 4096)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, err
	}

	switch {
	case len(head) >= 2 && head[0] == gzipMagic[0] && head[1] == gzipMagic[1]:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return gz, nil
	case len(head) >= 4 && string(head) == string(zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return br, nil
	}
}

// ReadSyncDB parses one Arch sync database (a tar archive, optionally
// gzip- or zstd-compressed, of one directory per package each holding a
// "desc" file) into SyncPackages labeled with repo.
//
// An unparseable package directory is dropped with a log line; ReadSyncDB
// never aborts on a single bad entry.
func ReadSyncDB(r io.Reader, repo string) ([]model.SyncPackage, error) {
	tr, err := detectAndWrap(r)
	if err != nil {
		return nil, err
	}
	archive := tar.NewReader(tr)

	var out []model.SyncPackage
	for {
		hdr, err := archive.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
		if !strings.HasSuffix(hdr.Name, "/desc") {
			continue
		}

		rec, err := parseDesc(archive)
		if err != nil {
			log.Printf("archdb: dropping unparseable package in %s: %v", repo, err)
			continue
		}

		out = append(out, model.SyncPackage{
			Name:         rec.Name,
			Version:      rec.Version,
			Description:  rec.Description,
			URL:          rec.URL,
			Licenses:     rec.Licenses,
			Depends:      rec.Depends,
			InstallSize:  rec.ISize,
			DownloadSize: rec.CSize,
			Repo:         repo,
			Filename:     rec.Filename,
			Source:       model.SourceOfficial,
		})
	}
	return out, nil
}

// ReadSyncDir parses every *.db file directly under dir, deriving each
// repo label from the file's stem (e.g. "core.db" -> "core"). A missing
// directory yields an empty slice, not an error.
func ReadSyncDir(dir string) ([]model.SyncPackage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []model.SyncPackage
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		repo := strings.TrimSuffix(e.Name(), ".db")

		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Printf("archdb: skipping %s: %v", e.Name(), err)
			continue
		}
		pkgs, err := ReadSyncDB(f, repo)
		f.Close()
		if err != nil {
			log.Printf("archdb: error reading %s: %v", e.Name(), err)
			continue
		}
		out = append(out, pkgs...)
	}
	return out, nil
}

// ReadLocalDB parses /var/lib/pacman/local: one subdirectory per installed
// package, each holding a "desc" file with INSTALLDATE/REASON. A missing
// directory yields an empty slice, not an error.
func ReadLocalDB(dir string) ([]model.LocalPackage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []model.LocalPackage
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		descPath := filepath.Join(dir, e.Name(), "desc")
		f, err := os.Open(descPath)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("archdb: skipping local entry %s: %v", e.Name(), err)
			}
			continue
		}
		rec, err := parseDesc(f)
		f.Close()
		if err != nil {
			log.Printf("archdb: dropping unparseable local entry %s: %v", e.Name(), err)
			continue
		}

		reason := model.ReasonDependency
		if rec.Reason == 0 {
			reason = model.ReasonExplicit
		}

		out = append(out, model.LocalPackage{
			Name:        rec.Name,
			Version:     rec.Version,
			Description: rec.Description,
			Reason:      reason,
			InstallDate: rec.InstallDate,
		})
	}
	return out, nil
}

// DirMtime returns the most recent modification time among dir and its
// immediate entries, used by the refresh worker to detect DB changes
// without re-parsing every file. A missing directory returns the zero
// time without error.
func DirMtime(dir string) (newest int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	if info, err := os.Stat(dir); err == nil {
		newest = info.ModTime().Unix()
	}
	for _, e := range entries {
		info, err := fs.Stat(os.DirFS(dir), e.Name())
		if err != nil {
			continue
		}
		if t := info.ModTime().Unix(); t > newest {
			newest = t
		}
	}
	return newest
}
