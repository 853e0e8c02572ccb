// Package mmapindex persists a pkgindex.Index to a flat, mmap-friendly
// binary file so a cold daemon restart (or a short-lived client in
// direct-read mode) can serve searches without re-parsing every package
// database.
package mmapindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/arc-language/omg/internal/atomicfile"
	"github.com/arc-language/omg/internal/model"
)

const (
	magic       uint32 = 0x4f4d4958 // "OMIX"
	formatVersion uint8 = 1
	headerSize  = 16 // magic(4) + version(1) + pad(3) + count(4) + poolLen(4)
)

// IntegrityError reports a corrupt or truncated mmap index file.
type IntegrityError struct {
	Path   string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("mmapindex: %s: %s", e.Path, e.Reason)
}

// onDiskEntry is the fixed-size record written per package, sorted by
// name so MappedIndex.Get can binary-search without decoding the pool.
type onDiskEntry struct {
	nameOff, nameLen         uint32
	versionOff, versionLen   uint32
	descOff, descLen         uint32
	urlOff, urlLen           uint32
	repoOff, repoLen         uint32
	filenameOff, filenameLen uint32
	installSize, downloadSize int64
	installed                uint8
	source                   uint8
	_pad                     [6]byte
}

const entrySize = 4*12 + 8*2 + 1 + 1 + 6 // = 48+16+8 = 72

func writeUint32(buf []byte, off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }
func writeUint64(buf []byte, off int, v uint64) { binary.LittleEndian.PutUint64(buf[off:], v) }
func readUint32(buf []byte, off int) uint32     { return binary.LittleEndian.Uint32(buf[off:]) }
func readUint64(buf []byte, off int) uint64     { return binary.LittleEndian.Uint64(buf[off:]) }

func sourceByte(s model.Source) uint8 {
	if s == model.SourceThirdParty {
		return 1
	}
	return 0
}

func byteSource(b uint8) model.Source {
	if b == 1 {
		return model.SourceThirdParty
	}
	return model.SourceOfficial
}

func marshalEntry(e onDiskEntry) []byte {
	buf := make([]byte, entrySize)
	writeUint32(buf, 0, e.nameOff)
	writeUint32(buf, 4, e.nameLen)
	writeUint32(buf, 8, e.versionOff)
	writeUint32(buf, 12, e.versionLen)
	writeUint32(buf, 16, e.descOff)
	writeUint32(buf, 20, e.descLen)
	writeUint32(buf, 24, e.urlOff)
	writeUint32(buf, 28, e.urlLen)
	writeUint32(buf, 32, e.repoOff)
	writeUint32(buf, 36, e.repoLen)
	writeUint32(buf, 40, e.filenameOff)
	writeUint32(buf, 44, e.filenameLen)
	writeUint64(buf, 48, uint64(e.installSize))
	writeUint64(buf, 56, uint64(e.downloadSize))
	buf[64] = e.installed
	buf[65] = e.source
	return buf
}

func unmarshalEntry(buf []byte) onDiskEntry {
	var e onDiskEntry
	e.nameOff = readUint32(buf, 0)
	e.nameLen = readUint32(buf, 4)
	e.versionOff = readUint32(buf, 8)
	e.versionLen = readUint32(buf, 12)
	e.descOff = readUint32(buf, 16)
	e.descLen = readUint32(buf, 20)
	e.urlOff = readUint32(buf, 24)
	e.urlLen = readUint32(buf, 28)
	e.repoOff = readUint32(buf, 32)
	e.repoLen = readUint32(buf, 36)
	e.filenameOff = readUint32(buf, 40)
	e.filenameLen = readUint32(buf, 44)
	e.installSize = int64(readUint64(buf, 48))
	e.downloadSize = int64(readUint64(buf, 56))
	e.installed = buf[64]
	e.source = buf[65]
	return e
}

// Save serializes pkgs (the same records the in-memory pkgindex.Index is
// built from) into a sorted-by-name, mmap-ready binary file at path: header, entry table,
// then a single string pool. The write goes through a temp sibling file
// and atomic rename so a reader never observes a partial file.
func Save(pkgs []model.DetailedPackageInfo, path string) error {
	sorted := make([]model.DetailedPackageInfo, len(pkgs))
	copy(sorted, pkgs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var pool bytes.Buffer
	offsets := make(map[string]uint32, len(sorted)*3)

	intern := func(s string) (uint32, uint32) {
		if s == "" {
			return 0, 0
		}
		if off, ok := offsets[s]; ok {
			return off, uint32(len(s))
		}
		off := uint32(pool.Len())
		pool.WriteString(s)
		offsets[s] = off
		return off, uint32(len(s))
	}

	entries := make([]byte, 0, len(sorted)*entrySize)
	for _, p := range sorted {
		var e onDiskEntry
		e.nameOff, e.nameLen = intern(p.Name)
		e.versionOff, e.versionLen = intern(p.Version)
		e.descOff, e.descLen = intern(p.Description)
		e.urlOff, e.urlLen = intern(p.URL)
		e.repoOff, e.repoLen = intern(p.Repo)
		e.filenameOff, e.filenameLen = intern(p.Filename)
		e.installSize = p.InstallSize
		e.downloadSize = p.DownloadSize
		e.source = sourceByte(p.Source)
		if p.Installed {
			e.installed = 1
		}
		entries = append(entries, marshalEntry(e)...)
	}

	header := make([]byte, headerSize)
	writeUint32(header, 0, magic)
	header[4] = formatVersion
	writeUint32(header, 8, uint32(len(sorted)))
	writeUint32(header, 12, uint32(pool.Len()))

	out := make([]byte, 0, headerSize+len(entries)+pool.Len())
	out = append(out, header...)
	out = append(out, entries...)
	out = append(out, pool.Bytes()...)

	return atomicfile.Write(path, out, 0o644)
}

// MappedIndex serves Get/Search directly from an mmap'd file without
// copying the string pool into the Go heap.
type MappedIndex struct {
	data         mmap.MMap
	count        int
	pool         []byte
	entriesStart int
	lastAccess   atomic.Int64
}

// Open mmaps path and validates its header. A corrupt or truncated file
// yields an *IntegrityError so the caller can fall back to an in-memory
// pkgindex.Index instead.
func Open(path string) (*MappedIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}

	if len(data) < headerSize {
		data.Unmap()
		return nil, &IntegrityError{Path: path, Reason: "file shorter than header"}
	}
	if readUint32(data, 0) != magic {
		data.Unmap()
		return nil, &IntegrityError{Path: path, Reason: "bad magic"}
	}
	if data[4] != formatVersion {
		data.Unmap()
		return nil, &IntegrityError{Path: path, Reason: "unsupported version"}
	}
	count := int(readUint32(data, 8))
	poolLen := int(readUint32(data, 12))

	entriesStart := headerSize
	entriesEnd := entriesStart + count*entrySize
	poolStart := entriesEnd
	poolEnd := poolStart + poolLen
	if len(data) < poolEnd {
		data.Unmap()
		return nil, &IntegrityError{Path: path, Reason: "file shorter than declared entry/pool size"}
	}

	mi := &MappedIndex{
		data:         data,
		count:        count,
		pool:         data[poolStart:poolEnd],
		entriesStart: entriesStart,
	}
	mi.Touch()
	return mi, nil
}

func (mi *MappedIndex) entryAt(i int) onDiskEntry {
	off := mi.entriesStart + i*entrySize
	return unmarshalEntry(mi.data[off : off+entrySize])
}

func (mi *MappedIndex) field(off, length uint32) string {
	if length == 0 {
		return ""
	}
	return string(mi.pool[off : off+length])
}

func (mi *MappedIndex) nameAt(i int) string {
	e := mi.entryAt(i)
	return mi.field(e.nameOff, e.nameLen)
}

func (mi *MappedIndex) toPackage(e onDiskEntry) model.Package {
	return model.Package{
		Name:        mi.field(e.nameOff, e.nameLen),
		Version:     mi.field(e.versionOff, e.versionLen),
		Description: mi.field(e.descOff, e.descLen),
		Source:      byteSource(e.source),
		Installed:   e.installed == 1,
	}
}

// Get binary-searches the sorted-by-name entry table for an exact match.
func (mi *MappedIndex) Get(name string) (model.Package, bool) {
	mi.Touch()
	i := sort.Search(mi.count, func(i int) bool { return mi.nameAt(i) >= name })
	if i < mi.count && mi.nameAt(i) == name {
		return mi.toPackage(mi.entryAt(i)), true
	}
	return model.Package{}, false
}

// Search performs a linear relevance scan (mirroring pkgindex.Index's
// ranking) directly over the mapped entries, used for direct-read mode
// without a daemon.
func (mi *MappedIndex) Search(query string, limit int) []model.Package {
	mi.Touch()
	if query == "" || limit <= 0 {
		return nil
	}
	lq := strings.ToLower(query)

	type scored struct {
		idx int
		r   int
	}
	var matches []scored
	for i := 0; i < mi.count; i++ {
		e := mi.entryAt(i)
		name := strings.ToLower(mi.field(e.nameOff, e.nameLen))
		desc := strings.ToLower(mi.field(e.descOff, e.descLen))
		r := -1
		switch {
		case name == lq:
			r = 4
		case strings.HasPrefix(name, lq):
			r = 3
		case wordBoundaryMatch(name, lq):
			r = 2
		case strings.Contains(name, lq):
			r = 1
		case strings.Contains(desc, lq):
			r = 0
		}
		if r >= 0 {
			matches = append(matches, scored{idx: i, r: r})
		}
	}
	sort.Slice(matches, func(a, b int) bool {
		if matches[a].r != matches[b].r {
			return matches[a].r > matches[b].r
		}
		ea, eb := mi.entryAt(matches[a].idx), mi.entryAt(matches[b].idx)
		if ea.nameLen != eb.nameLen {
			return ea.nameLen < eb.nameLen
		}
		return matches[a].idx < matches[b].idx
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]model.Package, len(matches))
	for i, m := range matches {
		out[i] = mi.toPackage(mi.entryAt(m.idx))
	}
	return out
}

// wordBoundaryMatch reports whether lq occurs in ln immediately after a
// non-alphanumeric separator (-, _, .), e.g. "curl" matching inside
// "lib-curl-dev". Mirrors pkgindex.wordBoundaryMatch so direct-read mode
// ranks identically to a live daemon's in-memory index.
func wordBoundaryMatch(ln, lq string) bool {
	if lq == "" {
		return false
	}
	idx := 0
	for {
		pos := strings.Index(ln[idx:], lq)
		if pos < 0 {
			return false
		}
		abs := idx + pos
		if abs > 0 {
			c := ln[abs-1]
			if c == '-' || c == '_' || c == '.' {
				return true
			}
		}
		idx = abs + 1
		if idx >= len(ln) {
			return false
		}
	}
}

// Len returns the number of packages in the mapped file.
func (mi *MappedIndex) Len() int { return mi.count }

// Touch records the current time (from nowFunc, which tests override;
// in production it is time.Now().UnixNano()) as the last access, for
// the daemon's idle sweeper.
func (mi *MappedIndex) Touch() {
	mi.lastAccess.Store(nowFunc())
}

// LastAccess returns the unix-nanosecond timestamp of the last Get,
// Search, or Touch call.
func (mi *MappedIndex) LastAccess() int64 {
	return mi.lastAccess.Load()
}

// Close unmaps the underlying file.
func (mi *MappedIndex) Close() error {
	return mi.data.Unmap()
}

// nowFunc is overridden in tests to avoid depending on wall-clock timing.
var nowFunc = func() int64 {
	return time.Now().UnixNano()
}

var _ io.Closer = (*MappedIndex)(nil)
