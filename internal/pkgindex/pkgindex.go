// Package pkgindex holds the full package catalog in a single
// string-interned, immutable structure built once per refresh cycle and
// swapped in by the daemon via an atomic.Pointer, never mutated in place.
package pkgindex

import (
	"sort"
	"strings"

	"github.com/arc-language/omg/internal/model"
)

// compactEntry stores one package as byte-pool offsets rather than
// strings, so Len() packages cost one shared []byte plus a fixed-size
// struct per entry instead of per-field heap strings.
type compactEntry struct {
	nameOff, nameLen           uint32
	versionOff, versionLen     uint32
	descOff, descLen           uint32
	urlOff, urlLen             uint32
	repoOff, repoLen           uint32
	filenameOff, filenameLen  uint32
	installSize, downloadSize int64
	source                    model.Source
	installed                 bool
	insertionIndex            int
}

// Index is an immutable, string-interned snapshot of every known
// package. It has no mutating methods: a new catalog is always Build'n
// fresh and published by swapping a pointer, never patched in place.
type Index struct {
	pool     []byte
	entries  []compactEntry
	byName   map[string]int // name -> index into entries
	depsFlat [][]string
	licFlat  [][]string
}

func internField(pool *[]byte, offsets map[string]uint32, s string) (off, length uint32) {
	if s == "" {
		return 0, 0
	}
	if o, ok := offsets[s]; ok {
		return o, uint32(len(s))
	}
	off = uint32(len(*pool))
	*pool = append(*pool, s...)
	offsets[s] = off
	return off, uint32(len(s))
}

// Build interns every package's strings into a shared byte pool and
// constructs the compact per-entry table plus the name lookup map. The
// resulting Index is read-only; build a new one and swap it in to
// reflect updated data.
func Build(pkgs []model.DetailedPackageInfo) *Index {
	idx := &Index{
		byName: make(map[string]int, len(pkgs)),
	}
	offsets := make(map[string]uint32, len(pkgs)*3)

	idx.entries = make([]compactEntry, len(pkgs))
	idx.depsFlat = make([][]string, len(pkgs))
	idx.licFlat = make([][]string, len(pkgs))

	for i, p := range pkgs {
		e := compactEntry{insertionIndex: i, installSize: p.InstallSize, downloadSize: p.DownloadSize, source: p.Source, installed: p.Installed}
		e.nameOff, e.nameLen = internField(&idx.pool, offsets, p.Name)
		e.versionOff, e.versionLen = internField(&idx.pool, offsets, p.Version)
		e.descOff, e.descLen = internField(&idx.pool, offsets, p.Description)
		e.urlOff, e.urlLen = internField(&idx.pool, offsets, p.URL)
		e.repoOff, e.repoLen = internField(&idx.pool, offsets, p.Repo)
		e.filenameOff, e.filenameLen = internField(&idx.pool, offsets, p.Filename)

		idx.depsFlat[i] = p.Depends
		idx.licFlat[i] = p.Licenses

		idx.entries[i] = e
		// Last write wins on duplicate names, matching a later refresh
		// cycle's package list overriding an earlier duplicate entry.
		idx.byName[p.Name] = i
	}

	return idx
}

func (idx *Index) field(off, length uint32) string {
	if length == 0 {
		return ""
	}
	return string(idx.pool[off : off+length])
}

func (idx *Index) toDetailed(e compactEntry) model.DetailedPackageInfo {
	return model.DetailedPackageInfo{
		Name:         idx.field(e.nameOff, e.nameLen),
		Version:      idx.field(e.versionOff, e.versionLen),
		Description:  idx.field(e.descOff, e.descLen),
		URL:          idx.field(e.urlOff, e.urlLen),
		InstallSize:  e.installSize,
		DownloadSize: e.downloadSize,
		Repo:         idx.field(e.repoOff, e.repoLen),
		Filename:     idx.field(e.filenameOff, e.filenameLen),
		Depends:      idx.depsFlat[e.insertionIndex],
		Licenses:     idx.licFlat[e.insertionIndex],
		Source:       e.source,
		Installed:    e.installed,
	}
}

// Get looks up a package by exact name.
func (idx *Index) Get(name string) (model.DetailedPackageInfo, bool) {
	i, ok := idx.byName[name]
	if !ok {
		return model.DetailedPackageInfo{}, false
	}
	return idx.toDetailed(idx.entries[i]), true
}

// Len returns the number of packages in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// rank computes the match tier for query against a package's name and
// description, per the relevance rule: 4 exact name match, 3 name has
// query as a prefix, 2 query matches at a word boundary inside the name,
// 1 query is a substring anywhere in the name, 0 query only matches the
// description. A return of -1 means no match at all.
func rank(query, name, desc string) int {
	lq := strings.ToLower(query)
	ln := strings.ToLower(name)

	switch {
	case ln == lq:
		return 4
	case strings.HasPrefix(ln, lq):
		return 3
	case wordBoundaryMatch(ln, lq):
		return 2
	case strings.Contains(ln, lq):
		return 1
	case strings.Contains(strings.ToLower(desc), lq):
		return 0
	default:
		return -1
	}
}

// wordBoundaryMatch reports whether lq occurs in ln immediately after a
// non-alphanumeric separator (-, _, .), e.g. "curl" matching inside
// "lib-curl-dev".
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

type scoredEntry struct {
	entryIdx int
	r        int
}

// Search returns up to limit packages matching query, ordered by
// descending relevance rank; ties break by shorter name length, then by
// lower original insertion index, so repeated searches over an unchanged
// Index are fully deterministic.
func (idx *Index) Search(query string, limit int) []model.Package {
	if query == "" || limit <= 0 {
		return nil
	}

	var matches []scoredEntry
	for i, e := range idx.entries {
		name := idx.field(e.nameOff, e.nameLen)
		desc := idx.field(e.descOff, e.descLen)
		r := rank(query, name, desc)
		if r < 0 {
			continue
		}
		matches = append(matches, scoredEntry{entryIdx: i, r: r})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.r != b.r {
			return a.r > b.r
		}
		ea, eb := idx.entries[a.entryIdx], idx.entries[b.entryIdx]
		if ea.nameLen != eb.nameLen {
			return ea.nameLen < eb.nameLen
		}
		return ea.insertionIndex < eb.insertionIndex
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]model.Package, len(matches))
	for i, m := range matches {
		e := idx.entries[m.entryIdx]
		out[i] = model.Package{
			Name:        idx.field(e.nameOff, e.nameLen),
			Version:     idx.field(e.versionOff, e.versionLen),
			Description: idx.field(e.descOff, e.descLen),
			Source:      e.source,
			Installed:   e.installed,
		}
	}
	return out
}

// Suggest returns up to limit package names whose name has prefix as a
// prefix, shortest name first then insertion order, for shell completion.
func (idx *Index) Suggest(prefix string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	lp := strings.ToLower(prefix)

	type cand struct {
		name string
		idx  int
		len  int
	}
	var cands []cand
	for i, e := range idx.entries {
		name := idx.field(e.nameOff, e.nameLen)
		if strings.HasPrefix(strings.ToLower(name), lp) {
			cands = append(cands, cand{name: name, idx: i, len: len(name)})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].len != cands[j].len {
			return cands[i].len < cands[j].len
		}
		return cands[i].idx < cands[j].idx
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.name
	}
	return out
}
