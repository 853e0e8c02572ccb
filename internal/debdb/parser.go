// Package debdb reads Debian apt-style Packages/status files and the
// extended_states auto-install marker file, without shelling out to dpkg
// or apt.
package debdb

import (
	"bufio"
	"io"
	"log"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/arc-language/omg/internal/model"
)

// paragraph is the raw field map of one RFC822-style stanza.
type paragraph map[string]string

// parallelThreshold is the paragraph count above which ParsePackages
// splits work across a worker pool instead of converting paragraphs
// inline.
const parallelThreshold = 100

// splitParagraphs scans r for blank-line-separated stanzas, joining
// continuation lines (leading space/tab) back onto the previous field.
// Returns raw paragraphs so callers can fan them out to a worker pool
// instead of building records inline.
func splitParagraphs(r io.Reader) ([]paragraph, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var paragraphs []paragraph
	var cur paragraph
	var lastField string

	flush := func() {
		if cur != nil && len(cur) > 0 {
			paragraphs = append(paragraphs, cur)
		}
		cur = nil
		lastField = ""
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			flush()
			continue
		}

		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if cur != nil && lastField != "" {
				cur[lastField] += "\n" + strings.TrimSpace(line)
			}
			continue
		}

		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		field := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if cur == nil {
			cur = paragraph{}
		}
		cur[field] = value
		lastField = field
	}
	flush()

	return paragraphs, scanner.Err()
}

func parsePackageList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if idx := strings.IndexByte(part, '|'); idx >= 0 {
			part = strings.TrimSpace(part[:idx])
		}
		if idx := strings.IndexByte(part, '('); idx >= 0 {
			part = strings.TrimSpace(part[:idx])
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func paragraphToSyncPackage(p paragraph) (model.SyncPackage, bool) {
	name := p["Package"]
	if name == "" {
		log.Printf("debdb: dropping Packages paragraph missing Package field")
		return model.SyncPackage{}, false
	}
	size, _ := strconv.ParseInt(p["Size"], 10, 64)
	installedKB, _ := strconv.ParseInt(p["Installed-Size"], 10, 64)

	return model.SyncPackage{
		Name:         name,
		Version:      p["Version"],
		Description:  p["Description"],
		URL:          p["Homepage"],
		Depends:      parsePackageList(p["Depends"]),
		InstallSize:  installedKB * 1024,
		DownloadSize: size,
		Repo:         p["Section"],
		Filename:     p["Filename"],
		Source:       model.SourceOfficial,
	}, true
}

// ParsePackages parses an apt Packages file into SyncPackages. Paragraphs
// that have no Package field are dropped with a log line. For files with more than ~100
// paragraphs, paragraphs are converted in parallel across a bounded
// worker pool sized to GOMAXPROCS, matching the parallel
// paragraph-parsing requirement.
func ParsePackages(r io.Reader) ([]model.SyncPackage, error) {
	paragraphs, err := splitParagraphs(r)
	if err != nil {
		return nil, err
	}
	return convertParagraphs(paragraphs, paragraphToSyncPackage), nil
}

func convertParagraphs[T any](paragraphs []paragraph, convert func(paragraph) (T, bool)) []T {
	if len(paragraphs) < parallelThreshold {
		out := make([]T, 0, len(paragraphs))
		for _, p := range paragraphs {
			if v, ok := convert(p); ok {
				out = append(out, v)
			}
		}
		return out
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > len(paragraphs) {
		workers = len(paragraphs)
	}

	results := make([]T, len(paragraphs))
	valid := make([]bool, len(paragraphs))

	var wg sync.WaitGroup
	chunk := (len(paragraphs) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= len(paragraphs) {
			break
		}
		if end > len(paragraphs) {
			end = len(paragraphs)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if v, ok := convert(paragraphs[i]); ok {
					results[i] = v
					valid[i] = true
				}
			}
		}(start, end)
	}
	wg.Wait()

	out := make([]T, 0, len(paragraphs))
	for i, ok := range valid {
		if ok {
			out = append(out, results[i])
		}
	}
	return out
}

// ReadStatus parses /var/lib/dpkg/status, returning a LocalPackage for
// every paragraph containing the literal "Status: install ok installed".
func ReadStatus(r io.Reader) ([]model.LocalPackage, error) {
	paragraphs, err := splitParagraphs(r)
	if err != nil {
		return nil, err
	}

	out := make([]model.LocalPackage, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p["Status"] != "install ok installed" {
			continue
		}
		if p["Package"] == "" {
			log.Printf("debdb: dropping installed-status paragraph missing Package field")
			continue
		}
		out = append(out, model.LocalPackage{
			Name:        p["Package"],
			Version:     p["Version"],
			Description: p["Description"],
			// Reason is resolved against extended_states by ApplyAutoInstalled,
			// since status alone cannot distinguish explicit from automatic.
			Reason: model.ReasonExplicit,
		})
	}
	return out, nil
}

// ReadExtendedStates parses /var/lib/apt/extended_states, returning the
// set of package names marked "Auto-Installed: 1".
func ReadExtendedStates(r io.Reader) (map[string]bool, error) {
	paragraphs, err := splitParagraphs(r)
	if err != nil {
		return nil, err
	}

	autoInstalled := make(map[string]bool, len(paragraphs))
	for _, p := range paragraphs {
		if p["Package"] == "" {
			continue
		}
		if p["Auto-Installed"] == "1" {
			autoInstalled[p["Package"]] = true
		}
	}
	return autoInstalled, nil
}

// ApplyAutoInstalled overwrites Reason on each LocalPackage: installed
// packages NOT present in autoInstalled are explicit.
func ApplyAutoInstalled(pkgs []model.LocalPackage, autoInstalled map[string]bool) {
	for i := range pkgs {
		if autoInstalled[pkgs[i].Name] {
			pkgs[i].Reason = model.ReasonDependency
		} else {
			pkgs[i].Reason = model.ReasonExplicit
		}
	}
}
