package archdb

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// parseDesc parses a single "desc" file's line-oriented section format:
// a line "%FIELD%" opens a section, the following non-empty lines are its
// values, and a blank line closes it. Includes REASON/INSTALLDATE for
// local entries in addition to the sync-DB fields.
func parseDesc(r io.Reader) (*descRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	rec := &descRecord{}
	var field string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			field = ""
			continue
		}
		if strings.HasPrefix(line, "%") && strings.HasSuffix(line, "%") {
			field = line
			continue
		}

		switch field {
		case "%NAME%":
			rec.Name = line
		case "%VERSION%":
			rec.Version = line
		case "%DESC%":
			rec.Description = line
		case "%FILENAME%":
			rec.Filename = line
		case "%CSIZE%":
			rec.CSize = parseInt64(line)
		case "%ISIZE%":
			rec.ISize = parseInt64(line)
		case "%URL%":
			rec.URL = line
		case "%ARCH%":
			rec.Arch = line
		case "%DEPENDS%":
			rec.Depends = append(rec.Depends, line)
		case "%MAKEDEPENDS%":
			rec.MakeDepends = append(rec.MakeDepends, line)
		case "%OPTDEPENDS%":
			rec.OptDepends = append(rec.OptDepends, line)
		case "%PROVIDES%":
			rec.Provides = append(rec.Provides, line)
		case "%CONFLICTS%":
			rec.Conflicts = append(rec.Conflicts, line)
		case "%REPLACES%":
			rec.Replaces = append(rec.Replaces, line)
		case "%LICENSE%":
			rec.Licenses = append(rec.Licenses, line)
		case "%INSTALLDATE%":
			rec.InstallDate = parseInt64(line)
		case "%REASON%":
			rec.Reason = int(parseInt64(line))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if rec.Name == "" {
		return nil, errEmptyName
	}
	return rec, nil
}

var errEmptyName = errField("desc file missing %NAME% section")

type errField string

func (e errField) Error() string { return string(e) }

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
