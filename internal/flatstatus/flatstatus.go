// Package flatstatus implements the 40-byte flat status file: a fixed
// binary layout any client can read in a single stat+open+read without
// talking to the daemon, for the common "is anything out of date" check.
package flatstatus

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/arc-language/omg/internal/atomicfile"
)

const (
	magic   uint32 = 0x4f4d4753 // "OMGS"
	version uint8  = 1
	size           = 40

	// freshnessWindow bounds how old a Record's timestamp may be before
	// Read treats it as stale and refuses to return it.
	freshnessWindow = 60 * time.Second
)

// Record is the in-memory form of the flat status file.
type Record struct {
	Total            uint32
	Explicit         uint32
	Orphans          uint32
	UpdatesAvailable uint32
	TimestampUnixS   uint64
}

func (r Record) marshal() []byte {
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:], magic)
	buf[4] = version
	// buf[5:8] is padding, left zero.
	binary.LittleEndian.PutUint32(buf[8:], r.Total)
	binary.LittleEndian.PutUint32(buf[12:], r.Explicit)
	binary.LittleEndian.PutUint32(buf[16:], r.Orphans)
	binary.LittleEndian.PutUint32(buf[20:], r.UpdatesAvailable)
	binary.LittleEndian.PutUint64(buf[24:], r.TimestampUnixS)
	// buf[32:40] reserved, left zero.
	return buf
}

func unmarshal(buf []byte) (Record, bool) {
	if len(buf) != size {
		return Record{}, false
	}
	if binary.LittleEndian.Uint32(buf[0:]) != magic {
		return Record{}, false
	}
	if buf[4] != version {
		return Record{}, false
	}
	return Record{
		Total:            binary.LittleEndian.Uint32(buf[8:]),
		Explicit:         binary.LittleEndian.Uint32(buf[12:]),
		Orphans:          binary.LittleEndian.Uint32(buf[16:]),
		UpdatesAvailable: binary.LittleEndian.Uint32(buf[20:]),
		TimestampUnixS:   binary.LittleEndian.Uint64(buf[24:]),
	}, true
}

// Write stamps rec with the current time and atomically writes it to
// path via a temp-file-then-rename, so a concurrent reader never
// observes a partially written file.
func Write(path string, rec Record) error {
	rec.TimestampUnixS = uint64(time.Now().Unix())
	return atomicfile.Write(path, rec.marshal(), 0o644)
}

// Read returns the Record at path if it parses, has a current magic and
// version, and is no older than freshnessWindow. Any failure (missing
// file, wrong size, bad magic/version, or staleness) yields (Record{},
// false) so the caller falls through to the daemon RPC path.
func Read(path string) (Record, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, false
	}
	rec, ok := unmarshal(data)
	if !ok {
		return Record{}, false
	}
	age := time.Now().Unix() - int64(rec.TimestampUnixS)
	if age < 0 || time.Duration(age)*time.Second > freshnessWindow {
		return Record{}, false
	}
	return rec, true
}
