// Package rpc implements the daemon's wire protocol: a big-endian
// length-prefixed framing layer carrying msgpack-encoded tagged-union
// request/response envelopes.
package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize is the largest payload WriteFrame/ReadFrame will carry.
// A Request or Response larger than this indicates a misbehaving or
// hostile peer, not a legitimate oversized query.
const MaxFrameSize = 1 << 20 // 1 MiB

// WriteFrame writes a 4-byte big-endian length prefix followed by
// payload. It returns an error (rather than panicking) if payload
// exceeds MaxFrameSize, since that would desync the stream for the
// reader on the other end.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("rpc: frame of %d bytes exceeds max %d", len(payload), MaxFrameSize)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("rpc: writing frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("rpc: writing frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads a length-prefixed frame from r. If the declared length
// exceeds maxLen, ReadFrame returns an error WITHOUT reading the
// declared payload, since a hostile or corrupt peer's claimed length
// could be used to force an unbounded read.
func ReadFrame(r io.Reader, maxLen uint32) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(hdr[:])
	if length > maxLen {
		return nil, fmt.Errorf("rpc: frame length %d exceeds max %d", length, maxLen)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("rpc: reading frame payload: %w", err)
	}
	return buf, nil
}
