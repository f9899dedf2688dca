// Package wire implements atilink's framing primitives (spec.md §4.1): a
// 4-byte big-endian length prefix followed by exactly that many bytes.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/6-eyes/atilink/pkg/atierr"
)

// WriteLen writes n as a 4-byte big-endian unsigned integer.
func WriteLen(w io.Writer, n int) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(n))
	if _, err := w.Write(buf[:]); err != nil {
		return atierr.IOf(err, "write frame length")
	}
	return nil
}

// ReadLen reads exactly 4 bytes and returns them as a big-endian unsigned
// integer. A short read is a fatal protocol error.
func ReadLen(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF {
			return 0, err
		}
		return 0, atierr.IOf(err, "read frame length")
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// WriteFrame performs a framed write: the length of b, then b itself.
func WriteFrame(w io.Writer, b []byte) error {
	if err := WriteLen(w, len(b)); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	if _, err := w.Write(b); err != nil {
		return atierr.IOf(err, "write frame payload")
	}
	return nil
}

// ReadFrame performs a framed read: the length, then exactly that many
// bytes via a read-exact primitive. A zero-length frame is tolerated and
// returned as a non-nil empty slice so callers can distinguish "read
// nothing" from "read a zero-length frame".
func ReadFrame(r io.Reader) ([]byte, error) {
	n, err := ReadLen(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, atierr.IOf(err, "read frame payload of %d bytes", n)
	}
	return buf, nil
}
