// Package proto implements atilink's message schema (spec.md §4.3): Role,
// FileMetadata, UploadMetadata, DownloadMetadata and Result, each with a
// deterministic fixed-field-order binary encoding (length-prefixed
// strings and byte slices, tag-prefixed options) such that
// Decode(Encode(m)) == m byte-for-byte.
package proto

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/6-eyes/atilink/pkg/atierr"
)

// putString writes a length-prefixed UTF-8 string.
func putString(buf *bytes.Buffer, s string) {
	putBytes(buf, []byte(s))
}

// putBytes writes a length-prefixed byte slice.
func putBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func putU32(buf *bytes.Buffer, n uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	buf.Write(b[:])
}

// putOptionTag writes the presence byte for an Option<T> field.
func putOptionTag(buf *bytes.Buffer, present bool) {
	if present {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func getBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, atierr.Deserializef("read length prefix: %v", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, atierr.Deserializef("read %d-byte field: %v", n, err)
		}
	}
	return out, nil
}

func getString(r *bytes.Reader) (string, error) {
	b, err := getBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func getU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, atierr.Deserializef("read u32: %v", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func getOptionTag(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, atierr.Deserializef("read option tag: %v", err)
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, atierr.Deserializef("invalid option tag %d", b)
	}
}
