// Package codec implements atilink's codec registry (spec.md §4.2): two
// named compression algorithms and two named checksum algorithms, each
// addressable by a small tagged identifier serialisable on the wire.
package codec

import (
	"bytes"
	"fmt"
	"io"

	kgzip "github.com/klauspost/compress/gzip"
	kzlib "github.com/klauspost/compress/zlib"

	"github.com/6-eyes/atilink/pkg/atierr"
)

// CompressionKind tags a compression algorithm on the wire.
type CompressionKind byte

const (
	// CompressionZlib selects the Zlib codec.
	CompressionZlib CompressionKind = 1
	// CompressionGZip selects the GZip codec.
	CompressionGZip CompressionKind = 2
)

// Compression compresses and decompresses byte buffers for one chunk at a
// time; implementations must round-trip (spec.md §8 law 3).
type Compression interface {
	Compress(b []byte) ([]byte, error)
	Decompress(b []byte) ([]byte, error)
	Kind() CompressionKind
}

// Resolve returns the Compression implementation for k, or a Deserialize
// error if k is unknown (spec.md §4.2).
func (k CompressionKind) Resolve() (Compression, error) {
	switch k {
	case CompressionZlib:
		return zlibCodec{}, nil
	case CompressionGZip:
		return gzipCodec{}, nil
	default:
		return nil, atierr.Deserializef("unknown compression kind %d", byte(k))
	}
}

func (k CompressionKind) String() string {
	switch k {
	case CompressionZlib:
		return "Zlib"
	case CompressionGZip:
		return "GZip"
	default:
		return fmt.Sprintf("CompressionKind(%d)", byte(k))
	}
}

// ParseCompressionKind maps the CLI/config name ("Zlib"/"GZip") to a kind.
func ParseCompressionKind(s string) (CompressionKind, error) {
	switch s {
	case "Zlib":
		return CompressionZlib, nil
	case "GZip":
		return CompressionGZip, nil
	default:
		return 0, atierr.InvalidArgumentf("invalid compression type %q", s)
	}
}

type zlibCodec struct{}

func (zlibCodec) Kind() CompressionKind { return CompressionZlib }

func (zlibCodec) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := kzlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, atierr.IOf(err, "zlib compress")
	}
	if err := w.Close(); err != nil {
		return nil, atierr.IOf(err, "zlib compress finish")
	}
	return buf.Bytes(), nil
}

func (zlibCodec) Decompress(b []byte) ([]byte, error) {
	r, err := kzlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, atierr.IOf(err, "zlib decompress open")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, atierr.IOf(err, "zlib decompress")
	}
	return out, nil
}

type gzipCodec struct{}

func (gzipCodec) Kind() CompressionKind { return CompressionGZip }

func (gzipCodec) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := kgzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, atierr.IOf(err, "gzip compress")
	}
	if err := w.Close(); err != nil {
		return nil, atierr.IOf(err, "gzip compress finish")
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(b []byte) ([]byte, error) {
	r, err := kgzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, atierr.IOf(err, "gzip decompress open")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, atierr.IOf(err, "gzip decompress")
	}
	return out, nil
}
