// Package link implements atilink's link engine (spec.md §4.4): the
// symmetric read/write half of the protocol, layering optional
// compression and checksum transforms over the framing primitives, and
// the higher-level single-file transfer operations built on top of it.
package link

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/6-eyes/atilink/internal/telemetry"
	"github.com/6-eyes/atilink/pkg/atierr"
	"github.com/6-eyes/atilink/pkg/codec"
	"github.com/6-eyes/atilink/pkg/proto"
	"github.com/6-eyes/atilink/pkg/wire"
)

// Link owns a TCP connection exclusively for the duration of one session
// (spec.md §3, §5). Its compression and checksum slots are set either by
// the caller before the session (driver side) or inferred from the first
// metadata message (server side) and remain fixed for the rest of the
// session.
type Link struct {
	conn        net.Conn
	compression codec.Compression
	checksum    codec.Checksum
	chunkSize   int
	log         *zap.Logger
	telemetry   *telemetry.Collector
}

// New wraps conn in a Link with no codecs configured and the default
// ChunkSize for outbound chunking.
func New(conn net.Conn, log *zap.Logger) *Link {
	if log == nil {
		log = zap.NewNop()
	}
	return &Link{conn: conn, log: log, chunkSize: ChunkSize, telemetry: telemetry.NewCollector()}
}

// SetCompression installs a compression transform, or clears it if c is
// nil, and returns the Link for chaining.
func (l *Link) SetCompression(c codec.Compression) *Link {
	if c == nil {
		l.log.Info("compression is none")
	}
	l.compression = c
	return l
}

// SetChecksum installs a checksum transform, or clears it if c is nil,
// and returns the Link for chaining.
func (l *Link) SetChecksum(c codec.Checksum) *Link {
	if c == nil {
		l.log.Info("checksum is none")
	}
	l.checksum = c
	return l
}

// SetChunkSize overrides the buffer size WriteToStream reads and sends
// with (spec.md §6's `chunk-bytes` setting); n <= 0 is ignored, leaving
// the default ChunkSize in place.
func (l *Link) SetChunkSize(n int) *Link {
	if n > 0 {
		l.chunkSize = n
	}
	return l
}

// Compression returns the currently configured compression transform, or
// nil if none is set.
func (l *Link) Compression() codec.Compression { return l.compression }

// Checksum returns the currently configured checksum transform, or nil if
// none is set.
func (l *Link) Checksum() codec.Checksum { return l.checksum }

// Telemetry returns this Link's transfer-rate collector, so a caller can
// report throughput once the session finishes.
func (l *Link) Telemetry() *telemetry.Collector { return l.telemetry }

// Close closes the underlying connection.
func (l *Link) Close() error { return l.conn.Close() }

// upstream sends one logical chunk: an optional checksum frame, then the
// (optionally compressed) data frame (spec.md §4.4).
func (l *Link) upstream(buffer []byte) error {
	if l.checksum != nil {
		digest := l.checksum.Generate(buffer)
		l.log.Debug("writing checksum frame", zap.Int("len", len(digest)))
		if err := wire.WriteFrame(l.conn, []byte(digest)); err != nil {
			return err
		}
	}

	payload := buffer
	if l.compression != nil {
		compressed, err := l.compression.Compress(buffer)
		if err != nil {
			return atierr.IOf(err, "compress chunk")
		}
		payload = compressed
	}

	l.log.Debug("writing data frame", zap.Int("len", len(payload)))
	if err := wire.WriteFrame(l.conn, payload); err != nil {
		return err
	}
	l.telemetry.Record(len(payload))
	return nil
}

// downstream receives one logical chunk: an optional checksum frame, then
// the data frame, decompressing and validating as configured (spec.md
// §4.4). Both frames use an exact read (Open Question 2: the original's
// asymmetric non-exact checksum read is not reproduced).
func (l *Link) downstream() ([]byte, error) {
	var digest string
	if l.checksum != nil {
		checksumBytes, err := wire.ReadFrame(l.conn)
		if err != nil {
			return nil, err
		}
		if len(checksumBytes) == 0 {
			return nil, atierr.IntegrityErrorf("checksum bytes not determined")
		}
		if !utf8.Valid(checksumBytes) {
			return nil, atierr.IntegrityErrorf("checksum bytes are not valid utf-8")
		}
		digest = string(checksumBytes)
		l.log.Debug("read checksum frame", zap.Int("len", len(checksumBytes)))
	}

	payload, err := wire.ReadFrame(l.conn)
	if err != nil {
		return nil, err
	}
	l.log.Debug("read data frame", zap.Int("len", len(payload)))
	l.telemetry.Record(len(payload))

	chunk := payload
	if l.compression != nil {
		decompressed, err := l.compression.Decompress(payload)
		if err != nil {
			return nil, atierr.IOf(err, "decompress chunk")
		}
		chunk = decompressed
	}

	if l.checksum != nil {
		if !l.checksum.Validate(chunk, digest) {
			return nil, atierr.IntegrityErrorf("checksum verification failed")
		}
		l.log.Debug("checksum passed")
	}

	return chunk, nil
}

// WriteRole writes Role outside the codec pipeline, per spec.md §4.4.
func (l *Link) WriteRole(role proto.Role) error {
	return wire.WriteFrame(l.conn, role.Encode())
}

// ReadRole reads Role outside the codec pipeline.
func (l *Link) ReadRole() (proto.Role, error) {
	b, err := wire.ReadFrame(l.conn)
	if err != nil {
		return 0, err
	}
	return proto.DecodeRole(b)
}

// WriteDownloadMetadata writes DownloadMetadata outside the codec
// pipeline, describing this Link's current compression/checksum choice.
func (l *Link) WriteDownloadMetadata(destination string) error {
	m := proto.DownloadMetadata{
		Destination: destination,
		Compression: kindOf(l.compression),
		Checksum:    checksumKindOf(l.checksum),
	}
	return wire.WriteFrame(l.conn, m.Encode())
}

// ReadDownloadMetadata reads DownloadMetadata and installs the sender's
// declared compression/checksum into this Link — the only point at which
// the server side's transformation stack is established (spec.md §4.4).
func (l *Link) ReadDownloadMetadata() (proto.DownloadMetadata, error) {
	b, err := wire.ReadFrame(l.conn)
	if err != nil {
		return proto.DownloadMetadata{}, err
	}
	m, err := proto.DecodeDownloadMetadata(b)
	if err != nil {
		return proto.DownloadMetadata{}, err
	}
	if err := l.installCodecs(m.Compression, m.Checksum); err != nil {
		return proto.DownloadMetadata{}, err
	}
	return m, nil
}

// WriteUploadMetadata writes UploadMetadata outside the codec pipeline.
func (l *Link) WriteUploadMetadata(count uint32, destination string) error {
	m := proto.UploadMetadata{
		Count:       count,
		Destination: destination,
		EOFMarker:   EOFMarker(),
		Compression: kindOf(l.compression),
		Checksum:    checksumKindOf(l.checksum),
	}
	return wire.WriteFrame(l.conn, m.Encode())
}

// ReadUploadMetadata reads UploadMetadata and installs the sender's
// declared compression/checksum into this Link.
func (l *Link) ReadUploadMetadata() (proto.UploadMetadata, error) {
	b, err := wire.ReadFrame(l.conn)
	if err != nil {
		return proto.UploadMetadata{}, err
	}
	m, err := proto.DecodeUploadMetadata(b)
	if err != nil {
		return proto.UploadMetadata{}, err
	}
	if err := l.installCodecs(m.Compression, m.Checksum); err != nil {
		return proto.UploadMetadata{}, err
	}
	return m, nil
}

func (l *Link) installCodecs(compression *codec.CompressionKind, checksum *codec.ChecksumKind) error {
	if compression != nil {
		algo, err := compression.Resolve()
		if err != nil {
			return err
		}
		l.SetCompression(algo)
	} else {
		l.SetCompression(nil)
	}

	if checksum != nil {
		algo, err := checksum.Resolve()
		if err != nil {
			return err
		}
		l.SetChecksum(algo)
	} else {
		l.SetChecksum(nil)
	}
	return nil
}

// WriteOkResult writes a successful Result through the codec pipeline.
func (l *Link) WriteOkResult(count uint32) error {
	l.log.Info("writing ok result", zap.Uint32("count", count))
	return l.upstream(proto.OkResult(count, EOFMarker()).Encode())
}

// WriteErrResult writes a failed Result through the codec pipeline.
func (l *Link) WriteErrResult(msg string) error {
	return l.upstream(proto.ErrResult(msg).Encode())
}

// ReadResult reads a Result through the codec pipeline.
func (l *Link) ReadResult() (proto.Result, error) {
	b, err := l.downstream()
	if err != nil {
		return proto.Result{}, err
	}
	return proto.DecodeResult(b)
}

// writeFileMetadata sends FileMetadata through the codec pipeline.
func (l *Link) writeFileMetadata(relPath string) error {
	return l.upstream(proto.FileMetadata{RelPath: relPath}.Encode())
}

// readFileMetadata receives FileMetadata through the codec pipeline.
func (l *Link) readFileMetadata() (proto.FileMetadata, error) {
	b, err := l.downstream()
	if err != nil {
		return proto.FileMetadata{}, err
	}
	return proto.DecodeFileMetadata(b)
}

// WriteToStream sends one file: its metadata, then its chunks, then the
// EOF sentinel (spec.md §4.4).
func (l *Link) WriteToStream(sourcePath, relPath string) error {
	if err := l.writeFileMetadata(relPath); err != nil {
		return err
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return atierr.IOf(err, "open %s", sourcePath)
	}
	defer f.Close()

	buffer := make([]byte, l.chunkSize)
	for {
		n, readErr := f.Read(buffer)
		if n == 0 {
			if readErr == io.EOF || readErr == nil {
				l.log.Info("reached end of file", zap.String("path", sourcePath))
				return l.upstream(EOFMarker())
			}
			return atierr.IOf(readErr, "read %s", sourcePath)
		}

		// BUG(spec-open-question-1): the sender reuses the same l.chunkSize
		// buffer across reads and always sends the *full* buffer, not
		// buffer[:n]. A file whose size isn't a multiple of l.chunkSize has
		// trailing stale bytes from the previous iteration appended to its
		// last non-sentinel chunk. Preserved deliberately — see
		// SPEC_FULL.md's Open Question decisions — not silently fixed.
		if err := l.upstream(buffer); err != nil {
			return err
		}

		if readErr == io.EOF {
			l.log.Info("reached end of file", zap.String("path", sourcePath))
			return l.upstream(EOFMarker())
		}
		if readErr != nil {
			return atierr.IOf(readErr, "read %s", sourcePath)
		}
	}
}

// ReadFromStream receives one file: its metadata, then its chunks until
// the marker sentinel or a chunk failure (spec.md §4.4). On failure the
// partially written destination file is deleted before returning. On
// success it returns the file's rel_path, as declared by the sender.
func (l *Link) ReadFromStream(destinationDir string, marker []byte) (string, error) {
	meta, err := l.readFileMetadata()
	if err != nil {
		return "", err
	}
	if err := meta.Validate(); err != nil {
		return "", err
	}

	target := filepath.Join(destinationDir, filepath.FromSlash(meta.RelPath))
	if parent := filepath.Dir(target); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", atierr.IOf(err, "create parent directories for %s", target)
		}
	}

	f, err := os.Create(target)
	if err != nil {
		return "", atierr.IOf(err, "create %s", target)
	}

	for {
		chunk, err := l.downstream()
		if err != nil {
			l.log.Error("error reading chunk, deleting partial file",
				zap.String("path", target), zap.Error(err))
			f.Close()
			if rmErr := os.Remove(target); rmErr != nil {
				l.log.Error("failed to remove partial file", zap.String("path", target), zap.Error(rmErr))
			} else {
				l.log.Info("partial file removed successfully", zap.String("path", target))
			}
			return "", err
		}

		if bytes.Equal(chunk, marker) {
			l.log.Info("reached end of file", zap.String("path", target))
			if err := f.Close(); err != nil {
				return "", atierr.IOf(err, "close %s", target)
			}
			return meta.RelPath, nil
		}

		if _, err := f.Write(chunk); err != nil {
			f.Close()
			return "", atierr.IOf(err, "write %s", target)
		}
	}
}

func kindOf(c codec.Compression) *codec.CompressionKind {
	if c == nil {
		return nil
	}
	k := c.Kind()
	return &k
}

func checksumKindOf(c codec.Checksum) *codec.ChecksumKind {
	if c == nil {
		return nil
	}
	k := c.Kind()
	return &k
}
