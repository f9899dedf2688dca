package session

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/6-eyes/atilink/internal/link"
	"github.com/6-eyes/atilink/pkg/atierr"
	"github.com/6-eyes/atilink/pkg/codec"
	"github.com/6-eyes/atilink/pkg/proto"
)

// Codecs bundles the compression/checksum/chunk-size choice the driver
// CLI resolved from config and flags, before they're installed on a Link.
type Codecs struct {
	Compression *codec.CompressionKind
	Checksum    *codec.ChecksumKind
	ChunkBytes  int64
}

func (c Codecs) install(l *link.Link) error {
	if c.Compression != nil {
		algo, err := c.Compression.Resolve()
		if err != nil {
			return err
		}
		l.SetCompression(algo)
	}
	if c.Checksum != nil {
		algo, err := c.Checksum.Resolve()
		if err != nil {
			return err
		}
		l.SetChecksum(algo)
	}
	l.SetChunkSize(int(c.ChunkBytes))
	return nil
}

// ProgressFunc is called after each file finishes transferring, so a CLI
// can drive a progress bar without this package depending on one.
type ProgressFunc func(relPath string)

// RunPull drives a pull: the server at conn is Source, this process is
// Source-driver. destination is the local directory files are placed
// under (spec.md §4.5 "client-side is the dual"). writeTimeout bounds
// this session's writes (spec.md §5's "configurable write timeout
// (client)"); zero disables it. It returns the number of bytes moved on
// the wire so the caller can report a final summary.
func RunPull(conn net.Conn, remotePath, destination string, codecs Codecs, progress ProgressFunc, writeTimeout time.Duration, log *zap.Logger) (uint64, error) {
	defer conn.Close()
	if writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return 0, atierr.IOf(err, "set write deadline")
		}
	}
	l := link.New(conn, log)
	defer logBandwidth(l, log)
	if err := codecs.install(l); err != nil {
		return 0, err
	}

	if err := l.WriteRole(proto.RoleSource); err != nil {
		return 0, err
	}
	if err := l.WriteDownloadMetadata(remotePath); err != nil {
		return 0, err
	}

	result, err := l.ReadResult()
	if err != nil {
		return 0, err
	}
	if !result.Ok {
		return 0, atierr.DownloadErrorf("%s", result.ErrMsg)
	}

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return 0, atierr.IOf(err, "create destination %s", destination)
	}

	for i := uint32(0); i < result.Count; i++ {
		rel, err := l.ReadFromStream(destination, result.Marker)
		if err != nil {
			return l.Telemetry().BytesMoved(), err
		}
		if progress != nil {
			progress(rel)
		}
	}
	return l.Telemetry().BytesMoved(), nil
}

// RunPush drives a push: the server at conn is Sink, this process is
// Sink-driver. source is the local file or directory being sent.
// writeTimeout bounds this session's writes (spec.md §5's "configurable
// write timeout (client)"); zero disables it. It returns the number of
// bytes moved on the wire.
func RunPush(conn net.Conn, source, remoteDestination string, codecs Codecs, progress ProgressFunc, writeTimeout time.Duration, log *zap.Logger) (uint64, error) {
	defer conn.Close()
	if writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return 0, atierr.IOf(err, "set write deadline")
		}
	}
	l := link.New(conn, log)
	defer logBandwidth(l, log)
	if err := codecs.install(l); err != nil {
		return 0, err
	}

	if err := l.WriteRole(proto.RoleSink); err != nil {
		return 0, err
	}

	info, err := os.Stat(source)
	if err != nil {
		return 0, atierr.InvalidArgumentf("source path %q: %v", source, err)
	}

	if info.IsDir() {
		files, err := RecursivePaths(source)
		if err != nil {
			return 0, err
		}
		if err := l.WriteUploadMetadata(uint32(len(files)), remoteDestination); err != nil {
			return 0, err
		}
		for _, rel := range files {
			full := filepath.Join(source, filepath.FromSlash(rel))
			if err := l.WriteToStream(full, rel); err != nil {
				return l.Telemetry().BytesMoved(), err
			}
			if progress != nil {
				progress(rel)
			}
		}
		return l.Telemetry().BytesMoved(), nil
	}

	if err := l.WriteUploadMetadata(1, remoteDestination); err != nil {
		return 0, err
	}
	base := filepath.Base(source)
	if err := l.WriteToStream(source, base); err != nil {
		return l.Telemetry().BytesMoved(), err
	}
	if progress != nil {
		progress(base)
	}
	return l.Telemetry().BytesMoved(), nil
}
