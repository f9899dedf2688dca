// Package session implements atilink's session orchestrator (spec.md
// §4.5/§4.6): the per-connection role dispatch on the server side and its
// dual on the driver side.
package session

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/6-eyes/atilink/internal/link"
	"github.com/6-eyes/atilink/pkg/atierr"
	"github.com/6-eyes/atilink/pkg/proto"
)

// RunServer drives one accepted connection to completion per spec.md
// §4.5's server-side pseudocode, closing conn before returning.
// readTimeout bounds the whole session's reads (spec.md §5's
// "configurable read timeout (server)"); zero disables it.
func RunServer(conn net.Conn, readTimeout time.Duration, log *zap.Logger) error {
	defer conn.Close()

	if readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return atierr.IOf(err, "set read deadline")
		}
	}

	l := link.New(conn, log)
	defer logBandwidth(l, log)

	role, err := l.ReadRole()
	if err != nil {
		return err
	}
	log.Info("role negotiated", zap.Stringer("role", role))

	switch role {
	case proto.RoleSource:
		return serveSource(l, log)
	case proto.RoleSink:
		return serveSink(l, log)
	default:
		return atierr.InvalidRequestf("unknown role %v", role)
	}
}

func logBandwidth(l *link.Link, log *zap.Logger) {
	t := l.Telemetry()
	log.Info("session throughput",
		zap.Uint64("bytes", t.BytesMoved()),
		zap.Float64("mbps", t.BandwidthMbps()))
}

// serveSource handles a pull: the server reads which local path the
// driver wants, resolves it, and streams every file under it.
func serveSource(l *link.Link, log *zap.Logger) error {
	meta, err := l.ReadDownloadMetadata()
	if err != nil {
		return err
	}

	info, statErr := os.Stat(meta.Destination)
	if statErr != nil || (!info.IsDir() && !info.Mode().IsRegular()) {
		msg := "Path \"" + meta.Destination + "\" invalid"
		log.Warn("source path invalid", zap.String("path", meta.Destination))
		return l.WriteErrResult(msg)
	}

	if info.IsDir() {
		files, err := RecursivePaths(meta.Destination)
		if err != nil {
			return l.WriteErrResult(err.Error())
		}
		if err := l.WriteOkResult(uint32(len(files))); err != nil {
			return err
		}
		for _, rel := range files {
			full := filepath.Join(meta.Destination, filepath.FromSlash(rel))
			if err := l.WriteToStream(full, rel); err != nil {
				return err
			}
		}
		return nil
	}

	if err := l.WriteOkResult(1); err != nil {
		return err
	}
	return l.WriteToStream(meta.Destination, filepath.Base(meta.Destination))
}

// serveSink handles a push: the server reads how many files to expect and
// where to place them, then receives that many. A file that fails
// (including on an IntegrityError) ends the session: its error is
// returned and the remaining files are not read.
func serveSink(l *link.Link, log *zap.Logger) error {
	meta, err := l.ReadUploadMetadata()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(meta.Destination, 0o755); err != nil {
		return atierr.IOf(err, "create destination %s", meta.Destination)
	}

	for i := uint32(0); i < meta.Count; i++ {
		if _, err := l.ReadFromStream(meta.Destination, meta.EOFMarker); err != nil {
			log.Error("aborting file in upload", zap.Uint32("index", i), zap.Error(err))
			return err
		}
	}
	return nil
}
