// Command atilink is the driver CLI: it connects out to an atilinkd
// instance and drives either a push (send local files to the remote Sink)
// or a pull (fetch files from the remote Source) (spec.md §4.5, client
// side).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/6-eyes/atilink/internal/config"
	"github.com/6-eyes/atilink/internal/dial"
	"github.com/6-eyes/atilink/internal/humanize"
	"github.com/6-eyes/atilink/internal/logging"
	"github.com/6-eyes/atilink/internal/session"
)

func fatal(format string, args ...interface{}) {
	colorstring.Fprintln(os.Stderr, fmt.Sprintf("[red]atilink: "+format+"[reset]", args...))
	os.Exit(1)
}

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fatal("%v", err)
	}

	cfg, err := config.ParseDriverArgs(settings, os.Args[1:])
	if err != nil {
		fatal("%v", err)
	}

	log, err := logging.New(false)
	if err != nil {
		fatal("cannot build logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	if cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.WriteTimeout)
		defer cancel()
	}

	conn, err := dial.WithRetry(ctx, cfg.RemoteAddr, dial.DefaultBackoff(), log)
	if err != nil {
		fatal("cannot connect to %s: %v", cfg.RemoteAddr, err)
	}

	codecs := session.Codecs{Compression: cfg.Compression, Checksum: cfg.Checksum, ChunkBytes: cfg.ChunkBytes}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("transferring"),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	progress := func(relPath string) {
		_ = bar.Add(1)
		log.Debug("transferred", zap.String("path", relPath))
	}

	var moved uint64
	switch cfg.Direction {
	case config.Pull:
		colorstring.Println("[green]pulling " + cfg.RemotePath + " from " + cfg.RemoteAddr + "[reset]")
		moved, err = session.RunPull(conn, cfg.RemotePath, cfg.LocalPath, codecs, progress, cfg.WriteTimeout, log)
		if err != nil {
			fatal("pull failed: %v", err)
		}
	case config.Push:
		colorstring.Println("[green]pushing " + cfg.LocalPath + " to " + cfg.RemoteAddr + "[reset]")
		moved, err = session.RunPush(conn, cfg.LocalPath, cfg.RemotePath, codecs, progress, cfg.WriteTimeout, log)
		if err != nil {
			fatal("push failed: %v", err)
		}
	}

	colorstring.Println("[green]transfer complete: " + humanize.Bytes(int64(moved)) + "[reset]")
}
