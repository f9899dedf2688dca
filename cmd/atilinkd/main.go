// Command atilinkd is the listening daemon: the TCP peer that accepts a
// connection, negotiates Source/Sink, and streams or receives files on
// the other end (spec.md §4.5, server side).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/mitchellh/colorstring"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/6-eyes/atilink/internal/config"
	"github.com/6-eyes/atilink/internal/logging"
	"github.com/6-eyes/atilink/internal/session"
)

func main() {
	cfg, err := config.ParseServerArgs(os.Args[1:])
	if err != nil {
		colorstring.Fprintln(os.Stderr, fmt.Sprintf("[red]atilinkd: %v[reset]", err))
		os.Exit(1)
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		colorstring.Fprintln(os.Stderr, fmt.Sprintf("[red]atilinkd: cannot build logger: %v[reset]", err))
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			if cfg.TTL <= 0 {
				return nil
			}
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TTL, cfg.TTL)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}

	ln, err := lc.Listen(context.Background(), "tcp", cfg.Port)
	if err != nil {
		log.Fatal("listen failed", zap.String("addr", cfg.Port), zap.Error(err))
	}
	defer ln.Close()

	colorstring.Println("[green]atilinkd listening on " + cfg.Port + "[reset]")
	log.Info("listening", zap.String("addr", cfg.Port))

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Error("accept failed", zap.Error(err))
			continue
		}

		go func(c net.Conn) {
			id := logging.SessionID()
			sessionLog := logging.ForSession(log, id)
			sessionLog.Info("session accepted", zap.String("remote", c.RemoteAddr().String()))
			if err := session.RunServer(c, cfg.ReadTimeout, sessionLog); err != nil {
				sessionLog.Error("session failed", zap.Error(err))
				return
			}
			sessionLog.Info("session complete")
		}(conn)
	}
}
