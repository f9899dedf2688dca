// Package config loads atilink's TOML settings file and layers CLI flags
// on top of it, grounded on original_source/client/src/conf.rs's
// file_config + Conf accumulation logic (spec.md §6).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/6-eyes/atilink/pkg/atierr"
	"github.com/6-eyes/atilink/pkg/codec"
)

const fileName = "atilink-conf.toml"

// Settings is the [settings] table of atilink-conf.toml.
type Settings struct {
	Source          string `toml:"source"`
	Sink            string `toml:"sink"`
	Compression     string `toml:"compression"`
	Checksum        string `toml:"checksum"`
	ChunkBytes      int64  `toml:"chunk-bytes"`
	WriteTimeoutSec int64  `toml:"write-timeout-sec"`
}

type settingsFile struct {
	Settings Settings `toml:"settings"`
}

// LoadSettings reads atilink-conf.toml from the working directory. A
// missing file is not an error — it yields the zero Settings, matching
// the original's "defaults silently if absent" behavior.
func LoadSettings() (Settings, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, nil
		}
		return Settings{}, atierr.IOf(err, "read %s", fileName)
	}

	var f settingsFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return Settings{}, atierr.Deserializef("parse %s: %v", fileName, err)
	}
	return f.Settings, nil
}

// Direction records which way bytes flow for one invocation of the driver
// CLI (spec.md §4.5's client-side dual).
type Direction int

const (
	// Pull means the remote peer is Source; the driver is Source-driver.
	Pull Direction = iota
	// Push means the remote peer is Sink; the driver is Sink-driver.
	Push
)

// DriverConfig is the resolved configuration for cmd/atilink, combining
// atilink-conf.toml with any CLI overrides.
type DriverConfig struct {
	Direction    Direction
	RemoteAddr   string
	RemotePath   string
	LocalPath    string
	Compression  *codec.CompressionKind
	Checksum     *codec.ChecksumKind
	ChunkBytes   int64
	WriteTimeout time.Duration
}

type endpoint struct {
	addr string
	path string
	set  bool
	cli  bool
}

type driverBuilder struct {
	source, sink endpoint
	compression  *codec.CompressionKind
	checksum     *codec.ChecksumKind
	chunkBytes   int64
	writeTimeout time.Duration
}

func (b *driverBuilder) setSource(raw string, cli bool) error {
	if cli && b.source.cli {
		return atierr.InvalidArgumentf("only one source path is allowed")
	}
	addr, path := splitEndpoint(raw)
	b.source = endpoint{addr: addr, path: path, set: true, cli: cli}
	return nil
}

func (b *driverBuilder) setSink(raw string, cli bool) error {
	if cli && b.sink.cli {
		return atierr.InvalidArgumentf("only one destination path is allowed")
	}
	addr, path := splitEndpoint(raw)
	b.sink = endpoint{addr: addr, path: path, set: true, cli: cli}
	return nil
}

func (b *driverBuilder) setCompression(name string) error {
	k, err := codec.ParseCompressionKind(name)
	if err != nil {
		return err
	}
	b.compression = &k
	return nil
}

func (b *driverBuilder) setChecksum(name string) error {
	k, err := codec.ParseChecksumKind(name)
	if err != nil {
		return err
	}
	b.checksum = &k
	return nil
}

func splitEndpoint(raw string) (addr, path string) {
	if a, p, ok := strings.Cut(raw, "@"); ok {
		return a, p
	}
	return "", raw
}

// ParseDriverArgs resolves the push/pull configuration for cmd/atilink
// from a loaded Settings and the process's CLI arguments (excluding
// argv[0]), hand-rolled by walking args directly rather than via the
// stdlib flag package, since --source and
// --destination each consume exactly one following value and may carry
// an "addr@path" pair.
func ParseDriverArgs(settings Settings, args []string) (DriverConfig, error) {
	b := &driverBuilder{}

	if settings.Source != "" {
		if err := b.setSource(settings.Source, false); err != nil {
			return DriverConfig{}, err
		}
	}
	if settings.Sink != "" {
		if err := b.setSink(settings.Sink, false); err != nil {
			return DriverConfig{}, err
		}
	}
	if settings.Compression != "" {
		if err := b.setCompression(settings.Compression); err != nil {
			return DriverConfig{}, err
		}
	}
	if settings.Checksum != "" {
		if err := b.setChecksum(settings.Checksum); err != nil {
			return DriverConfig{}, err
		}
	}
	if settings.WriteTimeoutSec > 0 {
		b.writeTimeout = time.Duration(settings.WriteTimeoutSec) * time.Second
	}
	if settings.ChunkBytes > 0 {
		b.chunkBytes = settings.ChunkBytes
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--source", "-s":
			i++
			if i >= len(args) {
				return DriverConfig{}, atierr.InvalidArgumentf("no value for source path provided")
			}
			if err := b.setSource(args[i], true); err != nil {
				return DriverConfig{}, err
			}
		case "--destination", "-d":
			i++
			if i >= len(args) {
				return DriverConfig{}, atierr.InvalidArgumentf("no value for destination path provided")
			}
			if err := b.setSink(args[i], true); err != nil {
				return DriverConfig{}, err
			}
		case "--compression", "-co":
			i++
			if i >= len(args) {
				return DriverConfig{}, atierr.InvalidArgumentf("no value provided for compression")
			}
			if err := b.setCompression(args[i]); err != nil {
				return DriverConfig{}, err
			}
		case "--checksum", "-ch":
			i++
			if i >= len(args) {
				return DriverConfig{}, atierr.InvalidArgumentf("no value provided for checksum")
			}
			if err := b.setChecksum(args[i]); err != nil {
				return DriverConfig{}, err
			}
		default:
			return DriverConfig{}, atierr.InvalidArgumentf("only one source and destination are allowed, reading %q", args[i])
		}
	}

	if !b.source.set {
		return DriverConfig{}, atierr.InvalidArgumentf("no source path defined")
	}
	if !b.sink.set {
		return DriverConfig{}, atierr.InvalidArgumentf("no sink path defined")
	}

	switch {
	case b.source.addr != "" && b.sink.addr != "":
		return DriverConfig{}, atierr.InvalidArgumentf("only one socket address is allowed")
	case b.source.addr != "":
		return DriverConfig{
			Direction:    Pull,
			RemoteAddr:   b.source.addr,
			RemotePath:   b.source.path,
			LocalPath:    b.sink.path,
			Compression:  b.compression,
			Checksum:     b.checksum,
			ChunkBytes:   b.chunkBytes,
			WriteTimeout: b.writeTimeout,
		}, nil
	case b.sink.addr != "":
		return DriverConfig{
			Direction:    Push,
			RemoteAddr:   b.sink.addr,
			RemotePath:   b.sink.path,
			LocalPath:    b.source.path,
			Compression:  b.compression,
			Checksum:     b.checksum,
			ChunkBytes:   b.chunkBytes,
			WriteTimeout: b.writeTimeout,
		}, nil
	default:
		return DriverConfig{}, atierr.InvalidArgumentf("no socket address defined")
	}
}

// ServerConfig is the resolved configuration for cmd/atilinkd.
type ServerConfig struct {
	Port        string
	Debug       bool
	ReadTimeout time.Duration
	TTL         int
}

// defaultReadTimeout and defaultTTL mirror original_source/server/src/conf.rs's
// Conf::default() (read_timeout: Some(10s), ttl: 100).
const (
	defaultReadTimeout = 10 * time.Second
	defaultTTL         = 100
)

// ParseServerArgs resolves atilinkd's configuration from CLI arguments
// (excluding argv[0]).
func ParseServerArgs(args []string) (ServerConfig, error) {
	cfg := ServerConfig{Port: ":9000", ReadTimeout: defaultReadTimeout, TTL: defaultTTL}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--port", "-p":
			i++
			if i >= len(args) {
				return ServerConfig{}, atierr.InvalidArgumentf("no value provided for port")
			}
			cfg.Port = args[i]
		case "--debug", "-d":
			cfg.Debug = true
		case "--read-timeout-sec", "-r":
			i++
			if i >= len(args) {
				return ServerConfig{}, atierr.InvalidArgumentf("no value provided for read timeout")
			}
			secs, err := strconv.Atoi(args[i])
			if err != nil {
				return ServerConfig{}, atierr.InvalidArgumentf("invalid read timeout %q: %v", args[i], err)
			}
			cfg.ReadTimeout = time.Duration(secs) * time.Second
		case "--ttl", "-t":
			i++
			if i >= len(args) {
				return ServerConfig{}, atierr.InvalidArgumentf("no value provided for ttl")
			}
			ttl, err := strconv.Atoi(args[i])
			if err != nil {
				return ServerConfig{}, atierr.InvalidArgumentf("invalid ttl %q: %v", args[i], err)
			}
			cfg.TTL = ttl
		default:
			return ServerConfig{}, atierr.InvalidArgumentf("unrecognized argument %q", args[i])
		}
	}

	return cfg, nil
}
