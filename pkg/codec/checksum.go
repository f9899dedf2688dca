package codec

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/6-eyes/atilink/pkg/atierr"
)

// ChecksumKind tags a checksum algorithm on the wire.
type ChecksumKind byte

const (
	// ChecksumSha256 selects SHA-256.
	ChecksumSha256 ChecksumKind = 1
	// ChecksumMd5 selects MD5.
	ChecksumMd5 ChecksumKind = 2
)

// Checksum generates and validates a hex digest for one chunk.
type Checksum interface {
	Generate(b []byte) string
	Validate(b []byte, hexDigest string) bool
	Kind() ChecksumKind
}

// Resolve returns the Checksum implementation for k, or a Deserialize
// error if k is unknown (spec.md §4.2).
func (k ChecksumKind) Resolve() (Checksum, error) {
	switch k {
	case ChecksumSha256:
		return sha256Checksum{}, nil
	case ChecksumMd5:
		return md5Checksum{}, nil
	default:
		return nil, atierr.Deserializef("unknown checksum kind %d", byte(k))
	}
}

func (k ChecksumKind) String() string {
	switch k {
	case ChecksumSha256:
		return "Sha256"
	case ChecksumMd5:
		return "Md5"
	default:
		return fmt.Sprintf("ChecksumKind(%d)", byte(k))
	}
}

// ParseChecksumKind maps the CLI/config name ("Sha256"/"Md5") to a kind.
func ParseChecksumKind(s string) (ChecksumKind, error) {
	switch s {
	case "Sha256":
		return ChecksumSha256, nil
	case "Md5":
		return ChecksumMd5, nil
	default:
		return 0, atierr.InvalidArgumentf("invalid checksum type %q", s)
	}
}

type sha256Checksum struct{}

func (sha256Checksum) Kind() ChecksumKind { return ChecksumSha256 }

func (sha256Checksum) Generate(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c sha256Checksum) Validate(b []byte, hexDigest string) bool {
	return c.Generate(b) == hexDigest
}

type md5Checksum struct{}

func (md5Checksum) Kind() ChecksumKind { return ChecksumMd5 }

func (md5Checksum) Generate(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (c md5Checksum) Validate(b []byte, hexDigest string) bool {
	return c.Generate(b) == hexDigest
}
