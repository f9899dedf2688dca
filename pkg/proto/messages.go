package proto

import (
	"bytes"
	"path"
	"strings"

	"github.com/6-eyes/atilink/pkg/atierr"
	"github.com/6-eyes/atilink/pkg/codec"
)

// Role is interpreted from the perspective of the server (spec.md §3):
// Source means the server originates bytes, Sink means it consumes them.
type Role byte

const (
	// RoleSource means the server will send files.
	RoleSource Role = 0
	// RoleSink means the server will receive files.
	RoleSink Role = 1
)

func (r Role) String() string {
	if r == RoleSource {
		return "Source"
	}
	return "Sink"
}

// Encode serializes the Role as a one-byte tag.
func (r Role) Encode() []byte { return []byte{byte(r)} }

// DecodeRole parses a Role from its one-byte tag encoding.
func DecodeRole(b []byte) (Role, error) {
	if len(b) != 1 {
		return 0, atierr.Deserializef("role: expected 1 byte, got %d", len(b))
	}
	switch Role(b[0]) {
	case RoleSource:
		return RoleSource, nil
	case RoleSink:
		return RoleSink, nil
	default:
		return 0, atierr.Deserializef("role: unknown tag %d", b[0])
	}
}

// FileMetadata is sent once per file, immediately before that file's
// chunks (spec.md §3). RelPath is always relative to the transfer's
// destination directory.
type FileMetadata struct {
	RelPath string
}

// Validate rejects any rel_path that would escape the destination root,
// per spec.md §3's "never escapes destination" invariant and Open
// Question 3.
func (f FileMetadata) Validate() error {
	clean := path.Clean(filepathToSlash(f.RelPath))
	if clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return atierr.InvalidRequestf("rel_path %q escapes destination root", f.RelPath)
	}
	return nil
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// Encode serializes FileMetadata.
func (f FileMetadata) Encode() []byte {
	var buf bytes.Buffer
	putString(&buf, f.RelPath)
	return buf.Bytes()
}

// DecodeFileMetadata parses FileMetadata from its binary encoding.
func DecodeFileMetadata(b []byte) (FileMetadata, error) {
	r := bytes.NewReader(b)
	relPath, err := getString(r)
	if err != nil {
		return FileMetadata{}, err
	}
	return FileMetadata{RelPath: relPath}, nil
}

// UploadMetadata is sent by the Sink-driver to the Sink server: count
// files will follow, all placed under Destination, with the
// transformation stack fixed for the rest of the session (spec.md §3).
type UploadMetadata struct {
	Count       uint32
	Destination string
	EOFMarker   []byte
	Compression *codec.CompressionKind
	Checksum    *codec.ChecksumKind
}

// Encode serializes UploadMetadata.
func (m UploadMetadata) Encode() []byte {
	var buf bytes.Buffer
	putU32(&buf, m.Count)
	putString(&buf, m.Destination)
	putBytes(&buf, m.EOFMarker)
	encodeOptionalCompression(&buf, m.Compression)
	encodeOptionalChecksum(&buf, m.Checksum)
	return buf.Bytes()
}

// DecodeUploadMetadata parses UploadMetadata from its binary encoding.
func DecodeUploadMetadata(b []byte) (UploadMetadata, error) {
	r := bytes.NewReader(b)
	var m UploadMetadata
	var err error

	if m.Count, err = getU32(r); err != nil {
		return m, err
	}
	if m.Destination, err = getString(r); err != nil {
		return m, err
	}
	if m.EOFMarker, err = getBytes(r); err != nil {
		return m, err
	}
	if m.Compression, err = decodeOptionalCompression(r); err != nil {
		return m, err
	}
	if m.Checksum, err = decodeOptionalChecksum(r); err != nil {
		return m, err
	}
	return m, nil
}

// DownloadMetadata is sent by the Source-driver to the Source server.
// Destination names the source's file or directory to read from — a
// request, not a local path on the server (spec.md §3).
type DownloadMetadata struct {
	Destination string
	Compression *codec.CompressionKind
	Checksum    *codec.ChecksumKind
}

// Encode serializes DownloadMetadata.
func (m DownloadMetadata) Encode() []byte {
	var buf bytes.Buffer
	putString(&buf, m.Destination)
	encodeOptionalCompression(&buf, m.Compression)
	encodeOptionalChecksum(&buf, m.Checksum)
	return buf.Bytes()
}

// DecodeDownloadMetadata parses DownloadMetadata from its binary encoding.
func DecodeDownloadMetadata(b []byte) (DownloadMetadata, error) {
	r := bytes.NewReader(b)
	var m DownloadMetadata
	var err error

	if m.Destination, err = getString(r); err != nil {
		return m, err
	}
	if m.Compression, err = decodeOptionalCompression(r); err != nil {
		return m, err
	}
	if m.Checksum, err = decodeOptionalChecksum(r); err != nil {
		return m, err
	}
	return m, nil
}

// Result is sent by the Source server to the Source-driver: either Ok
// (announcing the file count and EOF marker) or Err (a human-readable
// failure) (spec.md §3).
type Result struct {
	Ok     bool
	Count  uint32
	Marker []byte
	ErrMsg string
}

// OkResult builds a successful Result.
func OkResult(count uint32, marker []byte) Result {
	return Result{Ok: true, Count: count, Marker: marker}
}

// ErrResult builds a failed Result carrying msg.
func ErrResult(msg string) Result {
	return Result{Ok: false, ErrMsg: msg}
}

const (
	resultTagOk  byte = 0
	resultTagErr byte = 1
)

// Encode serializes Result.
func (r Result) Encode() []byte {
	var buf bytes.Buffer
	if r.Ok {
		buf.WriteByte(resultTagOk)
		putU32(&buf, r.Count)
		putBytes(&buf, r.Marker)
	} else {
		buf.WriteByte(resultTagErr)
		putString(&buf, r.ErrMsg)
	}
	return buf.Bytes()
}

// DecodeResult parses Result from its binary encoding.
func DecodeResult(b []byte) (Result, error) {
	r := bytes.NewReader(b)
	tag, err := r.ReadByte()
	if err != nil {
		return Result{}, atierr.Deserializef("result: read tag: %v", err)
	}
	switch tag {
	case resultTagOk:
		count, err := getU32(r)
		if err != nil {
			return Result{}, err
		}
		marker, err := getBytes(r)
		if err != nil {
			return Result{}, err
		}
		return OkResult(count, marker), nil
	case resultTagErr:
		msg, err := getString(r)
		if err != nil {
			return Result{}, err
		}
		return ErrResult(msg), nil
	default:
		return Result{}, atierr.Deserializef("result: unknown tag %d", tag)
	}
}

func encodeOptionalCompression(buf *bytes.Buffer, k *codec.CompressionKind) {
	putOptionTag(buf, k != nil)
	if k != nil {
		buf.WriteByte(byte(*k))
	}
}

func decodeOptionalCompression(r *bytes.Reader) (*codec.CompressionKind, error) {
	present, err := getOptionTag(r)
	if err != nil || !present {
		return nil, err
	}
	tag, err := r.ReadByte()
	if err != nil {
		return nil, atierr.Deserializef("read compression tag: %v", err)
	}
	k := codec.CompressionKind(tag)
	if _, err := k.Resolve(); err != nil {
		return nil, err
	}
	return &k, nil
}

func encodeOptionalChecksum(buf *bytes.Buffer, k *codec.ChecksumKind) {
	putOptionTag(buf, k != nil)
	if k != nil {
		buf.WriteByte(byte(*k))
	}
}

func decodeOptionalChecksum(r *bytes.Reader) (*codec.ChecksumKind, error) {
	present, err := getOptionTag(r)
	if err != nil || !present {
		return nil, err
	}
	tag, err := r.ReadByte()
	if err != nil {
		return nil, atierr.Deserializef("read checksum tag: %v", err)
	}
	k := codec.ChecksumKind(tag)
	if _, err := k.Resolve(); err != nil {
		return nil, err
	}
	return &k, nil
}
