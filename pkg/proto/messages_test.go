package proto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/6-eyes/atilink/pkg/codec"
)

func zlibKind() *codec.CompressionKind {
	k := codec.CompressionZlib
	return &k
}

func sha256Kind() *codec.ChecksumKind {
	k := codec.ChecksumSha256
	return &k
}

func TestRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleSource, RoleSink} {
		got, err := DecodeRole(r.Encode())
		require.NoError(t, err)
		require.Equal(t, r, got)
	}
}

func TestDecodeRoleRejectsUnknownTag(t *testing.T) {
	_, err := DecodeRole([]byte{42})
	require.Error(t, err)
}

func TestFileMetadataRoundTrip(t *testing.T) {
	m := FileMetadata{RelPath: "a/b/c.txt"}
	got, err := DecodeFileMetadata(m.Encode())
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestFileMetadataRejectsTraversal(t *testing.T) {
	cases := []string{"../escape.txt", "a/../../escape.txt", "/abs/path"}
	for _, rel := range cases {
		err := FileMetadata{RelPath: rel}.Validate()
		require.Error(t, err, "expected rejection for %q", rel)
	}
}

func TestFileMetadataAllowsOrdinaryRelativePaths(t *testing.T) {
	cases := []string{"a.txt", "d/a", "d/b/c", "./x"}
	for _, rel := range cases {
		require.NoError(t, FileMetadata{RelPath: rel}.Validate(), "rel=%q", rel)
	}
}

func TestUploadMetadataRoundTrip(t *testing.T) {
	m := UploadMetadata{
		Count:       3,
		Destination: "/tmp/out",
		EOFMarker:   bytes.Repeat([]byte{0x42}, 16),
		Compression: zlibKind(),
		Checksum:    sha256Kind(),
	}
	got, err := DecodeUploadMetadata(m.Encode())
	require.NoError(t, err)
	require.Equal(t, m.Count, got.Count)
	require.Equal(t, m.Destination, got.Destination)
	require.Equal(t, m.EOFMarker, got.EOFMarker)
	require.Equal(t, *m.Compression, *got.Compression)
	require.Equal(t, *m.Checksum, *got.Checksum)
}

func TestUploadMetadataRoundTripNoCodecs(t *testing.T) {
	m := UploadMetadata{Count: 1, Destination: "/tmp/out", EOFMarker: []byte("marker")}
	got, err := DecodeUploadMetadata(m.Encode())
	require.NoError(t, err)
	require.Nil(t, got.Compression)
	require.Nil(t, got.Checksum)
	require.Equal(t, m.Destination, got.Destination)
}

func TestDownloadMetadataRoundTrip(t *testing.T) {
	m := DownloadMetadata{Destination: "/srv/data", Compression: nil, Checksum: sha256Kind()}
	got, err := DecodeDownloadMetadata(m.Encode())
	require.NoError(t, err)
	require.Equal(t, m.Destination, got.Destination)
	require.Nil(t, got.Compression)
	require.Equal(t, *m.Checksum, *got.Checksum)
}

func TestResultRoundTripOk(t *testing.T) {
	m := OkResult(5, []byte("sentinel"))
	got, err := DecodeResult(m.Encode())
	require.NoError(t, err)
	require.True(t, got.Ok)
	require.Equal(t, m.Count, got.Count)
	require.Equal(t, m.Marker, got.Marker)
}

func TestResultRoundTripErr(t *testing.T) {
	m := ErrResult(`Path "/nope" invalid`)
	got, err := DecodeResult(m.Encode())
	require.NoError(t, err)
	require.False(t, got.Ok)
	require.Equal(t, m.ErrMsg, got.ErrMsg)
}

func TestDecodeUploadMetadataRejectsUnknownCompression(t *testing.T) {
	m := UploadMetadata{Count: 1, Destination: "d", EOFMarker: []byte("m")}
	encoded := m.Encode()
	// flip the compression option tag to "present" with an invalid kind byte.
	// layout: count(4) destination(4+len) eof_marker(4+len) [compression tag]...
	idx := 4 + 4 + len(m.Destination) + 4 + len(m.EOFMarker)
	encoded[idx] = 1
	encoded = append(encoded[:idx+1], append([]byte{99}, encoded[idx+1:]...)...)

	if _, err := DecodeUploadMetadata(encoded); err == nil {
		t.Fatalf("expected deserialize error for unknown compression kind")
	}
}
