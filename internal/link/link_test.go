package link

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/6-eyes/atilink/pkg/atierr"
	"github.com/6-eyes/atilink/pkg/codec"
	"github.com/6-eyes/atilink/pkg/wire"
)

// writeTamperedChunk writes a checksum+data frame pair directly, bypassing
// upstream's checksum generation, so the checksum deliberately does not
// match the data that follows it.
func writeTamperedChunk(conn net.Conn, checksum string, data []byte) error {
	if err := wire.WriteFrame(conn, []byte(checksum)); err != nil {
		return err
	}
	return wire.WriteFrame(conn, data)
}

func pipe(t *testing.T) (*Link, *Link) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return New(client, nil), New(server, nil)
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p
}

// TestChunkRoundTrip exercises spec.md §8 law 5 across every
// compression x checksum combination, including "none" for both.
func TestChunkRoundTrip(t *testing.T) {
	compressions := []codec.Compression{nil, mustCompression(t, codec.CompressionZlib), mustCompression(t, codec.CompressionGZip)}
	checksums := []codec.Checksum{nil, mustChecksum(t, codec.ChecksumSha256), mustChecksum(t, codec.ChecksumMd5)}

	for _, c := range compressions {
		for _, cs := range checksums {
			sender, receiver := pipe(t)
			sender.SetCompression(c).SetChecksum(cs)
			receiver.SetCompression(c).SetChecksum(cs)

			payload := []byte("the quick brown fox jumps over the lazy dog, repeated enough to matter")

			done := make(chan error, 1)
			go func() { done <- sender.upstream(payload) }()

			got, err := receiver.downstream()
			require.NoError(t, err)
			require.NoError(t, <-done)
			require.Equal(t, payload, got)
		}
	}
}

func mustCompression(t *testing.T, k codec.CompressionKind) codec.Compression {
	t.Helper()
	c, err := k.Resolve()
	require.NoError(t, err)
	return c
}

func mustChecksum(t *testing.T, k codec.ChecksumKind) codec.Checksum {
	t.Helper()
	c, err := k.Resolve()
	require.NoError(t, err)
	return c
}

// TestWriteReadFromStreamRoundTrip covers a whole-file transfer, law 5,
// using a payload whose length is an exact multiple of ChunkSize so the
// preserved short-read bug (Open Question 1) cannot perturb it.
func TestWriteReadFromStreamRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	content := make([]byte, ChunkSize*2)
	for i := range content {
		content[i] = byte(i % 251)
	}
	src := writeFile(t, srcDir, "payload.bin", content)

	sender, receiver := pipe(t)
	cs := mustChecksum(t, codec.ChecksumSha256)
	sender.SetChecksum(cs)
	receiver.SetChecksum(cs)

	marker := EOFMarker()

	done := make(chan error, 1)
	go func() { done <- sender.WriteToStream(src, "payload.bin") }()

	rel, err := receiver.ReadFromStream(dstDir, marker)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, "payload.bin", rel)

	got, err := os.ReadFile(filepath.Join(dstDir, "payload.bin"))
	require.NoError(t, err)
	require.Equal(t, content, got)
}

// TestTrailingChunkCarriesStaleBytes pins Open Question 1 (spec.md §9):
// WriteToStream reuses the same ChunkSize buffer across reads and always
// sends it in full, so a file shorter than one chunk arrives padded with
// the buffer's untouched tail rather than truncated to the real content
// length — here that tail is the zero-initialized bytes make() leaves
// beyond the one short read that ever happens.
func TestTrailingChunkCarriesStaleBytes(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	content := []byte("not a full chunk of data")
	src := writeFile(t, srcDir, "short.bin", content)

	sender, receiver := pipe(t)
	marker := EOFMarker()

	done := make(chan error, 1)
	go func() { done <- sender.WriteToStream(src, "short.bin") }()

	rel, err := receiver.ReadFromStream(dstDir, marker)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, "short.bin", rel)

	got, err := os.ReadFile(filepath.Join(dstDir, "short.bin"))
	require.NoError(t, err)
	require.Len(t, got, ChunkSize)
	require.Equal(t, content, got[:len(content)])
	require.Equal(t, make([]byte, ChunkSize-len(content)), got[len(content):])
}

// TestReadFromStreamDeletesPartialFileOnIntegrityError pins spec.md §8
// law 6: a chunk integrity failure mid-file removes the partially
// written destination file and surfaces the error as an IntegrityError.
func TestReadFromStreamDeletesPartialFileOnIntegrityError(t *testing.T) {
	dstDir := t.TempDir()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })

	sender := New(clientConn, nil)
	receiver := New(serverConn, nil)
	cs := mustChecksum(t, codec.ChecksumSha256)
	sender.SetChecksum(cs)
	receiver.SetChecksum(cs)

	marker := EOFMarker()

	done := make(chan error, 1)
	go func() {
		if err := sender.writeFileMetadata("bad.bin"); err != nil {
			done <- err
			return
		}
		// write one good chunk, then corrupt the checksum of the second.
		chunk := make([]byte, ChunkSize)
		if err := sender.upstream(chunk); err != nil {
			done <- err
			return
		}
		tamperedSum := cs.Generate([]byte("not the actual chunk"))
		if err := writeTamperedChunk(clientConn, tamperedSum, chunk); err != nil {
			done <- err
			return
		}
		done <- sender.upstream(marker)
	}()

	_, err := receiver.ReadFromStream(dstDir, marker)
	require.Error(t, err)
	require.True(t, atierr.IsKind(err, atierr.IntegrityError))

	_, statErr := os.Stat(filepath.Join(dstDir, "bad.bin"))
	require.True(t, os.IsNotExist(statErr), "expected partially written file to be removed")
}

func TestReadFromStreamRejectsPathTraversal(t *testing.T) {
	dstDir := t.TempDir()
	sender, receiver := pipe(t)

	done := make(chan error, 1)
	go func() { done <- sender.writeFileMetadata("../escape.txt") }()

	_, err := receiver.ReadFromStream(dstDir, EOFMarker())
	require.Error(t, err)
	require.True(t, atierr.IsKind(err, atierr.InvalidRequest))
	<-done
}

func TestMetadataNegotiationInstallsCodecs(t *testing.T) {
	driver, server := pipe(t)
	zlib := mustCompression(t, codec.CompressionZlib)
	md5 := mustChecksum(t, codec.ChecksumMd5)
	driver.SetCompression(zlib).SetChecksum(md5)

	done := make(chan error, 1)
	go func() { done <- driver.WriteUploadMetadata(3, "/dest") }()

	got, err := server.ReadUploadMetadata()
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Equal(t, uint32(3), got.Count)
	require.NotNil(t, server.Compression())
	require.Equal(t, codec.CompressionZlib, server.Compression().Kind())
	require.NotNil(t, server.Checksum())
	require.Equal(t, codec.ChecksumMd5, server.Checksum().Kind())
}

func TestResultRoundTrip(t *testing.T) {
	sender, receiver := pipe(t)

	done := make(chan error, 1)
	go func() { done <- sender.WriteOkResult(7) }()

	result, err := receiver.ReadResult()
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.True(t, result.Ok)
	require.Equal(t, uint32(7), result.Count)
}
