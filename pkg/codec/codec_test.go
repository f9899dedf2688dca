package codec

import (
	"bytes"
	"testing"

	"github.com/6-eyes/atilink/pkg/atierr"
)

func TestCompressionRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("atilink chunked transfer payload"), 500)

	for _, kind := range []CompressionKind{CompressionZlib, CompressionGZip} {
		algo, err := kind.Resolve()
		if err != nil {
			t.Fatalf("Resolve(%v): %v", kind, err)
		}
		compressed, err := algo.Compress(data)
		if err != nil {
			t.Fatalf("%v Compress: %v", kind, err)
		}
		decompressed, err := algo.Decompress(compressed)
		if err != nil {
			t.Fatalf("%v Decompress: %v", kind, err)
		}
		if !bytes.Equal(decompressed, data) {
			t.Fatalf("%v round-trip mismatch", kind)
		}
	}
}

func TestUnknownCompressionKindIsDeserializeError(t *testing.T) {
	if _, err := CompressionKind(99).Resolve(); !atierr.IsKind(err, atierr.Deserialize) {
		t.Fatalf("expected Deserialize error for unknown compression kind, got %v", err)
	}
}

func TestChecksumAgreement(t *testing.T) {
	data := []byte("hello world")
	other := []byte("goodbye world")

	for _, kind := range []ChecksumKind{ChecksumSha256, ChecksumMd5} {
		algo, err := kind.Resolve()
		if err != nil {
			t.Fatalf("Resolve(%v): %v", kind, err)
		}
		digest := algo.Generate(data)
		if !algo.Validate(data, digest) {
			t.Fatalf("%v: expected validate to succeed for matching data", kind)
		}
		if algo.Validate(other, digest) {
			t.Fatalf("%v: expected validate to fail for different data", kind)
		}
	}
}

func TestUnknownChecksumKindIsDeserializeError(t *testing.T) {
	if _, err := ChecksumKind(99).Resolve(); !atierr.IsKind(err, atierr.Deserialize) {
		t.Fatalf("expected Deserialize error for unknown checksum kind, got %v", err)
	}
}

func TestParseKinds(t *testing.T) {
	if k, err := ParseCompressionKind("Zlib"); err != nil || k != CompressionZlib {
		t.Fatalf("ParseCompressionKind(Zlib) = %v, %v", k, err)
	}
	if _, err := ParseCompressionKind("Brotli"); err == nil {
		t.Fatalf("expected error for unknown compression name")
	}
	if k, err := ParseChecksumKind("Md5"); err != nil || k != ChecksumMd5 {
		t.Fatalf("ParseChecksumKind(Md5) = %v, %v", k, err)
	}
	if _, err := ParseChecksumKind("Crc32"); err == nil {
		t.Fatalf("expected error for unknown checksum name")
	}
}
