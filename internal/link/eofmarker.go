package link

import (
	"crypto/rand"
	"sync"
)

// ChunkSize is CHUNK from spec.md §3: the fixed compile-time transfer
// block size both peers must agree on ahead of time.
const ChunkSize = 32 * 1024

var (
	eofMarkerOnce sync.Once
	eofMarker     [ChunkSize]byte
)

// EOFMarker returns the process-wide end-of-file sentinel: a ChunkSize
// random byte sequence generated once from a cryptographic source
// (spec.md §6) and shared with peers via the metadata message. It is
// immutable after initialization and safe to call without synchronization
// from any goroutine.
func EOFMarker() []byte {
	eofMarkerOnce.Do(func() {
		// crypto/rand.Read only fails if the platform's entropy source is
		// unavailable, which is unrecoverable; a zeroed marker would just
		// make every file's trailing data look like a false EOF, so panic
		// loudly instead of transferring corrupt files silently.
		if _, err := rand.Read(eofMarker[:]); err != nil {
			panic("atilink: cannot generate EOF marker: " + err.Error())
		}
	})
	return eofMarker[:]
}
