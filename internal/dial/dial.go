// Package dial implements the driver-side connection helper: dialing the
// daemon's address with exponential backoff, adapted from the teacher's
// circuit-breaking retry manager but stripped to the backoff atilink
// actually needs — a single two-endpoint session has no per-peer circuit
// state to track.
package dial

import (
	"context"
	"math"
	"math/rand"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/6-eyes/atilink/pkg/atierr"
)

// Backoff configures WithRetry's exponential-backoff-with-jitter schedule.
type Backoff struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultBackoff mirrors the teacher's RetryManager defaults.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxRetries: 5,
		Base:       100 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

func (b Backoff) next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	backoff := float64(b.Base) * math.Pow(b.Multiplier, float64(attempt-1))
	if backoff > float64(b.Max) {
		backoff = float64(b.Max)
	}
	jitter := backoff * b.Jitter * (rand.Float64()*2 - 1)
	backoff += jitter
	if backoff < float64(b.Base) {
		backoff = float64(b.Base)
	}
	return time.Duration(backoff)
}

// WithRetry dials addr with TCP, retrying on failure per b's schedule,
// until ctx is done or attempts are exhausted.
func WithRetry(ctx context.Context, addr string, b Backoff, log *zap.Logger) (net.Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var lastErr error
	dialer := &net.Dialer{}

	for attempt := 1; attempt <= b.MaxRetries+1; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Warn("dial attempt failed", zap.String("addr", addr), zap.Int("attempt", attempt), zap.Error(err))

		if attempt > b.MaxRetries {
			break
		}

		wait := b.next(attempt)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, atierr.ConnectionFailedf("dial %s canceled: %v", addr, ctx.Err())
		case <-timer.C:
		}
	}

	return nil, atierr.ConnectionFailedf("dial %s after %d attempts: %v", addr, b.MaxRetries+1, lastErr)
}
