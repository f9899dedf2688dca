package dial

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsImmediately(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	conn, err := WithRetry(context.Background(), ln.Addr().String(), DefaultBackoff(), nil)
	require.NoError(t, err)
	conn.Close()
}

func TestWithRetryFailsAfterExhaustion(t *testing.T) {
	b := Backoff{MaxRetries: 1, Base: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2, Jitter: 0}
	_, err := WithRetry(context.Background(), "127.0.0.1:1", b, nil)
	require.Error(t, err)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := Backoff{MaxRetries: 3, Base: 50 * time.Millisecond, Max: time.Second, Multiplier: 2, Jitter: 0}
	_, err := WithRetry(ctx, "127.0.0.1:1", b, nil)
	require.Error(t, err)
}
