// Package telemetry tracks simple transfer-rate metrics for one session,
// adapted from internal/telemetry/collector.go down to what a one-line
// bandwidth log needs — no AI chunk-size prediction, no RTT-driven
// resizing, since spec.md's CHUNK is a fixed compile-time constant.
package telemetry

import (
	"sync"
	"time"
)

// Collector tracks bytes transferred within a single session's lifetime.
type Collector struct {
	mu          sync.Mutex
	windowStart time.Time
	bytesMoved  uint64
}

// NewCollector creates a Collector with its window starting now.
func NewCollector() *Collector {
	return &Collector{windowStart: time.Now()}
}

// Record adds n to the bytes-moved counter.
func (c *Collector) Record(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesMoved += uint64(n)
}

// BandwidthMbps estimates throughput in megabits per second across the
// collector's lifetime so far.
func (c *Collector) BandwidthMbps() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.windowStart).Seconds()
	if elapsed <= 0 || c.bytesMoved == 0 {
		return 0
	}
	bps := float64(c.bytesMoved*8) / elapsed
	return bps / 1e6
}

// BytesMoved returns the total recorded so far.
func (c *Collector) BytesMoved() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesMoved
}
