package telemetry

import "testing"

func TestRecordAccumulates(t *testing.T) {
	c := NewCollector()
	c.Record(100)
	c.Record(200)
	if got := c.BytesMoved(); got != 300 {
		t.Fatalf("BytesMoved() = %d, want 300", got)
	}
}

func TestRecordIgnoresNonPositive(t *testing.T) {
	c := NewCollector()
	c.Record(0)
	c.Record(-5)
	if got := c.BytesMoved(); got != 0 {
		t.Fatalf("BytesMoved() = %d, want 0", got)
	}
}

func TestBandwidthZeroWithNoData(t *testing.T) {
	c := NewCollector()
	if got := c.BandwidthMbps(); got != 0 {
		t.Fatalf("BandwidthMbps() = %v, want 0", got)
	}
}
