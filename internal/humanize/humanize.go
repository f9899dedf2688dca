// Package humanize formats byte counts for the driver CLI's banners,
// adapted from pkg/utils.HumanBytes.
package humanize

import "fmt"

// Bytes returns a human-readable representation of a byte count.
func Bytes(n int64) string {
	const (
		_          = iota
		KB float64 = 1 << (10 * iota)
		MB
		GB
		TB
	)

	f := float64(n)
	switch {
	case f >= TB:
		return fmt.Sprintf("%.2fTB", f/TB)
	case f >= GB:
		return fmt.Sprintf("%.2fGB", f/GB)
	case f >= MB:
		return fmt.Sprintf("%.2fMB", f/MB)
	case f >= KB:
		return fmt.Sprintf("%.2fKB", f/KB)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
