//go:build !unix

package cmd

import "runtime"

// peakMemoryMegabytes falls back to the memory obtained by the Go runtime.
func peakMemoryMegabytes() int64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return int64(stats.Sys / 1024 / 1024)
}
