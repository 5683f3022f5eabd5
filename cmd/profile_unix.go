//go:build unix

package cmd

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// peakMemoryMegabytes reports the process's peak resident set size.
func peakMemoryMegabytes() int64 {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return 0
	}
	maxRSS := int64(usage.Maxrss)
	// Linux reports kilobytes, darwin reports bytes.
	if runtime.GOOS == "darwin" {
		return maxRSS / 1024 / 1024
	}
	return maxRSS / 1024
}
