//go:build unix

package debug

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// getrusage reports the peak, not the current size.
const rssKey = "max_rss"

// residentSetSize returns the peak resident set size in bytes. getrusage has
// no current-RSS field; the peak is what the kernel tracks.
func residentSetSize() (uint64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, err
	}
	maxrss := uint64(ru.Maxrss)
	// Darwin reports bytes, everything else kilobytes.
	if runtime.GOOS != "darwin" && runtime.GOOS != "ios" {
		maxrss *= 1024
	}
	return maxrss, nil
}
