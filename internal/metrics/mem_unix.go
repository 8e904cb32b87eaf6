//go:build unix

package metrics

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// peakResident returns the high-water resident set size of this process in
// bytes. The counter covers the whole process lifetime, not just a phase.
func peakResident() uint64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil || ru.Maxrss <= 0 {
		return 0
	}
	// Darwin reports bytes, the other unixes KiB.
	if runtime.GOOS == "darwin" || runtime.GOOS == "ios" {
		return uint64(ru.Maxrss)
	}
	return uint64(ru.Maxrss) * 1024
}
