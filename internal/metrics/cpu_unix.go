//go:build unix

package metrics

import (
	"time"

	"golang.org/x/sys/unix"
)

// processCPU returns cumulative user and system CPU time of this process.
func processCPU() CPUTimes {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return CPUTimes{}
	}
	return CPUTimes{
		User:   time.Duration(ru.Utime.Nano()),
		System: time.Duration(ru.Stime.Nano()),
	}
}
