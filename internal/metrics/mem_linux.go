package metrics

import (
	"os"
	"strconv"
	"strings"
)

// residentSize returns the current resident set size from /proc/self/statm.
func residentSize() uint64 {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return heapInUse()
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return heapInUse()
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return heapInUse()
	}
	return pages * uint64(os.Getpagesize())
}
