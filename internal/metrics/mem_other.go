//go:build !linux

package metrics

// residentSize falls back to the peak resident size where the current one is
// not exposed without cgo, and to the Go heap where neither is available.
func residentSize() uint64 {
	if rss := peakResident(); rss > 0 {
		return rss
	}
	return heapInUse()
}
