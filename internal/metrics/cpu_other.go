//go:build !unix

package metrics

// processCPU is unsupported on this platform and reports zero usage.
func processCPU() CPUTimes {
	return CPUTimes{}
}

// peakResident is unsupported on this platform.
func peakResident() uint64 {
	return 0
}
