package metrics

import "time"

// Snapshot is the immutable summary of one phase.
type Snapshot struct {
	Phase            string        `json:"phase"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       time.Time     `json:"finished_at"`
	Duration         time.Duration `json:"duration_ns"`
	CPU              CPUUsage      `json:"cpu"`
	Memory           MemoryUsage   `json:"memory"`
	Requests         RequestStats  `json:"requests"`
	Errors           ErrorStats    `json:"errors"`
	DiskBytesWritten int64         `json:"disk_bytes_written"`
	MaxConcurrency   int           `json:"max_concurrency"`
}

// CPUUsage is the process CPU time consumed during the phase.
type CPUUsage struct {
	User   time.Duration `json:"user_ns"`
	System time.Duration `json:"system_ns"`
}

// Total returns user plus system time.
func (u CPUUsage) Total() time.Duration {
	return u.User + u.System
}

// MemoryUsage is the process resident set size in bytes. Peak is the
// process high-water mark, which can predate the phase when an earlier phase
// used more memory.
type MemoryUsage struct {
	Start uint64 `json:"start_bytes"`
	End   uint64 `json:"end_bytes"`
	Peak  uint64 `json:"peak_bytes"`
}

// RequestStats aggregates the requests of a phase.
type RequestStats struct {
	Count          int             `json:"count"`
	StatusCodes    map[int]int     `json:"status_codes"`
	AverageLatency time.Duration   `json:"average_latency_ns"`
	BytesIn        int64           `json:"bytes_in"`
	BytesOut       int64           `json:"bytes_out"`
	Throughput     float64         `json:"requests_per_second"`
	Records        []RequestRecord `json:"records,omitempty"`
}

// ErrorStats lists the errors of a phase.
type ErrorStats struct {
	Count   int          `json:"count"`
	Entries []ErrorEntry `json:"entries,omitempty"`
}
