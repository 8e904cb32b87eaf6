package metrics

import (
	"errors"
	"runtime"
	"sync"
	"time"
)

// ErrAlreadyStarted is returned when Start is called on a collector that has
// already been started. A collector measures exactly one phase.
var ErrAlreadyStarted = errors.New("metrics collector already started")

// RequestRecord describes one completed HTTP exchange.
type RequestRecord struct {
	URL        string    `json:"url"`
	Method     string    `json:"method"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	BytesIn    int64     `json:"bytes_in"`
	BytesOut   int64     `json:"bytes_out"`
	StatusCode int       `json:"status_code"`
}

// Latency returns the wall time the request took.
func (r RequestRecord) Latency() time.Duration {
	return r.End.Sub(r.Start)
}

// ErrorEntry is a timestamped failure observed during a phase.
type ErrorEntry struct {
	URL     string    `json:"url"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// CPUTimes holds cumulative process CPU usage.
type CPUTimes struct {
	User   time.Duration
	System time.Duration
}

// Collector accumulates timing, CPU, memory, network and error counters for
// a single crawl phase. All methods are safe for concurrent use.
type Collector struct {
	mu sync.Mutex

	phase string

	now         func() time.Time
	sampleMem   func() uint64
	samplePeak  func() uint64
	sampleCPU   func() CPUTimes
	memSet      bool
	peakSet     bool
	keepRecords bool

	started   bool
	finalized bool

	startTime time.Time
	endTime   time.Time
	cpuStart  CPUTimes
	cpuEnd    CPUTimes
	memStart  uint64
	memEnd    uint64
	memPeak   uint64

	requests     []RequestRecord
	statusCodes  map[int]int
	bytesIn      int64
	bytesOut     int64
	totalLatency time.Duration

	errors []ErrorEntry

	diskBytes int64

	currentConcurrency int
	maxConcurrency     int
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMemorySampler overrides how current resident memory is measured.
// Unless WithPeakSampler is also given, the peak is then taken from these
// samples alone.
func WithMemorySampler(sample func() uint64) Option {
	return func(c *Collector) {
		if sample != nil {
			c.sampleMem = sample
			c.memSet = true
		}
	}
}

// WithPeakSampler overrides how the process high-water resident size is read.
func WithPeakSampler(sample func() uint64) Option {
	return func(c *Collector) {
		if sample != nil {
			c.samplePeak = sample
			c.peakSet = true
		}
	}
}

// WithCPUSampler overrides how process CPU time is measured.
func WithCPUSampler(sample func() CPUTimes) Option {
	return func(c *Collector) {
		if sample != nil {
			c.sampleCPU = sample
		}
	}
}

// WithRequestRecords keeps every request record in the snapshot.
// By default only aggregates are exposed.
func WithRequestRecords(keep bool) Option {
	return func(c *Collector) {
		c.keepRecords = keep
	}
}

// New creates a collector for the named phase.
func New(phase string, opts ...Option) *Collector {
	c := &Collector{
		phase:       phase,
		now:         time.Now,
		sampleMem:   residentSize,
		samplePeak:  peakResident,
		sampleCPU:   processCPU,
		statusCodes: make(map[int]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.memSet && !c.peakSet {
		c.samplePeak = func() uint64 { return 0 }
	}
	return c
}

// Phase returns the phase name given to New.
func (c *Collector) Phase() string {
	return c.phase
}

// Start captures the baseline wall clock, memory and CPU counters.
func (c *Collector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true
	c.startTime = c.now()
	c.cpuStart = c.sampleCPU()
	c.memStart = c.sampleMem()
	c.memPeak = c.memStart
	return nil
}

// RecordRequest appends a completed request and updates byte, status and
// latency totals. Memory is sampled on every call to track the peak.
func (c *Collector) RecordRequest(r RequestRecord) {
	mem := c.sampleMem()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, r)
	c.statusCodes[r.StatusCode]++
	c.bytesIn += r.BytesIn
	c.bytesOut += r.BytesOut
	c.totalLatency += r.Latency()
	if mem > c.memPeak {
		c.memPeak = mem
	}
}

// RecordError appends a timestamped error.
func (c *Collector) RecordError(url string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors = append(c.errors, ErrorEntry{
		URL:     url,
		Message: msg,
		Time:    c.now(),
	})
}

// RecordDiskUsage adds n bytes to the disk-written counter.
func (c *Collector) RecordDiskUsage(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diskBytes += n
}

// UpdateConcurrency sets the current number of in-flight tasks and keeps
// the running maximum.
func (c *Collector) UpdateConcurrency(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentConcurrency = n
	if n > c.maxConcurrency {
		c.maxConcurrency = n
	}
}

// Finalize captures end-of-phase time, memory and CPU. Calls after the first
// are no-ops so a snapshot taken later still reflects the phase boundary.
func (c *Collector) Finalize() {
	mem := c.sampleMem()
	peak := c.samplePeak()
	cpu := c.sampleCPU()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return
	}
	c.finalized = true
	c.endTime = c.now()
	c.cpuEnd = cpu
	c.memEnd = mem
	c.memPeak = max(c.memPeak, mem, peak)
}

// Snapshot returns an immutable summary. Derived values are computed at
// read time; an unfinalized collector is measured up to now.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.endTime
	cpuEnd := c.cpuEnd
	memEnd := c.memEnd
	memPeak := c.memPeak
	if !c.finalized {
		end = c.now()
		cpuEnd = c.sampleCPU()
		memEnd = c.sampleMem()
		memPeak = max(memPeak, c.samplePeak())
	}

	var elapsed time.Duration
	if c.started {
		elapsed = end.Sub(c.startTime)
	}

	s := Snapshot{
		Phase:      c.phase,
		StartedAt:  c.startTime,
		FinishedAt: end,
		Duration:   elapsed,
		CPU: CPUUsage{
			User:   cpuEnd.User - c.cpuStart.User,
			System: cpuEnd.System - c.cpuStart.System,
		},
		Memory: MemoryUsage{
			Start: c.memStart,
			End:   memEnd,
			Peak:  max(memPeak, memEnd),
		},
		Requests: RequestStats{
			Count:       len(c.requests),
			StatusCodes: make(map[int]int, len(c.statusCodes)),
			BytesIn:     c.bytesIn,
			BytesOut:    c.bytesOut,
		},
		Errors: ErrorStats{
			Count:   len(c.errors),
			Entries: append([]ErrorEntry(nil), c.errors...),
		},
		DiskBytesWritten: c.diskBytes,
		MaxConcurrency:   c.maxConcurrency,
	}

	for code, n := range c.statusCodes {
		s.Requests.StatusCodes[code] = n
	}
	if n := len(c.requests); n > 0 {
		s.Requests.AverageLatency = c.totalLatency / time.Duration(n)
		if secs := elapsed.Seconds(); secs > 0 {
			s.Requests.Throughput = float64(n) / secs
		}
	}
	if c.keepRecords {
		s.Requests.Records = append([]RequestRecord(nil), c.requests...)
	}

	return s
}

// heapInUse reports the bytes of heap currently in use. It stands in for the
// resident size where the platform does not expose one.
func heapInUse() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapInuse
}
