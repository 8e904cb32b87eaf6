package report

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/langshake/shake-proof/internal/metrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormattedMetrics is a phase snapshot rendered for display. Every writer
// that shows metrics reads these strings so the formats agree.
type FormattedMetrics struct {
	Phase          string `json:"phase"`
	Duration       string `json:"duration"`
	CPUUser        string `json:"cpu_user"`
	CPUSystem      string `json:"cpu_system"`
	MemoryStart    string `json:"memory_start"`
	MemoryEnd      string `json:"memory_end"`
	MemoryPeak     string `json:"memory_peak"`
	Requests       string `json:"requests"`
	AverageLatency string `json:"average_latency"`
	BytesIn        string `json:"bytes_in"`
	BytesOut       string `json:"bytes_out"`
	Throughput     string `json:"throughput"`
	Errors         string `json:"errors"`
	DiskWritten    string `json:"disk_written"`
	MaxConcurrency string `json:"max_concurrency"`
}

// FormatMetrics renders s with the number formatting of tag.
func FormatMetrics(s metrics.Snapshot, tag language.Tag) FormattedMetrics {
	p := message.NewPrinter(tag)
	return FormattedMetrics{
		Phase:          cases.Title(tag).String(s.Phase),
		Duration:       formatDuration(s.Duration),
		CPUUser:        formatDuration(s.CPU.User),
		CPUSystem:      formatDuration(s.CPU.System),
		MemoryStart:    humanize.IBytes(s.Memory.Start),
		MemoryEnd:      humanize.IBytes(s.Memory.End),
		MemoryPeak:     humanize.IBytes(s.Memory.Peak),
		Requests:       p.Sprintf("%d", s.Requests.Count),
		AverageLatency: formatDuration(s.Requests.AverageLatency),
		BytesIn:        humanize.IBytes(nonNegative(s.Requests.BytesIn)),
		BytesOut:       humanize.IBytes(nonNegative(s.Requests.BytesOut)),
		Throughput:     p.Sprintf("%.2f req/s", s.Requests.Throughput),
		Errors:         p.Sprintf("%d", s.Errors.Count),
		DiskWritten:    humanize.IBytes(nonNegative(s.DiskBytesWritten)),
		MaxConcurrency: p.Sprintf("%d", s.MaxConcurrency),
	}
}

// formatDuration rounds d to a unit that reads well at its magnitude.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.String()
	}
}

func nonNegative(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
