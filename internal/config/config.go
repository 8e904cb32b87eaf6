package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds each fetch attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultAttempts is the number of tries per request.
	DefaultAttempts = 3

	// DefaultRetryDelay is the pause between attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultConcurrency is the in-flight limit of each phase.
	DefaultConcurrency = 5

	// DefaultManifestName is the manifest under /.well-known/.
	DefaultManifestName = "llm.json"

	// AppName is the application name used for XDG directory paths.
	AppName = "shakeproof"

	// DefaultUserAgent identifies the benchmark in server logs.
	DefaultUserAgent = "shakeproof/1.0 (+https://github.com/langshake/shake-proof)"

	// DefaultMaxBodySize limits how much of a response is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MiB

	// DefaultRateBurst applies when a rate limit is set without a burst.
	DefaultRateBurst = 1
)

// Config holds every option of a benchmark invocation. It is populated from
// CLI flags and the configuration file and passed down explicitly.
type Config struct {
	// Targets are the domain roots to benchmark, in order.
	Targets []string

	// Timeout bounds each fetch attempt.
	Timeout time.Duration

	// Attempts is the number of tries per request, including the first.
	Attempts int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// Concurrency is the in-flight limit of each phase.
	Concurrency int

	// ManifestName is the manifest file under /.well-known/.
	ManifestName string

	// RateLimit caps requests per second across a run. Zero disables it.
	RateLimit float64

	// RateBurst is the limiter burst size.
	RateBurst int

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize truncates larger responses.
	MaxBodySize int64

	// Render fetches reference pages with headless Chromium.
	Render bool

	// Stealth hides headless browser fingerprints. Requires Render.
	Stealth bool

	// BrowserBin is the Chromium binary; empty lets go-rod find or download one.
	BrowserBin string

	// ArtifactsDir receives the records of both phases when set.
	ArtifactsDir string

	// JSONReport and MarkdownReport select the output format. Mutually
	// exclusive; plain text is the default.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is the output path; empty means stdout.
	ReportFile string

	// NoProgress disables the progress display.
	NoProgress bool

	// SaveToDB stores each result in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches logs to JSON lines.
	LogJSON bool

	// ConfigFilePath is an explicit configuration file.
	ConfigFilePath string

	// File holds the loaded configuration file, if any.
	File *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:      DefaultTimeout,
		Attempts:     DefaultAttempts,
		RetryDelay:   DefaultRetryDelay,
		Concurrency:  DefaultConcurrency,
		ManifestName: DefaultManifestName,
		RateBurst:    DefaultRateBurst,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		SaveToDB:     true,
		DBDir:        XDGDataDir(),
	}
}

// ForDomain returns a copy of c with the file's settings for domain applied.
// Flags set explicitly on the command line win over the file; changed
// reports whether a flag was set.
func (c *Config) ForDomain(domain string, changed func(flag string) bool) *Config {
	out := *c
	if c.File == nil {
		return &out
	}
	dc := c.File.GetDomainConfig(domain)

	if dc.Manifest != "" && !changed("manifest") {
		out.ManifestName = dc.Manifest
	}
	if dc.Concurrency > 0 && !changed("concurrency") {
		out.Concurrency = dc.Concurrency
	}
	if dc.Render != nil && !changed("render") {
		out.Render = *dc.Render
	}
	return &out
}

// Headers returns the extra request headers configured for domain.
func (c *Config) Headers(domain string) map[string]string {
	if c.File == nil {
		return nil
	}
	return c.File.GetDomainConfig(domain).Headers
}

// XDGDataDir returns the XDG data directory, ~/.local/share/shakeproof on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory, ~/.config/shakeproof on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Attempts < 1 {
		return ErrInvalidAttempts
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	name := strings.TrimSpace(c.ManifestName)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return ErrEmptyManifestName
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Stealth && !c.Render {
		return ErrStealthWithoutRender
	}
	return nil
}
