package model

import (
	"time"

	"github.com/langshake/shake-proof/internal/metrics"
)

// Module is one manifest entry after fetching and validation.
//
// When the fetch fails before a checksum could be computed, only Index, Path,
// URL and Error are set.
type Module struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	URL   string `json:"url"`

	Records []Record `json:"records,omitempty"`

	DeclaredChecksum string `json:"declared_checksum,omitempty"`
	ComputedChecksum string `json:"computed_checksum,omitempty"`
	ChecksumValid    bool   `json:"checksum_valid"`

	// CanonicalSubjectURL is the page every record of the module describes.
	CanonicalSubjectURL string `json:"canonical_subject_url,omitempty"`

	// StatusCode of the last fetch attempt, zero if none answered.
	StatusCode int `json:"status_code,omitempty"`

	// Error makes the slot unusable.
	Error *BenchError `json:"error,omitempty"`

	// Warning is a non-fatal finding, such as a checksum mismatch.
	Warning *BenchError `json:"warning,omitempty"`
}

// OK reports whether the module produced usable records.
func (m *Module) OK() bool {
	return m.Error == nil && m.ComputedChecksum != ""
}

// PageExtraction is the reference-phase outcome for one page slot.
type PageExtraction struct {
	Index      int         `json:"index"`
	URL        string      `json:"url"`
	Records    []Record    `json:"records,omitempty"`
	Bytes      int64       `json:"bytes"`
	StatusCode int         `json:"status_code,omitempty"`
	Error      *BenchError `json:"error,omitempty"`
}

// OK reports whether the extraction produced records to compare.
func (p *PageExtraction) OK() bool {
	return p.Error == nil && p.URL != ""
}

// Diff is a shallow mismatch hint built from the top-level keys of the first
// record on each side. It is not a structural diff.
type Diff struct {
	OnlyInLangshake   []string `json:"only_in_langshake,omitempty"`
	OnlyInTraditional []string `json:"only_in_traditional,omitempty"`
}

// Empty reports whether the hint found no key differences.
func (d *Diff) Empty() bool {
	return d == nil || (len(d.OnlyInLangshake) == 0 && len(d.OnlyInTraditional) == 0)
}

// PageResult correlates one canonical subject URL across both phases.
type PageResult struct {
	Index int    `json:"index"`
	URL   string `json:"url"`

	// ModulePath is the manifest entry the page came from.
	ModulePath string `json:"module_path"`

	LangshakeRecords   []Record `json:"langshake_records,omitempty"`
	TraditionalRecords []Record `json:"traditional_records,omitempty"`

	LangshakeChecksum   string `json:"langshake_checksum,omitempty"`
	TraditionalChecksum string `json:"traditional_checksum,omitempty"`

	// ChecksumValid mirrors the module's declared-versus-computed check.
	ChecksumValid bool `json:"checksum_valid"`

	SchemasMatch bool  `json:"schemas_match"`
	Diff         *Diff `json:"diff,omitempty"`

	// Error is the first slot error from either phase.
	Error *BenchError `json:"error,omitempty"`

	// Warning carries a non-fatal module finding.
	Warning *BenchError `json:"warning,omitempty"`
}

// Summary aggregates the comparison of a domain.
type Summary struct {
	TotalPages   int  `json:"total_pages"`
	MatchedPages int  `json:"matched_pages"`
	FailedPages  int  `json:"failed_pages"`
	AllMatch     bool `json:"all_match"`

	DeclaredMerkleRoot    string `json:"declared_merkle_root,omitempty"`
	LangshakeMerkleRoot   string `json:"langshake_merkle_root,omitempty"`
	TraditionalMerkleRoot string `json:"traditional_merkle_root,omitempty"`

	MerkleRootLangshakeValid   bool `json:"merkle_root_langshake_valid"`
	MerkleRootTraditionalValid bool `json:"merkle_root_traditional_valid"`
	MerkleRootsMatch           bool `json:"merkle_roots_match"`
}

// PhaseMetrics holds one snapshot per phase.
type PhaseMetrics struct {
	Langshake   metrics.Snapshot `json:"langshake"`
	Traditional metrics.Snapshot `json:"traditional"`
}

// DomainBenchmarkResult is the outcome of benchmarking one domain.
//
// When the manifest stage fails, only the identity fields, State and Error are
// set. Otherwise Pages holds one entry per manifest module in manifest order.
type DomainBenchmarkResult struct {
	RunID      string    `json:"run_id"`
	DomainRoot string    `json:"domain_root"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	State      State     `json:"state"`

	Pages   []PageResult  `json:"pages,omitempty"`
	Summary Summary       `json:"summary"`
	Metrics *PhaseMetrics `json:"metrics,omitempty"`

	Error *BenchError `json:"error,omitempty"`
}

// Aborted reports whether the benchmark stopped at the manifest stage.
func (r *DomainBenchmarkResult) Aborted() bool {
	return r.Error != nil
}
