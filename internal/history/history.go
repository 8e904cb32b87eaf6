package history

import (
	"slices"
	"strings"
	"time"

	"github.com/langshake/shake-proof/internal/model"
)

// Direction summarizes how the match rate moved between two runs.
type Direction string

const (
	DirectionImproved  Direction = "improved"
	DirectionWorsened  Direction = "worsened"
	DirectionUnchanged Direction = "unchanged"
)

// ChangeKind names what changed on a page between two runs.
type ChangeKind string

const (
	// ChangeAdded is a page only present in the current run.
	ChangeAdded ChangeKind = "added"

	// ChangeRemoved is a page only present in the previous run.
	ChangeRemoved ChangeKind = "removed"

	// ChangeChecksumDrift is a page whose LangShake checksum changed.
	ChangeChecksumDrift ChangeKind = "checksum_drift"

	// ChangeMatch is a page whose match outcome flipped.
	ChangeMatch ChangeKind = "match_changed"
)

// RunMetadata is the part of a stored run shown side by side.
type RunMetadata struct {
	RunID                 string        `json:"run_id"`
	StartedAt             time.Time     `json:"started_at"`
	TotalPages            int           `json:"total_pages"`
	MatchedPages          int           `json:"matched_pages"`
	FailedPages           int           `json:"failed_pages"`
	AllMatch              bool          `json:"all_match"`
	Aborted               bool          `json:"aborted"`
	LangshakeMerkleRoot   string        `json:"langshake_merkle_root,omitempty"`
	TraditionalMerkleRoot string        `json:"traditional_merkle_root,omitempty"`
	LangshakeDuration     time.Duration `json:"langshake_duration_ns"`
	TraditionalDuration   time.Duration `json:"traditional_duration_ns"`
	LangshakeRequests     int           `json:"langshake_requests"`
	TraditionalRequests   int           `json:"traditional_requests"`
}

// PageChange is one page that differs between the runs.
type PageChange struct {
	URL              string       `json:"url"`
	Kinds            []ChangeKind `json:"kinds"`
	PreviousChecksum string       `json:"previous_checksum,omitempty"`
	CurrentChecksum  string       `json:"current_checksum,omitempty"`
	PreviousMatch    bool         `json:"previous_match"`
	CurrentMatch     bool         `json:"current_match"`
}

// Deltas are current minus previous.
type Deltas struct {
	MatchedPages        int           `json:"matched_pages"`
	FailedPages         int           `json:"failed_pages"`
	LangshakeDuration   time.Duration `json:"langshake_duration_ns"`
	TraditionalDuration time.Duration `json:"traditional_duration_ns"`
	LangshakeRequests   int           `json:"langshake_requests"`
	TraditionalRequests int           `json:"traditional_requests"`
}

// Comparison is the difference between two runs of one domain.
type Comparison struct {
	Domain   string      `json:"domain"`
	Previous RunMetadata `json:"previous"`
	Current  RunMetadata `json:"current"`

	Direction Direction `json:"direction"`
	Deltas    Deltas    `json:"deltas"`

	LangshakeRootChanged   bool `json:"langshake_root_changed"`
	TraditionalRootChanged bool `json:"traditional_root_changed"`

	Changes        []PageChange `json:"changes,omitempty"`
	UnchangedPages int          `json:"unchanged_pages"`
}

// Metadata extracts the side-by-side fields of a run.
func Metadata(r *model.DomainBenchmarkResult) RunMetadata {
	m := RunMetadata{
		RunID:                 r.RunID,
		StartedAt:             r.StartedAt,
		TotalPages:            r.Summary.TotalPages,
		MatchedPages:          r.Summary.MatchedPages,
		FailedPages:           r.Summary.FailedPages,
		AllMatch:              r.Summary.AllMatch,
		Aborted:               r.Aborted(),
		LangshakeMerkleRoot:   r.Summary.LangshakeMerkleRoot,
		TraditionalMerkleRoot: r.Summary.TraditionalMerkleRoot,
	}
	if r.Metrics != nil {
		m.LangshakeDuration = r.Metrics.Langshake.Duration
		m.TraditionalDuration = r.Metrics.Traditional.Duration
		m.LangshakeRequests = r.Metrics.Langshake.Requests.Count
		m.TraditionalRequests = r.Metrics.Traditional.Requests.Count
	}
	return m
}

// Compare diffs two runs of the same domain. Pages are keyed by URL, or by
// module path when a page has no URL, so reordering the manifest is not a
// change. Changes are sorted by key.
func Compare(previous, current *model.DomainBenchmarkResult) *Comparison {
	c := &Comparison{
		Domain:   current.DomainRoot,
		Previous: Metadata(previous),
		Current:  Metadata(current),
	}

	c.Deltas = Deltas{
		MatchedPages:        c.Current.MatchedPages - c.Previous.MatchedPages,
		FailedPages:         c.Current.FailedPages - c.Previous.FailedPages,
		LangshakeDuration:   c.Current.LangshakeDuration - c.Previous.LangshakeDuration,
		TraditionalDuration: c.Current.TraditionalDuration - c.Previous.TraditionalDuration,
		LangshakeRequests:   c.Current.LangshakeRequests - c.Previous.LangshakeRequests,
		TraditionalRequests: c.Current.TraditionalRequests - c.Previous.TraditionalRequests,
	}
	c.LangshakeRootChanged = c.Previous.LangshakeMerkleRoot != c.Current.LangshakeMerkleRoot
	c.TraditionalRootChanged = c.Previous.TraditionalMerkleRoot != c.Current.TraditionalMerkleRoot
	c.Direction = direction(c.Previous, c.Current)

	prev := indexPages(previous.Pages)
	curr := indexPages(current.Pages)

	for key, cp := range curr {
		pp, ok := prev[key]
		if !ok {
			c.Changes = append(c.Changes, PageChange{
				URL:             key,
				Kinds:           []ChangeKind{ChangeAdded},
				CurrentChecksum: cp.LangshakeChecksum,
				CurrentMatch:    cp.SchemasMatch,
			})
			continue
		}

		var kinds []ChangeKind
		if pp.LangshakeChecksum != cp.LangshakeChecksum {
			kinds = append(kinds, ChangeChecksumDrift)
		}
		if pp.SchemasMatch != cp.SchemasMatch {
			kinds = append(kinds, ChangeMatch)
		}
		if len(kinds) == 0 {
			c.UnchangedPages++
			continue
		}
		c.Changes = append(c.Changes, PageChange{
			URL:              key,
			Kinds:            kinds,
			PreviousChecksum: pp.LangshakeChecksum,
			CurrentChecksum:  cp.LangshakeChecksum,
			PreviousMatch:    pp.SchemasMatch,
			CurrentMatch:     cp.SchemasMatch,
		})
	}
	for key, pp := range prev {
		if _, ok := curr[key]; !ok {
			c.Changes = append(c.Changes, PageChange{
				URL:              key,
				Kinds:            []ChangeKind{ChangeRemoved},
				PreviousChecksum: pp.LangshakeChecksum,
				PreviousMatch:    pp.SchemasMatch,
			})
		}
	}

	slices.SortFunc(c.Changes, func(a, b PageChange) int {
		return strings.Compare(a.URL, b.URL)
	})
	return c
}

func indexPages(pages []model.PageResult) map[string]*model.PageResult {
	m := make(map[string]*model.PageResult, len(pages))
	for i := range pages {
		p := &pages[i]
		key := p.URL
		if key == "" {
			key = p.ModulePath
		}
		m[key] = p
	}
	return m
}

// direction compares match rates; an aborted run always ranks lowest.
func direction(prev, curr RunMetadata) Direction {
	ps, cs := matchRate(prev), matchRate(curr)
	switch {
	case cs > ps:
		return DirectionImproved
	case cs < ps:
		return DirectionWorsened
	default:
		return DirectionUnchanged
	}
}

func matchRate(m RunMetadata) float64 {
	if m.Aborted {
		return -1
	}
	if m.TotalPages == 0 {
		return 0
	}
	return float64(m.MatchedPages) / float64(m.TotalPages)
}
