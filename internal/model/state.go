package model

// State is a step of the domain benchmark state machine.
//
//	INIT -> FETCH_MANIFEST -> (ABORTED | CRAWL_REFERENCE) -> CRAWL_MODULES_DONE
//	     -> CRAWL_TRADITIONAL -> COMPARE -> DONE
type State string

const (
	StateInit             State = "INIT"
	StateFetchManifest    State = "FETCH_MANIFEST"
	StateAborted          State = "ABORTED"
	StateCrawlReference   State = "CRAWL_REFERENCE"
	StateCrawlModulesDone State = "CRAWL_MODULES_DONE"
	StateCrawlTraditional State = "CRAWL_TRADITIONAL"
	StateCompare          State = "COMPARE"
	StateDone             State = "DONE"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateAborted || s == StateDone
}

// Phase names one bounded-concurrency fetch pass.
type Phase string

const (
	// PhaseLangshake fetches the manifest and its modules.
	PhaseLangshake Phase = "langshake"

	// PhaseTraditional extracts structured data from the pages themselves.
	PhaseTraditional Phase = "traditional"
)

// String returns the phase name.
func (p Phase) String() string {
	return string(p)
}
