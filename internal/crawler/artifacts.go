package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/langshake/shake-proof/internal/model"
)

// ArtifactStore persists the records each phase obtained, one JSON file per
// slot under <dir>/<phase>/<index>.json.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore returns a store rooted at dir. The directory is created
// lazily on the first write.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Dir returns the root directory.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Write stores records for one slot and returns the number of bytes written.
func (s *ArtifactStore) Write(phase model.Phase, index int, records []model.Record) (int64, error) {
	dir := filepath.Join(s.dir, phase.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode artifact: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%03d.json", index))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return 0, fmt.Errorf("write artifact: %w", err)
	}
	return int64(len(data)), nil
}
