package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// WellKnownPrefix is the fixed location of the manifest under a domain root.
	WellKnownPrefix = "/.well-known/"

	// DefaultManifestName is the manifest file served under WellKnownPrefix.
	DefaultManifestName = "llm.json"
)

// Manifest is the domain-level descriptor listing modules and the expected
// aggregate Merkle root.
type Manifest struct {
	// Modules are module paths in declaration order.
	Modules []string `json:"modules"`

	// DeclaredMerkleRoot is empty when the manifest declares none.
	DeclaredMerkleRoot string `json:"declared_merkle_root,omitempty"`
}

// manifestWire is the document shape served by a domain.
type manifestWire struct {
	Modules      json.RawMessage `json:"modules"`
	Verification *struct {
		MerkleRoot *string `json:"merkleRoot"`
	} `json:"verification"`
}

// ManifestURL joins a domain root and a manifest name into the well-known URL.
func ManifestURL(domainRoot, name string) string {
	if name == "" {
		name = DefaultManifestName
	}
	return strings.TrimRight(domainRoot, "/") + WellKnownPrefix + strings.TrimLeft(name, "/")
}

// ParseManifest decodes a manifest document. A missing, non-list or
// non-string modules field is ManifestMalformed; an empty list is
// ManifestModulesEmpty.
func ParseManifest(data []byte) (*Manifest, error) {
	var wire manifestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, NewBenchError(ManifestMalformed, "", "manifest is not a JSON object", err)
	}

	raw := strings.TrimSpace(string(wire.Modules))
	if raw == "" || raw == "null" {
		return nil, NewBenchError(ManifestMalformed, "", "manifest has no modules field", nil)
	}
	if !strings.HasPrefix(raw, "[") {
		return nil, NewBenchError(ManifestMalformed, "", "manifest modules field is not a list", nil)
	}

	var entries []any
	if err := json.Unmarshal(wire.Modules, &entries); err != nil {
		return nil, NewBenchError(ManifestMalformed, "", "manifest modules field is not a list", err)
	}
	if len(entries) == 0 {
		return nil, NewBenchError(ManifestModulesEmpty, "", "manifest has empty modules list", nil)
	}

	m := &Manifest{Modules: make([]string, 0, len(entries))}
	for i, e := range entries {
		s, ok := e.(string)
		if !ok {
			return nil, NewBenchError(ManifestMalformed, "",
				fmt.Sprintf("manifest module entry %d is not a string", i), nil)
		}
		m.Modules = append(m.Modules, s)
	}

	if wire.Verification != nil && wire.Verification.MerkleRoot != nil {
		m.DeclaredMerkleRoot = *wire.Verification.MerkleRoot
	}
	return m, nil
}
