package compare

import (
	"slices"

	"github.com/langshake/shake-proof/internal/integrity"
	"github.com/langshake/shake-proof/internal/model"
)

// Compare correlates the two phases slot by slot and aggregates the result.
// modules and pages must be index-aligned; a shorter pages slice is treated
// as missing reference data for the remaining slots.
func Compare(modules []model.Module, pages []model.PageExtraction, declaredRoot string) ([]model.PageResult, model.Summary) {
	results := make([]model.PageResult, len(modules))
	for i := range modules {
		var page *model.PageExtraction
		if i < len(pages) {
			page = &pages[i]
		}
		results[i] = comparePage(&modules[i], page)
	}
	return results, Summarize(results, declaredRoot)
}

func comparePage(mod *model.Module, page *model.PageExtraction) model.PageResult {
	res := model.PageResult{
		Index:         mod.Index,
		URL:           mod.CanonicalSubjectURL,
		ModulePath:    mod.Path,
		ChecksumValid: mod.ChecksumValid,
		Warning:       mod.Warning,
	}

	lsOK := mod.OK()
	if lsOK {
		res.LangshakeRecords = mod.Records
		res.LangshakeChecksum = mod.ComputedChecksum
	} else {
		res.Error = mod.Error
	}
	if res.URL == "" {
		res.URL = mod.URL
	}

	trOK := page != nil && page.OK()
	if trOK {
		res.TraditionalRecords = page.Records
		sum, err := integrity.ComputeChecksum(page.Records)
		if err != nil {
			trOK = false
			if res.Error == nil {
				res.Error = model.NewBenchError(model.PageExtractionError, page.URL, "", err)
			}
		} else {
			res.TraditionalChecksum = sum
		}
	} else if res.Error == nil && page != nil && page.Error != nil {
		res.Error = page.Error
	}

	if !lsOK || !trOK {
		return res
	}

	// Equal checksums imply identical canonical forms.
	res.SchemasMatch = res.LangshakeChecksum == res.TraditionalChecksum
	if !res.SchemasMatch {
		res.Diff = ShallowDiff(res.LangshakeRecords, res.TraditionalRecords)
	}
	return res
}

// ShallowDiff lists the top-level keys of each side's first record that the
// other side's first record lacks. It is a diagnostic hint only: nested
// values, later records and value differences are not inspected.
func ShallowDiff(langshake, traditional []model.Record) *model.Diff {
	var ls, tr model.Record
	if len(langshake) > 0 {
		ls = langshake[0]
	}
	if len(traditional) > 0 {
		tr = traditional[0]
	}
	return &model.Diff{
		OnlyInLangshake:   missingKeys(ls, tr),
		OnlyInTraditional: missingKeys(tr, ls),
	}
}

func missingKeys(from, other model.Record) []string {
	var keys []string
	for k := range from {
		if _, ok := other[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Summarize aggregates page results. Each Merkle root is built over the
// checksums present on its side, in page order. The validity flags require a
// declared root; the roots only match when both are non-empty.
func Summarize(pages []model.PageResult, declaredRoot string) model.Summary {
	s := model.Summary{
		TotalPages:         len(pages),
		DeclaredMerkleRoot: declaredRoot,
	}

	lsLeaves := make([]string, 0, len(pages))
	trLeaves := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.LangshakeChecksum != "" {
			lsLeaves = append(lsLeaves, p.LangshakeChecksum)
		}
		if p.TraditionalChecksum != "" {
			trLeaves = append(trLeaves, p.TraditionalChecksum)
		}
		switch {
		case p.SchemasMatch:
			s.MatchedPages++
		case p.Error != nil:
			s.FailedPages++
		}
	}

	s.LangshakeMerkleRoot = integrity.ComputeMerkleRoot(lsLeaves)
	s.TraditionalMerkleRoot = integrity.ComputeMerkleRoot(trLeaves)

	s.MerkleRootLangshakeValid = declaredRoot != "" && s.LangshakeMerkleRoot == declaredRoot
	s.MerkleRootTraditionalValid = declaredRoot != "" && s.TraditionalMerkleRoot == declaredRoot
	s.MerkleRootsMatch = s.LangshakeMerkleRoot != "" && s.LangshakeMerkleRoot == s.TraditionalMerkleRoot
	s.AllMatch = s.TotalPages > 0 && s.MatchedPages == s.TotalPages
	return s
}
