package integrity

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChecksumField is the record key excluded from checksum computation.
const ChecksumField = "checksum"

// ComputeChecksum returns the lowercase hex SHA-256 digest of the canonical
// form of records. A top-level "checksum" key on any record is ignored, so a
// module that embeds its own digest still hashes to the same value.
func ComputeChecksum(records []map[string]any) (string, error) {
	stripped := make([]any, len(records))
	for i, rec := range records {
		stripped[i] = withoutChecksum(rec)
	}

	canonical, err := Canonicalize(stripped)
	if err != nil {
		return "", err
	}
	return HashHex(canonical), nil
}

// HashHex returns the lowercase hex SHA-256 digest of s.
func HashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// withoutChecksum returns rec without its checksum key. The input is never
// modified; a copy is made only when the key is present.
func withoutChecksum(rec map[string]any) map[string]any {
	if _, ok := rec[ChecksumField]; !ok {
		return rec
	}
	out := make(map[string]any, len(rec)-1)
	for k, v := range rec {
		if k == ChecksumField {
			continue
		}
		out[k] = v
	}
	return out
}
