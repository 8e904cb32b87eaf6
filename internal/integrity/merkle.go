package integrity

// ComputeMerkleRoot folds an ordered list of hex digests into a single root.
//
// An empty list yields "" and a single leaf is returned unchanged. Otherwise
// adjacent leaves are hashed pairwise (hex text concatenated, then SHA-256)
// level by level; a level with an odd count pairs its last leaf with itself.
// Leaf order is significant.
func ComputeMerkleRoot(leaves []string) string {
	switch len(leaves) {
	case 0:
		return ""
	case 1:
		return leaves[0]
	}

	level := make([]string, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, HashHex(left+right))
		}
		level = next
	}

	return level[0]
}
