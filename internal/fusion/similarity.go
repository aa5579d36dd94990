package fusion

import "strings"

// similarityPrefixLen caps the text length considered by the fuzzy
// comparison. Snippets beyond this are near-certain to have diverged
// or matched within the prefix already, and the cap keeps the
// quadratic dedup pass cheap.
const similarityPrefixLen = 512

// SimilarityRatio returns a case-insensitive sequence-similarity ratio
// in [0,1] between two texts: 2*M/T, where M is the total length of
// the matching blocks and T the combined length. Empty-vs-empty is 0,
// not 1 — two candidates with no content cannot be judged duplicates.
func SimilarityRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if len(a) > similarityPrefixLen {
		a = a[:similarityPrefixLen]
	}
	if len(b) > similarityPrefixLen {
		b = b[:similarityPrefixLen]
	}
	if a == b {
		return 1
	}

	matched := matchingBlocksLen([]byte(a), []byte(b))
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// matchingBlocksLen sums the lengths of the matching blocks found by
// recursively locating the longest common substring and matching the
// pieces left of it and right of it against each other.
func matchingBlocksLen(a, b []byte) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}

	total := size
	total += matchingBlocksLen(a[:ai], b[:bi])
	total += matchingBlocksLen(a[ai+size:], b[bi+size:])
	return total
}

// longestMatch finds the longest common substring of a and b, returning
// its start offsets and length. Uses the rolling j2len technique so
// memory stays O(len(b)).
func longestMatch(a, b []byte) (bestA, bestB, bestSize int) {
	j2len := make(map[int]int)

	for i := 0; i < len(a); i++ {
		newJ2len := make(map[int]int)
		for j := 0; j < len(b); j++ {
			if a[i] != b[j] {
				continue
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestSize {
				bestA = i - k + 1
				bestB = j - k + 1
				bestSize = k
			}
		}
		j2len = newJ2len
	}
	return bestA, bestB, bestSize
}
