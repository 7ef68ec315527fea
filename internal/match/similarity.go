package match

import "unicode/utf8"

// Similarity returns a normalized edit-distance similarity of two strings in
// [0, 1]: 1 - levenshtein(a, b) / max(len(a), len(b)). Case sensitivity is
// left to the caller. The comparison is symmetric: swapping the arguments
// never changes the result. An empty string is only ever similar to another
// empty string.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}

	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

// Similar reports whether the similarity of a and b meets the threshold.
func Similar(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// levenshtein computes the edit distance between two strings, using two rows
// instead of a full matrix.
func levenshtein(a, b string) int {
	ar := []rune(a)
	br := []rune(b)

	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	// Keep the inner loop on the shorter string.
	if len(ar) > len(br) {
		ar, br = br, ar
	}

	prev := make([]int, len(ar)+1)
	curr := make([]int, len(ar)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(br); j++ {
		curr[0] = j
		for i := 1; i <= len(ar); i++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}

			// Minimum of deletion, insertion, substitution.
			d := prev[i] + 1
			if ins := curr[i-1] + 1; ins < d {
				d = ins
			}
			if sub := prev[i-1] + cost; sub < d {
				d = sub
			}
			curr[i] = d
		}
		prev, curr = curr, prev
	}

	return prev[len(ar)]
}
