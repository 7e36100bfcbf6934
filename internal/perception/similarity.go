// File: internal/perception/similarity.go
package perception

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// newDiffer returns a diff engine without a deadline so results never depend
// on machine speed.
func newDiffer() *diffmatchpatch.DiffMatchPatch {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return dmp
}

var defaultDiffer = newDiffer()

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) measured in
// runes, so the result is in [0, 1]. Two empty strings are identical.
func Similarity(a, b string) float64 {
	return similarity(defaultDiffer, a, b)
}

func similarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(dmp, a, b))/float64(longest)
}

// levenshtein returns the exact edit distance in runes. The shared prefix and
// suffix are trimmed first; they never contribute edits.
func levenshtein(dmp *diffmatchpatch.DiffMatchPatch, a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prefix := dmp.DiffCommonPrefix(a, b)
	ra, rb = ra[prefix:], rb[prefix:]
	suffix := dmp.DiffCommonSuffix(string(ra), string(rb))
	ra, rb = ra[:len(ra)-suffix], rb[:len(rb)-suffix]

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
