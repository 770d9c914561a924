// Package fuzzy provides the string similarity primitives used to match
// playlist tracks against local library entries and remote filenames.
// Scores are integers in [0, 100]; thresholds are chosen by the callers.
//
// Similarity is the indel ratio 2*M/(len(a)+len(b)), M being the length of
// the longest common subsequence: substitutions cost as much as a deletion
// plus an insertion, so strings of different length are not overly penalized.
package fuzzy

import (
	"math"
	"strings"

	"github.com/hbollon/go-edlib"
)

// Ratio returns the case-insensitive similarity of a and b over their whole length.
func Ratio(a, b string) int {
	return ratio([]rune(strings.ToLower(a)), []rune(strings.ToLower(b)))
}

// PartialRatio matches the shorter string against every window of the same
// length in the longer one and returns the best window score.
func PartialRatio(a, b string) int {
	var (
		short = []rune(strings.ToLower(a))
		long  = []rune(strings.ToLower(b))
	)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return ratio(short, long)
	}

	best := 0
	for offset := 0; offset+len(short) <= len(long); offset++ {
		if score := ratio(short, long[offset:offset+len(short)]); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

func ratio(a, b []rune) int {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	common := edlib.LCS(string(a), string(b))
	return int(math.Round(200 * float64(common) / float64(total)))
}
