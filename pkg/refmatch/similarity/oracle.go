package similarity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultTokenThreshold is the similarity two tokens need to count as a match.
const DefaultTokenThreshold = 0.8

// affixScore is returned when one token is a prefix, suffix or substring of the other.
const affixScore = 0.9

// Oracle scores character-level similarity between two tokens.
type Oracle struct {
	cache     Cache
	threshold float64
}

// NewOracle creates an oracle backed by cache. A nil cache disables memoization.
func NewOracle(cache Cache, threshold float64) *Oracle {
	if cache == nil {
		cache = NopCache{}
	}
	if threshold <= 0 {
		threshold = DefaultTokenThreshold
	}
	return &Oracle{cache: cache, threshold: threshold}
}

// Similarity returns a symmetric score in [0, 1]:
//   - empty token -> 0
//   - equal -> 1
//   - prefix, suffix or substring -> 0.9
//   - lengths too far apart to reach the threshold -> 0
//   - otherwise the Ratcliff/Obershelp ratio 2*M/T over runes
func (o *Oracle) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if a > b {
		a, b = b, a
	}

	key := Pair{A: a, B: b}
	if v, ok := o.cache.Get(key); ok {
		return v
	}
	v := o.compute(a, b)
	o.cache.Add(key, v)
	return v
}

func (o *Oracle) compute(a, b string) float64 {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return affixScore
	}

	ra, rb := strings.Split(a, ""), strings.Split(b, "")
	maxLen := max(len(ra), len(rb))
	diff := len(ra) - len(rb)
	if diff < 0 {
		diff = -diff
	}
	if float64(maxLen-diff)/float64(maxLen) < o.threshold {
		return 0
	}

	sim := difflib.NewMatcher(ra, rb).Ratio()
	return min(1, max(0, sim))
}
