package prefilter

import (
	"sort"

	"github.com/cognicore/refmatch/pkg/refmatch/ingest"
)

// DefaultLimit caps how many candidates receive full scoring per reference.
const DefaultLimit = 64

// minPrefixRatio keeps candidates whose first token shares a long prefix
// with the reference even when no whole token overlaps.
const minPrefixRatio = 0.6

// Candidate is a tokenized candidate string and its position in the pool.
type Candidate struct {
	Index  int
	Text   string
	Tokens []string
	Set    ingest.TokenSet
}

type ranked struct {
	cheap float64
	cand  Candidate
}

// Shortlist keeps at most limit candidates that share a token with ref or
// whose first token has a common prefix ratio >= 0.6, best cheap score first.
// Equal scores keep pool order. When nothing qualifies it returns the first
// limit candidates so a non-empty pool never yields an empty shortlist.
func Shortlist(ref []string, cands []Candidate, limit int) []Candidate {
	if limit <= 0 {
		limit = DefaultLimit
	}

	refSet := ingest.NewTokenSet(ref)
	var kept []ranked
	for _, c := range cands {
		set := c.Set
		if set == nil {
			set = ingest.NewTokenSet(c.Tokens)
		}
		overlap := 0.0
		if len(refSet) > 0 {
			overlap = float64(refSet.CommonCount(set)) / float64(len(refSet))
		}
		prefix := FirstTokenPrefixRatio(ref, c.Tokens)

		if overlap > 0 || prefix >= minPrefixRatio {
			kept = append(kept, ranked{cheap: max(overlap, prefix), cand: c})
		}
	}

	if len(kept) == 0 {
		return cands[:min(limit, len(cands))]
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].cheap > kept[j].cheap
	})

	out := make([]Candidate, 0, min(limit, len(kept)))
	for _, r := range kept[:min(limit, len(kept))] {
		out = append(out, r.cand)
	}
	return out
}

// FirstTokenPrefixRatio returns the length of the common prefix of the
// first tokens divided by the longer first token, measured in runes.
func FirstTokenPrefixRatio(src, tgt []string) float64 {
	if len(src) == 0 || len(tgt) == 0 {
		return 0
	}
	a, b := []rune(src[0]), []rune(tgt[0])
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 0
	}
	common := 0
	for common < len(a) && common < len(b) && a[common] == b[common] {
		common++
	}
	return float64(common) / float64(maxLen)
}
