package match

import (
	"math"

	"github.com/cognicore/refmatch/pkg/refmatch/idf"
	"github.com/cognicore/refmatch/pkg/refmatch/ingest"
	"github.com/cognicore/refmatch/pkg/refmatch/prefilter"
	"github.com/cognicore/refmatch/pkg/refmatch/rank"
)

// DefaultThreshold is the minimum score a match must reach
const DefaultThreshold = 0.5

// Outcome is the best candidate for one reference string.
// Matched is false when no candidate reached the threshold.
type Outcome struct {
	Text    string
	Score   float64
	Matched bool
}

// Pool is a tokenized candidate set. It is immutable once built and safe
// to share between goroutines.
type Pool struct {
	cands []prefilter.Candidate
	first map[string]int
}

// NewPool tokenizes every candidate text once.
func NewPool(texts []string) *Pool {
	p := &Pool{
		cands: make([]prefilter.Candidate, len(texts)),
		first: make(map[string]int, len(texts)),
	}
	for i, text := range texts {
		tokens := ingest.Tokenize(text)
		p.cands[i] = prefilter.Candidate{
			Index:  i,
			Text:   text,
			Tokens: tokens,
			Set:    ingest.NewTokenSet(tokens),
		}
		if _, ok := p.first[text]; !ok {
			p.first[text] = i
		}
	}
	return p
}

// Len returns the number of candidates
func (p *Pool) Len() int {
	return len(p.cands)
}

// Lookup returns the position of the first candidate equal to text.
func (p *Pool) Lookup(text string) (int, bool) {
	i, ok := p.first[text]
	return i, ok
}

// Selector picks the best candidate for a reference string
type Selector struct {
	scorer *rank.Scorer
	limit  int
}

// NewSelector creates a selector that fully scores at most limit
// shortlisted candidates per reference.
func NewSelector(scorer *rank.Scorer, limit int) *Selector {
	if limit <= 0 {
		limit = prefilter.DefaultLimit
	}
	return &Selector{scorer: scorer, limit: limit}
}

// Best returns the highest-scoring candidate for ref when it reaches
// threshold. The first candidate wins ties; the score is rounded to 4 places.
func (s *Selector) Best(ref string, pool *Pool, threshold float64) Outcome {
	if pool == nil || pool.Len() == 0 {
		return Outcome{}
	}
	refTokens := ingest.Tokenize(ref)
	if len(refTokens) == 0 {
		return Outcome{}
	}

	shortlist, counts := s.shortlist(refTokens, pool)

	bestScore := 0.0
	bestIdx := -1
	for i, c := range shortlist {
		if len(c.Tokens) == 0 {
			continue
		}
		if score := s.scorer.Score(refTokens, c.Tokens, counts); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore < threshold {
		return Outcome{}
	}

	return Outcome{
		Text:    shortlist[bestIdx].Text,
		Score:   Round(bestScore, 4),
		Matched: true,
	}
}

// Explain scores ref against one candidate with the statistics the
// selector would use for ref over pool.
func (s *Selector) Explain(ref, cand string, pool *Pool) rank.Breakdown {
	refTokens := ingest.Tokenize(ref)
	candTokens := ingest.Tokenize(cand)

	var counts *idf.Counter
	if pool != nil && pool.Len() > 0 && len(refTokens) > 0 {
		_, counts = s.shortlist(refTokens, pool)
	} else {
		counts = idf.Build([][]string{candTokens})
	}

	return s.scorer.ScoreWithBreakdown(refTokens, candTokens, counts)
}

// shortlist prefilters the pool and counts document frequencies over the
// shortlisted candidates only.
func (s *Selector) shortlist(refTokens []string, pool *Pool) ([]prefilter.Candidate, *idf.Counter) {
	shortlist := prefilter.Shortlist(refTokens, pool.cands, s.limit)
	counts := idf.NewCounter()
	for _, c := range shortlist {
		counts.AddDocument(c.Tokens)
	}
	return shortlist, counts
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
