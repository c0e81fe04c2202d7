package rank

import (
	"math"

	"github.com/cognicore/refmatch/pkg/refmatch/idf"
	"github.com/cognicore/refmatch/pkg/refmatch/similarity"
)

// Params tunes the directional scorer
type Params struct {
	TokenThreshold float64 // minimum token similarity to count as a match
	PositionDecay  float64 // weight lost by the last token relative to the first
	NoiseStrength  float64 // how hard unmatched target tokens are penalized
}

// DefaultParams returns the standard scoring parameters.
func DefaultParams() Params {
	return Params{
		TokenThreshold: similarity.DefaultTokenThreshold,
		PositionDecay:  0.3,
		NoiseStrength:  0.7,
	}
}

// Scorer computes coverage-based similarity between token sequences
type Scorer struct {
	params Params
	oracle *similarity.Oracle
	idf    *idf.Calculator
}

// NewScorer creates a new scorer. The oracle and calculator are shared,
// read-only collaborators and may be used from many goroutines.
func NewScorer(p Params, oracle *similarity.Oracle, calc *idf.Calculator) *Scorer {
	return &Scorer{
		params: p,
		oracle: oracle,
		idf:    calc,
	}
}

// TokenMatch records which target token best explained one source token
type TokenMatch struct {
	Source     string
	Target     string // empty when nothing reached the threshold
	Similarity float64
	Alignment  float64
	Weight     float64 // idf * position weight of the source token
}

type directional struct {
	score   float64
	matches []TokenMatch
}

// Directional returns how well source is covered by target, in [0, 1].
//
// coverage = Σ w_i·best_i / Σ w_i, w_i = idf(s_i)·pos(i)
// score    = coverage · (1 - noise·(extra/(matched+extra))·(|s|/(|s|+|t|))²)
func (s *Scorer) Directional(source, target []string, counts *idf.Counter) float64 {
	return s.directional(source, target, counts, false).score
}

func (s *Scorer) directional(source, target []string, counts *idf.Counter, explain bool) directional {
	if len(source) == 0 || len(target) == 0 {
		return directional{}
	}

	srcLen, tgtLen := len(source), len(target)
	alignLen := max(srcLen, tgtLen)

	weights := make([]float64, srcLen)
	totalWeight := 0.0
	for i, tok := range source {
		weights[i] = s.idf.IDF(counts, tok) * s.positionWeight(i, srcLen)
		totalWeight += weights[i]
	}
	if totalWeight <= 0 {
		return directional{}
	}

	var matches []TokenMatch
	if explain {
		matches = make([]TokenMatch, srcLen)
	}

	used := make([]bool, tgtLen)
	matchedWeight := 0.0

	for i, srcTok := range source {
		bestIdx := -1
		bestContrib := 0.0
		bestSim, bestAlign := 0.0, 0.0

		for j, tgtTok := range target {
			sim := s.oracle.Similarity(srcTok, tgtTok)
			if sim < s.params.TokenThreshold {
				continue
			}
			align := Alignment(i, j, alignLen)
			if contrib := sim * align; contrib > bestContrib {
				bestContrib = contrib
				bestIdx = j
				bestSim, bestAlign = sim, align
			}
		}

		if bestIdx >= 0 {
			used[bestIdx] = true
			matchedWeight += weights[i] * bestContrib
		}
		if explain {
			m := TokenMatch{Source: srcTok, Weight: weights[i]}
			if bestIdx >= 0 {
				m.Target = target[bestIdx]
				m.Similarity = bestSim
				m.Alignment = bestAlign
			}
			matches[i] = m
		}
	}

	coverage := matchedWeight / totalWeight
	penalty := s.noisePenalty(target, used, counts, matchedWeight, srcLen)

	return directional{
		score:   clamp01(coverage * penalty),
		matches: matches,
	}
}

// noisePenalty shrinks the score for target tokens no source token picked.
// The effect fades quadratically as the source gets shorter than the target.
func (s *Scorer) noisePenalty(target []string, used []bool, counts *idf.Counter, matchedWeight float64, srcLen int) float64 {
	if s.params.NoiseStrength <= 0 || matchedWeight <= 0 {
		return 1.0
	}

	tgtLen := len(target)
	extra := 0.0
	for j, tok := range target {
		if used[j] {
			continue
		}
		extra += s.idf.IDF(counts, tok) * s.positionWeight(j, tgtLen)
	}
	if extra <= 0 {
		return 1.0
	}

	noiseRatio := extra / (matchedWeight + extra)
	lengthRatio := float64(srcLen) / float64(srcLen+tgtLen)
	effective := noiseRatio * lengthRatio * lengthRatio

	return 1.0 - s.params.NoiseStrength*effective
}

// positionWeight decays linearly from 1 at the first token to 1-decay at the last.
func (s *Scorer) positionWeight(index, length int) float64 {
	if length <= 1 || s.params.PositionDecay <= 0 {
		return 1.0
	}
	rel := float64(index) / float64(length-1)
	return 1.0 - s.params.PositionDecay*rel
}

// Alignment rewards tokens found at similar positions. It stays within
// [0.5, 1] so misordered tokens still contribute.
func Alignment(i, j, maxLen int) float64 {
	if maxLen <= 0 {
		return 1.0
	}
	base := math.Max(0, 1-math.Abs(float64(i-j))/float64(maxLen))
	return 0.5 + 0.5*base
}

// Breakdown explains a symmetric score
type Breakdown struct {
	Forward  float64 // reference -> candidate coverage
	Backward float64 // candidate -> reference coverage
	Alpha    float64 // weight of the better-covered direction
	Total    float64
	Tokens   []TokenMatch // best candidate token per reference token
}

// Score returns the symmetric, length-aware similarity of ref and cand
//
// score = α·max(fwd, bwd) + (1-α)·min(fwd, bwd), α = 0.85 + 0.15·min(len)/max(len)
func (s *Scorer) Score(ref, cand []string, counts *idf.Counter) float64 {
	return s.combine(ref, cand, counts, false).Total
}

// ScoreWithBreakdown calculates the score with per-direction and per-token detail
func (s *Scorer) ScoreWithBreakdown(ref, cand []string, counts *idf.Counter) Breakdown {
	return s.combine(ref, cand, counts, true)
}

func (s *Scorer) combine(ref, cand []string, counts *idf.Counter, explain bool) Breakdown {
	if len(ref) == 0 || len(cand) == 0 {
		return Breakdown{}
	}

	fwd := s.directional(ref, cand, counts, explain)
	bwd := s.directional(cand, ref, counts, false)

	minLen := min(len(ref), len(cand))
	maxLen := max(len(ref), len(cand))
	lengthRatio := float64(minLen) / float64(maxLen)

	short := math.Max(fwd.score, bwd.score)
	long := math.Min(fwd.score, bwd.score)
	alpha := 0.85 + 0.15*lengthRatio

	return Breakdown{
		Forward:  fwd.score,
		Backward: bwd.score,
		Alpha:    alpha,
		Total:    clamp01(alpha*short + (1-alpha)*long),
		Tokens:   fwd.matches,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
