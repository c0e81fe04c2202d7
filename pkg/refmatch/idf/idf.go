package idf

import "math"

// StopChecker reports whether a token is a low-information stopword.
type StopChecker interface {
	IsStop(token string) bool
}

// Calculator derives IDF weights from a Counter
type Calculator struct {
	stops      StopChecker
	stopFactor float64 // multiplier applied to stopword IDF
	stopFloor  float64 // minimum stopword IDF
}

// NewCalculator creates an IDF calculator. stops may be nil.
func NewCalculator(stops StopChecker) *Calculator {
	return &Calculator{
		stops:      stops,
		stopFactor: 0.1,
		stopFloor:  0.01,
	}
}

// IDF returns the weight of token t
//
// idf(t) = log(1 + N / df(t))
//
// Where:
//   - N = number of non-empty documents in c
//   - df(t) = documents containing t (1 when unseen)
//
// Stopwords get max(idf*0.1, 0.01). With no documents every token weighs 1.
func (calc *Calculator) IDF(c *Counter, t string) float64 {
	if c == nil || c.N <= 0 {
		return 1.0
	}

	df := c.DF[t]
	if df <= 0 {
		df = 1
	}
	base := math.Log(1.0 + float64(c.N)/float64(df))

	if calc.stops != nil && calc.stops.IsStop(t) {
		return math.Max(base*calc.stopFactor, calc.stopFloor)
	}

	return base
}
