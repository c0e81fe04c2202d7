package stoplist

import (
	"sort"
	"strings"
)

// DefaultTerms are low-information tokens of company names: legal-form
// suffixes and articles. They keep a small non-zero IDF weight.
var DefaultTerms = []string{
	"ltd",
	"llc",
	"ooo",
	"zao",
	"ao",
	"company",
	"co",
	"inc",
	"corp",
	"corporation",
	"the",
	"and",
}

// Manager holds the stopword set consulted by IDF weighting.
// It is read concurrently by scoring workers; mutate it only between runs.
type Manager struct {
	stops map[string]Reason
}

// Reason explains why a token is a stopword
type Reason struct {
	Manual    bool    // configured by the user or defaults
	HighDF    bool    // suggested from document frequency
	DFPercent float64 // share of candidate strings containing the token
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]Reason, len(initialStops))
	for _, s := range initialStops {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		stops[s] = Reason{Manual: true}
	}
	return &Manager{stops: stops}
}

// Default returns a manager seeded with DefaultTerms.
func Default() *Manager {
	return NewManager(DefaultTerms)
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	if m == nil {
		return false
	}
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist with a reason
func (m *Manager) Add(token string, reason Reason) {
	m.stops[strings.ToLower(token)] = reason
}

// All returns all stopwords, sorted
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Stats holds document-frequency statistics for candidate evaluation
type Stats struct {
	Token     string
	DF        int64
	DFPercent float64
}

// StatsFromDF converts a document-frequency table over n documents into Stats.
func StatsFromDF(df map[string]int64, n int64) []Stats {
	if n <= 0 {
		return nil
	}
	stats := make([]Stats, 0, len(df))
	for tok, count := range df {
		stats = append(stats, Stats{
			Token:     tok,
			DF:        count,
			DFPercent: float64(count) / float64(n) * 100,
		})
	}
	return stats
}

// Candidate represents a candidate stopword
type Candidate struct {
	Token  string
	Reason Reason
}

// Thresholds defines criteria for stopword identification
type Thresholds struct {
	DFPercent float64 // e.g., 20% - appears in a fifth of the candidate strings
	MinDF     int64   // ignore tokens seen in fewer documents
	MinLength int     // ignore tokens shorter than this (in runes)
}

// DefaultThresholds returns sensible default thresholds for name columns.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DFPercent: 20.0,
		MinDF:     3,
		MinLength: 2,
	}
}

// SuggestCandidates suggests tokens that should be stopwords: tokens that
// occur in a large share of the candidate strings and are not stopwords yet.
// Results are ordered by DF share, highest first, then alphabetically.
func (m *Manager) SuggestCandidates(stats []Stats, thresholds Thresholds) []Candidate {
	var candidates []Candidate

	for _, s := range stats {
		if m.IsStop(s.Token) {
			continue // already a stopword
		}
		if s.DF < thresholds.MinDF || len([]rune(s.Token)) < thresholds.MinLength {
			continue
		}
		if s.DFPercent <= thresholds.DFPercent {
			continue
		}
		candidates = append(candidates, Candidate{
			Token:  s.Token,
			Reason: Reason{HighDF: true, DFPercent: s.DFPercent},
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Reason.DFPercent != candidates[j].Reason.DFPercent {
			return candidates[i].Reason.DFPercent > candidates[j].Reason.DFPercent
		}
		return candidates[i].Token < candidates[j].Token
	})

	return candidates
}
