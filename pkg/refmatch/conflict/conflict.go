// Package conflict enforces that a candidate is claimed by at most one
// reference row.
package conflict

import (
	"strings"

	"github.com/cognicore/refmatch/pkg/refmatch/rows"
)

type holder struct {
	score float64
	index int
}

// Resolve scans results once and keeps, for every matched candidate text,
// only the row with the highest score. Ties keep the earlier row. Losing rows
// lose their match, score and candidate-side columns; reference-side columns
// are untouched. Returns the number of cleared rows.
//
// This is a greedy pass, not an optimal assignment.
func Resolve(results []rows.Result, layout rows.Layout) int {
	holders := make(map[string]holder)
	var losers []int

	for i, r := range results {
		key := strings.TrimSpace(r.Match)
		if key == "" {
			continue
		}
		h, ok := holders[key]
		if !ok {
			holders[key] = holder{score: r.Score, index: i}
			continue
		}
		if r.Score > h.score {
			losers = append(losers, h.index)
			holders[key] = holder{score: r.Score, index: i}
		} else {
			losers = append(losers, i)
		}
	}

	for _, i := range losers {
		release(&results[i], layout)
	}
	return len(losers)
}

func release(r *rows.Result, layout rows.Layout) {
	r.Match = ""
	r.Score = 0
	r.Matched = false
	for _, c := range layout.Cand {
		if _, ok := r.Fields[c.Key]; ok {
			r.Fields[c.Key] = ""
		}
	}
}
