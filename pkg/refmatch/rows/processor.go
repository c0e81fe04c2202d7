package rows

import (
	"github.com/cognicore/refmatch/pkg/refmatch/match"
)

// Row is one record of a reference or candidate file, keyed by column name.
type Row = map[string]string

// Result is one output record
type Result struct {
	Reference string
	Match     string
	Score     float64
	Matched   bool
	Fields    map[string]string // passthrough values keyed by Layout output key
}

// Processor builds result records for reference rows against a fixed
// candidate set. It holds no mutable state and may be shared by workers.
type Processor struct {
	selector  *match.Selector
	pool      *match.Pool
	candRows  []Row
	refField  string
	threshold float64
	layout    Layout
}

// NewProcessor tokenizes the candField of every candidate row once.
func NewProcessor(sel *match.Selector, candRows []Row, refField, candField string, threshold float64, layout Layout) *Processor {
	texts := make([]string, len(candRows))
	for i, r := range candRows {
		texts[i] = r[candField]
	}
	return &Processor{
		selector:  sel,
		pool:      match.NewPool(texts),
		candRows:  candRows,
		refField:  refField,
		threshold: threshold,
		layout:    layout,
	}
}

// Process matches one reference row. Selected reference columns are copied
// when present; selected candidate columns come from the first candidate
// row whose match field equals the matched text.
func (p *Processor) Process(ref Row) Result {
	refText := ref[p.refField]
	out := p.selector.Best(refText, p.pool, p.threshold)

	res := Result{
		Reference: refText,
		Match:     out.Text,
		Score:     out.Score,
		Matched:   out.Matched,
		Fields:    make(map[string]string, len(p.layout.Ref)+len(p.layout.Cand)),
	}

	for _, c := range p.layout.Ref {
		if v, ok := ref[c.Source]; ok {
			res.Fields[c.Key] = v
		}
	}

	if !out.Matched {
		return res
	}
	if i, ok := p.pool.Lookup(out.Text); ok {
		cand := p.candRows[i]
		for _, c := range p.layout.Cand {
			if v, ok := cand[c.Source]; ok {
				res.Fields[c.Key] = v
			}
		}
	}

	return res
}
