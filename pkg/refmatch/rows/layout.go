package rows

import "strconv"

// ColumnNames are the output names of the three canonical columns
type ColumnNames struct {
	Reference  string
	BestMatch  string
	Similarity string
}

// DefaultColumnNames returns reference / best_match / similarity.
func DefaultColumnNames() ColumnNames {
	return ColumnNames{
		Reference:  "reference",
		BestMatch:  "best_match",
		Similarity: "similarity",
	}
}

func (n ColumnNames) withDefaults() ColumnNames {
	d := DefaultColumnNames()
	if n.Reference == "" {
		n.Reference = d.Reference
	}
	if n.BestMatch == "" {
		n.BestMatch = d.BestMatch
	}
	if n.Similarity == "" {
		n.Similarity = d.Similarity
	}
	return n
}

// Suffixes disambiguate a column selected from both files
type Suffixes struct {
	Ref  string
	Cand string
}

// DefaultSuffixes returns _ref / _cand.
func DefaultSuffixes() Suffixes {
	return Suffixes{Ref: "_ref", Cand: "_cand"}
}

// Column maps a source column to its output key
type Column struct {
	Source string
	Key    string
}

// Layout fixes the output columns of a job: the canonical columns, then
// the selected reference columns, then the selected candidate columns.
type Layout struct {
	Names ColumnNames
	Ref   []Column
	Cand  []Column
}

// NewLayout computes output keys once per job. Empty and repeated
// selections are dropped. A name selected on both sides, or clashing with a
// canonical column, gets the side's suffix. A key still taken after that,
// such as name_ref selected next to a suffixed name, is suffixed again until
// it is unique.
func NewLayout(names ColumnNames, refCols, candCols []string, sfx Suffixes) Layout {
	names = names.withDefaults()
	def := DefaultSuffixes()
	if sfx.Ref == "" {
		sfx.Ref = def.Ref
	}
	if sfx.Cand == "" {
		sfx.Cand = def.Cand
	}

	refCols = dedupe(refCols)
	candCols = dedupe(candCols)

	canonical := map[string]bool{
		names.Reference:  true,
		names.BestMatch:  true,
		names.Similarity: true,
	}
	inRef := make(map[string]bool, len(refCols))
	for _, c := range refCols {
		inRef[c] = true
	}
	inCand := make(map[string]bool, len(candCols))
	for _, c := range candCols {
		inCand[c] = true
	}

	used := make(map[string]bool, len(canonical)+len(refCols)+len(candCols))
	for n := range canonical {
		used[n] = true
	}
	claim := func(key, suffix string) string {
		for used[key] {
			key += suffix
		}
		used[key] = true
		return key
	}

	l := Layout{Names: names}
	for _, c := range refCols {
		key := c
		if inCand[c] || canonical[c] {
			key = c + sfx.Ref
		}
		l.Ref = append(l.Ref, Column{Source: c, Key: claim(key, sfx.Ref)})
	}
	for _, c := range candCols {
		key := c
		if inRef[c] || canonical[c] {
			key = c + sfx.Cand
		}
		l.Cand = append(l.Cand, Column{Source: c, Key: claim(key, sfx.Cand)})
	}
	return l
}

// Header returns the output column names in order.
func (l Layout) Header() []string {
	header := []string{l.Names.Reference, l.Names.BestMatch, l.Names.Similarity}
	for _, c := range l.Ref {
		header = append(header, c.Key)
	}
	for _, c := range l.Cand {
		header = append(header, c.Key)
	}
	return header
}

// Values renders a result in Header order. Missing passthrough values and
// the score of an unmatched row render as "".
func (l Layout) Values(r Result) []string {
	score := ""
	if r.Matched {
		score = strconv.FormatFloat(r.Score, 'f', -1, 64)
	}
	values := []string{r.Reference, r.Match, score}
	for _, c := range l.Ref {
		values = append(values, r.Fields[c.Key])
	}
	for _, c := range l.Cand {
		values = append(values, r.Fields[c.Key])
	}
	return values
}

func dedupe(cols []string) []string {
	seen := make(map[string]struct{}, len(cols))
	var out []string
	for _, c := range cols {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
