package rows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/refmatch/pkg/refmatch/idf"
	"github.com/cognicore/refmatch/pkg/refmatch/match"
	"github.com/cognicore/refmatch/pkg/refmatch/prefilter"
	"github.com/cognicore/refmatch/pkg/refmatch/rank"
	"github.com/cognicore/refmatch/pkg/refmatch/similarity"
	"github.com/cognicore/refmatch/pkg/refmatch/stoplist"
)

func newSelector() *match.Selector {
	oracle := similarity.NewOracle(similarity.NewLRUCache(256), similarity.DefaultTokenThreshold)
	scorer := rank.NewScorer(rank.DefaultParams(), oracle, idf.NewCalculator(stoplist.Default()))
	return match.NewSelector(scorer, prefilter.DefaultLimit)
}

var candidates = []Row{
	{"name": "Alpha Corporation", "id": "C1", "city": "Berlin"},
	{"name": "Beta LLC", "id": "C2", "city": "Paris"},
	{"name": "Alpha Corporation", "id": "C3", "city": "Rome"},
}

func TestLayoutDefaults(t *testing.T) {
	l := NewLayout(ColumnNames{}, nil, nil, Suffixes{})
	assert.Equal(t, []string{"reference", "best_match", "similarity"}, l.Header())
}

func TestLayoutCollisions(t *testing.T) {
	l := NewLayout(
		ColumnNames{Reference: "ref", BestMatch: "match", Similarity: "score"},
		[]string{"id", "region", "id", "", "score"},
		[]string{"id", "city"},
		DefaultSuffixes(),
	)

	assert.Equal(t, []string{"ref", "match", "score", "id_ref", "region", "score_ref", "id_cand", "city"}, l.Header())
	assert.Equal(t, []Column{{"id", "id_ref"}, {"region", "region"}, {"score", "score_ref"}}, l.Ref)
	assert.Equal(t, []Column{{"id", "id_cand"}, {"city", "city"}}, l.Cand)
}

func TestLayoutSuffixedKeysStayUnique(t *testing.T) {
	tests := []struct {
		name     string
		refCols  []string
		candCols []string
		want     []string
	}{
		{
			name:     "suffixed ref meets literal ref",
			refCols:  []string{"name", "name_ref"},
			candCols: []string{"name"},
			want:     []string{"reference", "best_match", "similarity", "name_ref", "name_ref_ref", "name_cand"},
		},
		{
			name:     "literal ref first",
			refCols:  []string{"name_ref", "name"},
			candCols: []string{"name"},
			want:     []string{"reference", "best_match", "similarity", "name_ref", "name_ref_ref", "name_cand"},
		},
		{
			name:     "cand suffix meets literal cand",
			refCols:  []string{"id"},
			candCols: []string{"id_cand", "id"},
			want:     []string{"reference", "best_match", "similarity", "id_ref", "id_cand", "id_cand_cand"},
		},
		{
			name:     "ref literal meets cand suffix",
			refCols:  []string{"id_cand", "id"},
			candCols: []string{"id"},
			want:     []string{"reference", "best_match", "similarity", "id_cand", "id_ref", "id_cand_cand"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLayout(ColumnNames{}, tt.refCols, tt.candCols, DefaultSuffixes())
			header := l.Header()
			assert.Equal(t, tt.want, header)

			seen := make(map[string]bool, len(header))
			for _, h := range header {
				assert.False(t, seen[h], "duplicate output column %q", h)
				seen[h] = true
			}
		})
	}
}

func TestLayoutCustomSuffixes(t *testing.T) {
	l := NewLayout(ColumnNames{}, []string{"id"}, []string{"id"}, Suffixes{Ref: " (ref)", Cand: " (cand)"})
	assert.Equal(t, []string{"reference", "best_match", "similarity", "id (ref)", "id (cand)"}, l.Header())
}

func TestLayoutValues(t *testing.T) {
	l := NewLayout(ColumnNames{}, []string{"id"}, []string{"city"}, DefaultSuffixes())

	matched := Result{Reference: "a", Match: "b", Score: 0.9935, Matched: true, Fields: map[string]string{"id": "1", "city": "Rome"}}
	assert.Equal(t, []string{"a", "b", "0.9935", "1", "Rome"}, l.Values(matched))

	unmatched := Result{Reference: "a", Fields: map[string]string{"id": "1"}}
	assert.Equal(t, []string{"a", "", "", "1", ""}, l.Values(unmatched))
}

func TestProcessMatched(t *testing.T) {
	layout := NewLayout(ColumnNames{}, []string{"id", "note"}, []string{"id", "city"}, DefaultSuffixes())
	p := NewProcessor(newSelector(), candidates, "company", "name", 0.5, layout)

	res := p.Process(Row{"company": "Alpha Corp", "id": "R1", "note": "x"})

	require.True(t, res.Matched)
	assert.Equal(t, "Alpha Corp", res.Reference)
	assert.Equal(t, "Alpha Corporation", res.Match)
	assert.Equal(t, 0.9935, res.Score)
	// first candidate row with the matched text wins
	assert.Equal(t, map[string]string{"id_ref": "R1", "note": "x", "id_cand": "C1", "city": "Berlin"}, res.Fields)
}

func TestProcessUnmatched(t *testing.T) {
	layout := NewLayout(ColumnNames{}, []string{"id"}, []string{"city"}, DefaultSuffixes())
	p := NewProcessor(newSelector(), candidates, "company", "name", 0.5, layout)

	res := p.Process(Row{"company": "xyz123", "id": "R9"})

	assert.False(t, res.Matched)
	assert.Empty(t, res.Match)
	assert.Zero(t, res.Score)
	assert.Equal(t, map[string]string{"id": "R9"}, res.Fields, "candidate columns stay empty without a match")
}

func TestProcessMissingColumns(t *testing.T) {
	layout := NewLayout(ColumnNames{}, []string{"absent"}, []string{"missing"}, DefaultSuffixes())
	p := NewProcessor(newSelector(), candidates, "company", "name", 0.5, layout)

	res := p.Process(Row{"other": "Alpha Corp"})
	assert.False(t, res.Matched, "missing match field behaves as empty text")
	assert.Empty(t, res.Reference)
	assert.Empty(t, res.Fields)
}

func TestProcessDoesNotMutateInputs(t *testing.T) {
	cands := []Row{{"name": "Alpha Corporation", "id": "C1"}}
	ref := Row{"company": "Alpha Corp", "id": "R1"}
	layout := NewLayout(ColumnNames{}, []string{"id"}, []string{"id"}, DefaultSuffixes())
	p := NewProcessor(newSelector(), cands, "company", "name", 0.5, layout)

	res := p.Process(ref)
	res.Fields["id_ref"] = "changed"

	assert.Equal(t, Row{"company": "Alpha Corp", "id": "R1"}, ref)
	assert.Equal(t, Row{"name": "Alpha Corporation", "id": "C1"}, cands[0])
}
