package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/refmatch/pkg/refmatch/rows"
)

func testLayout() rows.Layout {
	return rows.NewLayout(rows.DefaultColumnNames(), []string{"id"}, []string{"id", "inn"}, rows.DefaultSuffixes())
}

func matched(ref, cand string, score float64, id, candID string) rows.Result {
	return rows.Result{
		Reference: ref,
		Match:     cand,
		Score:     score,
		Matched:   true,
		Fields:    map[string]string{"id_ref": id, "id_cand": candID, "inn": "7701"},
	}
}

func TestResolveKeepsHigherScore(t *testing.T) {
	layout := testLayout()
	results := []rows.Result{
		matched("Acme Inc", "Acme Inc.", 1.0, "1", "c1"),
		matched("Acme Incorporated", "Acme Inc.", 0.9935, "2", "c1"),
	}

	cleared := Resolve(results, layout)
	require.Equal(t, 1, cleared)

	assert.Equal(t, "Acme Inc.", results[0].Match)
	assert.True(t, results[0].Matched)

	loser := results[1]
	assert.Equal(t, "", loser.Match)
	assert.Zero(t, loser.Score)
	assert.False(t, loser.Matched)
	assert.Equal(t, "", loser.Fields["id_cand"])
	assert.Equal(t, "", loser.Fields["inn"])
	assert.Equal(t, "2", loser.Fields["id_ref"], "reference columns are untouched")
	assert.Equal(t, "Acme Incorporated", loser.Reference)
}

func TestResolveLaterHigherScoreTakesOver(t *testing.T) {
	results := []rows.Result{
		matched("Acme Incorporated", "Acme Inc.", 0.9935, "1", "c1"),
		matched("Acme Inc", "Acme Inc.", 1.0, "2", "c1"),
	}

	require.Equal(t, 1, Resolve(results, testLayout()))
	assert.False(t, results[0].Matched)
	assert.Equal(t, "Acme Inc.", results[1].Match)
}

func TestResolveTieKeepsEarlierHolder(t *testing.T) {
	results := []rows.Result{
		matched("a", "Beta LLC", 0.9, "1", "c"),
		matched("b", "Beta LLC", 0.9, "2", "c"),
		matched("c", "Beta LLC", 0.9, "3", "c"),
	}

	require.Equal(t, 2, Resolve(results, testLayout()))
	assert.True(t, results[0].Matched)
	assert.False(t, results[1].Matched)
	assert.False(t, results[2].Matched)
}

func TestResolveTrimsKeys(t *testing.T) {
	results := []rows.Result{
		matched("a", "Beta LLC ", 0.8, "1", "c"),
		matched("b", " Beta LLC", 0.95, "2", "c"),
	}

	require.Equal(t, 1, Resolve(results, testLayout()))
	assert.False(t, results[0].Matched)
	assert.Equal(t, " Beta LLC", results[1].Match)
}

func TestResolveIgnoresUnmatched(t *testing.T) {
	results := []rows.Result{
		{Reference: "x", Fields: map[string]string{}},
		{Reference: "y", Fields: map[string]string{}},
		matched("z", "Gamma", 0.7, "3", "c"),
	}
	assert.Zero(t, Resolve(results, testLayout()))
	assert.True(t, results[2].Matched)
}

func TestResolveIdempotentAndUnique(t *testing.T) {
	layout := testLayout()
	results := []rows.Result{
		matched("r1", "A", 0.7, "1", "a"),
		matched("r2", "B", 0.8, "2", "b"),
		matched("r3", "A", 0.9, "3", "a"),
		matched("r4", "B", 0.8, "4", "b"),
		matched("r5", "C", 0.6, "5", "c"),
		matched("r6", "A", 0.9, "6", "a"),
	}

	first := Resolve(results, layout)
	assert.Equal(t, 3, first)

	snapshot := make([]rows.Result, len(results))
	for i, r := range results {
		fields := make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			fields[k] = v
		}
		r.Fields = fields
		snapshot[i] = r
	}

	assert.Zero(t, Resolve(results, layout))
	assert.Equal(t, snapshot, results)

	holders := map[string]int{}
	for _, r := range results {
		if r.Match != "" {
			holders[r.Match]++
		}
	}
	for text, n := range holders {
		assert.Equal(t, 1, n, "candidate %q held by %d rows", text, n)
	}
	assert.Equal(t, "r3", results[2].Reference)
	assert.True(t, results[2].Matched)
	assert.True(t, results[1].Matched)
	assert.True(t, results[4].Matched)
}
