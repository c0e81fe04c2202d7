package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/refmatch/pkg/refmatch/internalerr"
	"github.com/cognicore/refmatch/pkg/refmatch/store"
)

func sampleRun(id string, at time.Time) store.Run {
	return store.Run{
		ID:        id,
		CreatedAt: at,
		RefField:  "name",
		CandField: "title",
		Threshold: 0.8,
		Header:    []string{"reference", "best_match", "similarity"},
		Rows: [][]string{
			{"Alpha Corp", "Alpha Corporation", "0.9935"},
			{"xyz123", "", ""},
		},
		Matched:   1,
		Unmatched: 1,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	s := New()

	run := sampleRun("01HZY", time.Now())
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	// Mutating the caller's copy must not leak into the store
	run.Rows[0][1] = "changed"

	got, err := s.GetRun(ctx, "01HZY")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Rows[0][1] != "Alpha Corporation" {
		t.Errorf("Stored rows should be copied, got %q", got.Rows[0][1])
	}
	if got.Matched != 1 || got.Unmatched != 1 {
		t.Errorf("Unexpected counts: %+v", got)
	}
}

func TestGetRunNotFound(t *testing.T) {
	_, err := New().GetRun(context.Background(), "missing")
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveRunRequiresID(t *testing.T) {
	err := New().SaveRun(context.Background(), store.Run{})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(list))
	}
	if list[0].ID != "c" || list[1].ID != "b" {
		t.Errorf("Expected [c b], got [%s %s]", list[0].ID, list[1].ID)
	}
	if list[0].RowCount != 2 {
		t.Errorf("Expected RowCount 2, got %d", list[0].RowCount)
	}
}
