package store

import (
	"context"
	"time"
)

// Store persists completed matching runs
type Store interface {
	Close() error

	// SaveRun inserts or replaces a run and its rows.
	SaveRun(ctx context.Context, r Run) error
	// GetRun returns a run by ID, or an error wrapping internalerr.ErrNotFound.
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns up to limit summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// DefaultListLimit applies when ListRuns is called with limit <= 0.
const DefaultListLimit = 20

// Run is one completed matching job, rendered as output rows
type Run struct {
	ID        string // ULID
	CreatedAt time.Time
	RefField  string
	CandField string
	Threshold float64
	Header    []string
	Rows      [][]string
	Matched   int
	Unmatched int
	Cleared   int // rows that lost their match during conflict resolution
}

// RunSummary is a Run without its rows
type RunSummary struct {
	ID        string
	CreatedAt time.Time
	RefField  string
	CandField string
	Threshold float64
	RowCount  int
	Matched   int
	Unmatched int
	Cleared   int
}

// Summary drops the rows of r.
func (r Run) Summary() RunSummary {
	return RunSummary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		RefField:  r.RefField,
		CandField: r.CandField,
		Threshold: r.Threshold,
		RowCount:  len(r.Rows),
		Matched:   r.Matched,
		Unmatched: r.Unmatched,
		Cleared:   r.Cleared,
	}
}
