// Package refmatch matches every reference string of one table to the most
// similar candidate string of another, then keeps each candidate for at
// most one reference.
package refmatch

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/refmatch/pkg/refmatch/config"
	"github.com/cognicore/refmatch/pkg/refmatch/conflict"
	"github.com/cognicore/refmatch/pkg/refmatch/dispatch"
	"github.com/cognicore/refmatch/pkg/refmatch/idf"
	"github.com/cognicore/refmatch/pkg/refmatch/ingest"
	"github.com/cognicore/refmatch/pkg/refmatch/internalerr"
	"github.com/cognicore/refmatch/pkg/refmatch/match"
	"github.com/cognicore/refmatch/pkg/refmatch/rank"
	"github.com/cognicore/refmatch/pkg/refmatch/rows"
	"github.com/cognicore/refmatch/pkg/refmatch/similarity"
	"github.com/cognicore/refmatch/pkg/refmatch/stoplist"
	"github.com/cognicore/refmatch/pkg/refmatch/store"
)

// Engine is the matching facade
type Engine struct {
	settings   config.Settings
	stops      *stoplist.Manager
	selector   *match.Selector
	dispatcher *dispatch.Dispatcher
	store      store.Store
	logger     *zap.SugaredLogger
	now        func() time.Time

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures an Engine. Zero fields select defaults.
type Options struct {
	Settings config.Settings
	Stoplist *stoplist.Manager
	Cache    similarity.Cache  // shared by all workers; defaults to an LRU of Settings.CacheSize
	Store    store.Store       // completed runs are saved when set
	Logger   *zap.SugaredLogger
	Now      func() time.Time
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	settings := opts.Settings.WithDefaults()
	stops := opts.Stoplist
	if stops == nil {
		stops = stoplist.Default()
	}
	cache := opts.Cache
	if cache == nil {
		cache = similarity.NewLRUCache(settings.CacheSize)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	params := settings.Params()
	oracle := similarity.NewOracle(cache, params.TokenThreshold)
	scorer := rank.NewScorer(params, oracle, idf.NewCalculator(stops))

	return &Engine{
		settings:   settings,
		stops:      stops,
		selector:   match.NewSelector(scorer, settings.MaxHeavyCandidates),
		dispatcher: dispatch.New(settings.MaxWorkers, settings.ProgressInterval, logger),
		store:      opts.Store,
		logger:     logger,
		now:        now,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

// Close cleanly shuts down the Engine and its store
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Settings returns the effective settings.
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// Job describes one matching run
type Job struct {
	Reference   []rows.Row
	Candidate   []rows.Row
	RefField    string
	CandField   string
	RefColumns  []string // reference columns copied to the output
	CandColumns []string // candidate columns copied to the output
	Threshold   float64
	Names       rows.ColumnNames // zero value uses the configured names
	Progress    dispatch.ProgressFunc
}

// Report is the outcome of a completed run
type Report struct {
	RunID     string
	Layout    rows.Layout
	Rows      []rows.Result
	Matched   int
	Unmatched int
	Cleared   int // rows that lost their candidate to a better-scoring row
}

// Header returns the output column names.
func (r Report) Header() []string {
	return r.Layout.Header()
}

// Records renders every result row in Header order.
func (r Report) Records() [][]string {
	out := make([][]string, len(r.Rows))
	for i, res := range r.Rows {
		out[i] = r.Layout.Values(res)
	}
	return out
}

func (j Job) validate() error {
	if j.Threshold < 0 || j.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0, 1]", internalerr.ErrInvalidInput, j.Threshold)
	}
	if j.RefField == "" || j.CandField == "" {
		return fmt.Errorf("%w: match fields must be set", internalerr.ErrInvalidInput)
	}
	if !hasField(j.Reference, j.RefField) {
		return fmt.Errorf("%w: reference rows have no column %q", internalerr.ErrInvalidInput, j.RefField)
	}
	if !hasField(j.Candidate, j.CandField) {
		return fmt.Errorf("%w: candidate rows have no column %q", internalerr.ErrInvalidInput, j.CandField)
	}
	return nil
}

// hasField reports whether any row carries field. An empty table passes.
func hasField(rs []rows.Row, field string) bool {
	if len(rs) == 0 {
		return true
	}
	for _, r := range rs {
		if _, ok := r[field]; ok {
			return true
		}
	}
	return false
}

// Run matches every reference row, resolves conflicts and, when a store is
// configured, saves the run. Results keep the reference order. On error no
// partial report is returned.
func (e *Engine) Run(ctx context.Context, job Job) (Report, error) {
	if err := job.validate(); err != nil {
		return Report{}, err
	}

	start := e.now()
	runID := e.newRunID(start)

	names := job.Names
	if names == (rows.ColumnNames{}) {
		names = e.settings.Names()
	}
	layout := rows.NewLayout(names, job.RefColumns, job.CandColumns, e.settings.Suffixes())
	proc := rows.NewProcessor(e.selector, job.Candidate, job.RefField, job.CandField, job.Threshold, layout)

	e.logger.Infow("run started",
		"run", runID,
		"references", len(job.Reference),
		"candidates", len(job.Candidate),
		"threshold", job.Threshold,
		"workers", e.dispatcher.WorkerCount(),
	)

	task := func(_ context.Context, i int) (rows.Result, error) {
		return proc.Process(job.Reference[i]), nil
	}
	results, err := e.dispatcher.Run(ctx, len(job.Reference), task, job.Progress)
	if err != nil {
		e.logger.Warnw("run failed", "run", runID, "error", err)
		return Report{}, fmt.Errorf("run %s: %w", runID, err)
	}

	cleared := conflict.Resolve(results, layout)

	rep := Report{
		RunID:   runID,
		Layout:  layout,
		Rows:    results,
		Cleared: cleared,
	}
	for _, r := range results {
		if r.Matched {
			rep.Matched++
		} else {
			rep.Unmatched++
		}
	}

	if e.store != nil {
		run := store.Run{
			ID:        runID,
			CreatedAt: start,
			RefField:  job.RefField,
			CandField: job.CandField,
			Threshold: job.Threshold,
			Header:    rep.Header(),
			Rows:      rep.Records(),
			Matched:   rep.Matched,
			Unmatched: rep.Unmatched,
			Cleared:   rep.Cleared,
		}
		if err := e.store.SaveRun(ctx, run); err != nil {
			return Report{}, fmt.Errorf("%w: save run %s: %v", internalerr.ErrStoreUnavailable, runID, err)
		}
		e.logger.Debugw("run saved", "run", runID, "rows", len(run.Rows))
	}

	e.logger.Infow("run finished",
		"run", runID,
		"matched", rep.Matched,
		"unmatched", rep.Unmatched,
		"cleared", rep.Cleared,
		"duration", e.now().Sub(start),
	)
	return rep, nil
}

// Explain scores ref against a single candidate and reports the directional
// scores and the candidate token chosen for every reference token.
func (e *Engine) Explain(ref, cand string) rank.Breakdown {
	return e.selector.Explain(ref, cand, match.NewPool([]string{cand}))
}

// SuggestStopwords proposes tokens that occur in a large share of texts and
// are not stopwords yet.
func (e *Engine) SuggestStopwords(texts []string, th stoplist.Thresholds) []stoplist.Candidate {
	counts := idf.NewCounter()
	for _, t := range texts {
		counts.AddDocument(ingest.Tokenize(t))
	}
	stats := stoplist.StatsFromDF(counts.DF, counts.TotalDocs())
	return e.stops.SuggestCandidates(stats, th)
}

func (e *Engine) newRunID(at time.Time) string {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), e.entropy).String()
}
