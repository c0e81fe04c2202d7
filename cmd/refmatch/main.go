package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/refmatch/internal/tabular"
	"github.com/cognicore/refmatch/pkg/refmatch"
	"github.com/cognicore/refmatch/pkg/refmatch/config"
	"github.com/cognicore/refmatch/pkg/refmatch/stoplist"
	"github.com/cognicore/refmatch/pkg/refmatch/store"
	"github.com/cognicore/refmatch/pkg/refmatch/store/sqlite"
)

type options struct {
	refPath      string
	candPath     string
	refCol       string
	candCol      string
	refCols      []string
	candCols     []string
	threshold    float64
	thresholdSet bool
	configPath   string
	stoplistPath string
	outPath      string
	workers      int
	dbPath       string
	listRuns     int
	columnsOf    string
	explain      string
	suggest      int
	saveConfig   string
	listStops    bool
	verbose      bool
}

func parseFlags(args []string) (options, error) {
	var (
		o                 options
		refCols, candCols string
	)
	fs := flag.NewFlagSet("refmatch", flag.ContinueOnError)
	fs.StringVar(&o.refPath, "ref", "", "Reference file, CSV or XLSX")
	fs.StringVar(&o.candPath, "cand", "", "Candidate file, CSV or XLSX")
	fs.StringVar(&o.refCol, "ref-col", "", "Reference column to match on")
	fs.StringVar(&o.candCol, "cand-col", "", "Candidate column to match on")
	fs.StringVar(&refCols, "ref-cols", "", "Comma-separated reference columns to copy to the output")
	fs.StringVar(&candCols, "cand-cols", "", "Comma-separated candidate columns to copy to the output")
	fs.Float64Var(&o.threshold, "threshold", 0, "Minimum similarity in [0, 1] (default from settings)")
	fs.StringVar(&o.configPath, "config", "", "Settings file (optional)")
	fs.StringVar(&o.stoplistPath, "stoplist", "", "Stoplist file (optional)")
	fs.StringVar(&o.outPath, "out", "", "Result file, .csv or .xlsx (default from settings)")
	fs.IntVar(&o.workers, "workers", 0, "Worker cap (default from settings)")
	fs.StringVar(&o.dbPath, "db", "", "Run history database (optional)")
	fs.IntVar(&o.listRuns, "list-runs", 0, "List the N most recent runs and exit")
	fs.StringVar(&o.columnsOf, "columns", "", "Print the columns of a file and exit")
	fs.StringVar(&o.explain, "explain", "", `Explain the score of "reference|candidate" and exit`)
	fs.IntVar(&o.suggest, "suggest-stopwords", 0, "Print up to N stopword suggestions from the candidate column and exit")
	fs.StringVar(&o.saveConfig, "save-config", "", "Write the effective settings to a YAML file and exit")
	fs.BoolVar(&o.listStops, "list-stopwords", false, "Print the effective stoplist and exit")
	fs.BoolVar(&o.verbose, "verbose", false, "Development logging")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	o.refCols = splitList(refCols)
	o.candCols = splitList(candCols)

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			o.thresholdSet = true
		}
	})
	if o.thresholdSet && (o.threshold < 0 || o.threshold > 1) {
		return options{}, fmt.Errorf("-threshold %v outside [0, 1]", o.threshold)
	}

	if o.listRuns > 0 && o.dbPath == "" {
		return options{}, errors.New("-list-runs requires -db")
	}
	if o.listRuns > 0 || o.columnsOf != "" || o.explain != "" || o.saveConfig != "" || o.listStops {
		return o, nil
	}
	if o.suggest > 0 {
		if o.candPath == "" || o.candCol == "" {
			return options{}, errors.New("-suggest-stopwords requires -cand and -cand-col")
		}
		return o, nil
	}
	required := []struct{ name, value string }{
		{"-ref", o.refPath},
		{"-cand", o.candPath},
		{"-ref-col", o.refCol},
		{"-cand-col", o.candCol},
	}
	for _, r := range required {
		if r.value == "" {
			return options{}, fmt.Errorf("%s required", r.name)
		}
	}
	return o, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "refmatch:", err)
		os.Exit(2)
	}

	logger, err := newLogger(opts.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "refmatch: logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, logger, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "failed:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func run(ctx context.Context, opts options, logger *zap.SugaredLogger, out, errOut io.Writer) error {
	comp, err := (&config.Loader{SettingsPath: opts.configPath, StoplistPath: opts.stoplistPath}).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	settings := comp.Settings
	if opts.workers > 0 {
		settings.MaxWorkers = opts.workers
	}
	if opts.thresholdSet {
		settings.Threshold = opts.threshold
	}

	switch {
	case opts.saveConfig != "":
		if err := settings.Validate(); err != nil {
			return err
		}
		if err := config.Save(opts.saveConfig, settings); err != nil {
			return err
		}
		fmt.Fprintf(out, "settings written to %s\n", opts.saveConfig)
		return nil
	case opts.listStops:
		for _, term := range comp.Stoplist.All() {
			fmt.Fprintln(out, term)
		}
		return nil
	}

	if opts.columnsOf != "" {
		cols, err := tabular.Columns(opts.columnsOf, settings.CSVEncoding)
		if err != nil {
			return err
		}
		for _, c := range cols {
			fmt.Fprintln(out, c)
		}
		return nil
	}

	if opts.listRuns > 0 {
		return listRuns(ctx, opts.dbPath, opts.listRuns, out)
	}

	engine, cleanup, err := buildEngine(ctx, opts.dbPath, settings, comp.Stoplist, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	switch {
	case opts.explain != "":
		return explain(engine, opts.explain, out)
	case opts.suggest > 0:
		return suggestStopwords(engine, opts, settings.CSVEncoding, out)
	}

	ref, err := readTable(opts.refPath, settings.CSVEncoding)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cand, err := readTable(opts.candPath, settings.CSVEncoding)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rep, err := engine.Run(ctx, refmatch.Job{
		Reference:   ref.Rows,
		Candidate:   cand.Rows,
		RefField:    opts.refCol,
		CandField:   opts.candCol,
		RefColumns:  opts.refCols,
		CandColumns: opts.candCols,
		Threshold:   settings.Threshold,
		Progress: func(percent float64, completed, total int) {
			fmt.Fprintf(errOut, "\rprogress %5.1f%% (%d/%d)", percent, completed, total)
			if completed == total {
				fmt.Fprintln(errOut)
			}
		},
	})
	if err != nil {
		return err
	}

	outPath := opts.outPath
	if outPath == "" {
		outPath = settings.DefaultResultFile
	}
	if err := tabular.WriteFile(outPath, rep.Header(), rep.Records(), settings.CSVEncoding); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	fmt.Fprintf(out, "completed with %d matches, %d unmatched\n", rep.Matched, rep.Unmatched)
	if rep.Cleared > 0 {
		fmt.Fprintf(out, "%d rows lost their match to a better-scoring row\n", rep.Cleared)
	}
	fmt.Fprintf(out, "run %s written to %s\n", rep.RunID, outPath)
	return nil
}

func buildEngine(ctx context.Context, dbPath string, settings config.Settings, stops *stoplist.Manager, logger *zap.SugaredLogger) (*refmatch.Engine, func(), error) {
	var st store.Store
	if dbPath != "" {
		var err error
		st, err = sqlite.OpenSQLite(ctx, dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
	}

	engine := refmatch.New(refmatch.Options{
		Settings: settings,
		Stoplist: stops,
		Store:    st,
		Logger:   logger,
	})

	cleanup := func() {
		engine.Close()
	}
	return engine, cleanup, nil
}

func readTable(path, enc string) (*tabular.Table, error) {
	if err := tabular.Validate(path, enc); err != nil {
		return nil, err
	}
	return tabular.ReadFile(path, enc)
}

func listRuns(ctx context.Context, dbPath string, limit int, out io.Writer) error {
	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %s -> %s  threshold=%.2f  rows=%d matched=%d unmatched=%d cleared=%d\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.RefField, r.CandField,
			r.Threshold, r.RowCount, r.Matched, r.Unmatched, r.Cleared)
	}
	return nil
}

func explain(engine *refmatch.Engine, pair string, out io.Writer) error {
	ref, cand, ok := strings.Cut(pair, "|")
	if !ok {
		return fmt.Errorf(`-explain expects "reference|candidate", got %q`, pair)
	}

	b := engine.Explain(strings.TrimSpace(ref), strings.TrimSpace(cand))
	fmt.Fprintf(out, "score     %.4f\n", b.Total)
	fmt.Fprintf(out, "forward   %.4f\n", b.Forward)
	fmt.Fprintf(out, "backward  %.4f\n", b.Backward)
	fmt.Fprintf(out, "alpha     %.4f\n", b.Alpha)
	fmt.Fprintln(out, "\nTokens:")
	for _, m := range b.Tokens {
		if m.Target == "" {
			fmt.Fprintf(out, "  %-20s  (no match)  weight %.3f\n", m.Source, m.Weight)
			continue
		}
		fmt.Fprintf(out, "  %-20s  %-20s  sim %.3f  align %.3f  weight %.3f\n",
			m.Source, m.Target, m.Similarity, m.Alignment, m.Weight)
	}
	return nil
}

func suggestStopwords(engine *refmatch.Engine, opts options, enc string, out io.Writer) error {
	table, err := readTable(opts.candPath, enc)
	if err != nil {
		return err
	}
	texts := make([]string, len(table.Rows))
	for i, r := range table.Rows {
		texts[i] = r[opts.candCol]
	}

	suggestions := engine.SuggestStopwords(texts, stoplist.DefaultThresholds())
	if len(suggestions) == 0 {
		fmt.Fprintln(out, "No stopword suggestions.")
		return nil
	}
	for _, s := range suggestions[:min(opts.suggest, len(suggestions))] {
		fmt.Fprintf(out, "%-20s %5.1f%%\n", s.Token, s.Reason.DFPercent)
	}
	return nil
}
