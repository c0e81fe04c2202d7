package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/refmatch/pkg/refmatch/internalerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("Default settings should validate: %v", err)
	}
	if s.Threshold != 0.80 || s.MaxWorkers != 8 || s.ProgressInterval != 10 {
		t.Errorf("Unexpected defaults: %+v", s)
	}
	if s.Names().BestMatch != "best_match" {
		t.Errorf("Expected best_match, got %q", s.Names().BestMatch)
	}
}

func TestWithDefaults(t *testing.T) {
	got := Settings{Threshold: 0.5, MaxWorkers: 2}.WithDefaults()
	want := Default()
	want.Threshold = 0.5
	want.MaxWorkers = 2
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	// A scoring section with any value set is kept as given.
	s := Default()
	s.Scoring.PositionDecay = 0
	if got := s.WithDefaults(); got.Scoring.PositionDecay != 0 {
		t.Errorf("Explicit zero decay should survive, got %v", got.Scoring.PositionDecay)
	}

	if got := (Settings{}).WithDefaults(); got.Threshold != 0 {
		t.Errorf("Zero threshold should be kept, got %v", got.Threshold)
	}
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "settings.yaml", `threshold: 0.65
column_names:
  similarity: score
scoring:
  noise_strength: 0.5
stoplist: stop.yaml
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if s.Threshold != 0.65 {
		t.Errorf("Expected threshold 0.65, got %v", s.Threshold)
	}
	if s.MaxWorkers != 8 {
		t.Errorf("Unset keys should keep defaults, got max_workers=%d", s.MaxWorkers)
	}
	if s.ColumnNames.Similarity != "score" || s.ColumnNames.Reference != "reference" {
		t.Errorf("Nested keys should merge, got %+v", s.ColumnNames)
	}
	if s.Scoring.NoiseStrength != 0.5 || s.Scoring.PositionDecay != 0.3 {
		t.Errorf("Scoring should merge, got %+v", s.Scoring)
	}
	if want := filepath.Join(dir, "stop.yaml"); s.Stoplist != want {
		t.Errorf("Expected stoplist %q, got %q", want, s.Stoplist)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"threshold above one", "threshold: 1.5\n"},
		{"zero workers", "max_workers: 0\n"},
		{"unknown encoding", "csv_encoding: ebcdic\n"},
		{"duplicate columns", "column_names: {reference: name, best_match: name}\n"},
		{"equal suffixes", "collision_suffixes: {ref: _x, cand: _x}\n"},
		{"malformed yaml", "threshold: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "settings.yaml", tt.content)
			_, err := Load(path)
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/settings.yaml")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := Default()
	s.Threshold = 0.7
	s.CSVEncoding = "windows-1251"

	if err := Save(path, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != s {
		t.Errorf("Expected %+v, got %+v", s, got)
	}
}

func TestLoadStoplist(t *testing.T) {
	path := writeFile(t, t.TempDir(), "stoplist.yaml", `terms:
  - ooo
  - gmbh
  - and
`)

	sl, err := LoadStoplist(path)
	if err != nil {
		t.Fatalf("Failed to load stoplist: %v", err)
	}
	if len(sl.Terms) != 3 {
		t.Errorf("Expected 3 terms, got %d", len(sl.Terms))
	}
}
