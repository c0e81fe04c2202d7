package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/refmatch/internal/tabular"
	"github.com/cognicore/refmatch/pkg/refmatch/internalerr"
	"github.com/cognicore/refmatch/pkg/refmatch/rank"
	"github.com/cognicore/refmatch/pkg/refmatch/rows"
)

// Settings represents the engine settings file
type Settings struct {
	Threshold          float64     `yaml:"threshold"`
	MaxWorkers         int         `yaml:"max_workers"`
	ProgressInterval   int         `yaml:"progress_interval"`
	CacheSize          int         `yaml:"cache_size"`
	MaxHeavyCandidates int         `yaml:"max_heavy_candidates"`
	CSVEncoding        string      `yaml:"csv_encoding"`
	DefaultResultFile  string      `yaml:"default_result_file"`
	ColumnNames        ColumnNames `yaml:"column_names"`
	CollisionSuffixes  Suffixes    `yaml:"collision_suffixes"`
	Scoring            Scoring     `yaml:"scoring"`
	Stoplist           string      `yaml:"stoplist,omitempty"`
}

// ColumnNames overrides the canonical output columns
type ColumnNames struct {
	Reference  string `yaml:"reference"`
	BestMatch  string `yaml:"best_match"`
	Similarity string `yaml:"similarity"`
}

// Suffixes disambiguate a column selected from both files
type Suffixes struct {
	Ref  string `yaml:"ref"`
	Cand string `yaml:"cand"`
}

// Scoring tunes the directional scorer
type Scoring struct {
	TokenThreshold float64 `yaml:"token_threshold"`
	PositionDecay  float64 `yaml:"position_decay"`
	NoiseStrength  float64 `yaml:"noise_strength"`
}

// Default returns the settings used when no file is given.
func Default() Settings {
	p := rank.DefaultParams()
	names := rows.DefaultColumnNames()
	sfx := rows.DefaultSuffixes()
	return Settings{
		Threshold:          0.80,
		MaxWorkers:         8,
		ProgressInterval:   10,
		CacheSize:          10_000,
		MaxHeavyCandidates: 64,
		CSVEncoding:        "utf-8",
		DefaultResultFile:  "result.csv",
		ColumnNames: ColumnNames{
			Reference:  names.Reference,
			BestMatch:  names.BestMatch,
			Similarity: names.Similarity,
		},
		CollisionSuffixes: Suffixes{Ref: sfx.Ref, Cand: sfx.Cand},
		Scoring: Scoring{
			TokenThreshold: p.TokenThreshold,
			PositionDecay:  p.PositionDecay,
			NoiseStrength:  p.NoiseStrength,
		},
	}
}

// WithDefaults fills unset fields from Default. Threshold keeps its value
// since zero is a valid cut-off. The scoring section is filled only when it
// is entirely zero, so an explicit zero decay or noise strength survives.
func (s Settings) WithDefaults() Settings {
	d := Default()
	if s.MaxWorkers <= 0 {
		s.MaxWorkers = d.MaxWorkers
	}
	if s.ProgressInterval <= 0 {
		s.ProgressInterval = d.ProgressInterval
	}
	if s.CacheSize <= 0 {
		s.CacheSize = d.CacheSize
	}
	if s.MaxHeavyCandidates <= 0 {
		s.MaxHeavyCandidates = d.MaxHeavyCandidates
	}
	if s.CSVEncoding == "" {
		s.CSVEncoding = d.CSVEncoding
	}
	if s.DefaultResultFile == "" {
		s.DefaultResultFile = d.DefaultResultFile
	}
	if s.ColumnNames.Reference == "" {
		s.ColumnNames.Reference = d.ColumnNames.Reference
	}
	if s.ColumnNames.BestMatch == "" {
		s.ColumnNames.BestMatch = d.ColumnNames.BestMatch
	}
	if s.ColumnNames.Similarity == "" {
		s.ColumnNames.Similarity = d.ColumnNames.Similarity
	}
	if s.CollisionSuffixes.Ref == "" {
		s.CollisionSuffixes.Ref = d.CollisionSuffixes.Ref
	}
	if s.CollisionSuffixes.Cand == "" {
		s.CollisionSuffixes.Cand = d.CollisionSuffixes.Cand
	}
	if s.Scoring == (Scoring{}) {
		s.Scoring = d.Scoring
	}
	return s
}

// Load reads a YAML settings file. Keys missing from the file keep their
// defaults. The result is validated.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
	}

	// A relative stoplist path is relative to the settings file.
	if s.Stoplist != "" && !filepath.IsAbs(s.Stoplist) {
		s.Stoplist = filepath.Join(filepath.Dir(path), s.Stoplist)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes settings as YAML.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Validate checks ranges and names. All problems are reported together.
func (s Settings) Validate() error {
	var errs []error
	inUnit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", name, v))
		}
	}
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}

	inUnit("threshold", s.Threshold)
	inUnit("scoring.token_threshold", s.Scoring.TokenThreshold)
	inUnit("scoring.position_decay", s.Scoring.PositionDecay)
	inUnit("scoring.noise_strength", s.Scoring.NoiseStrength)
	positive("max_workers", s.MaxWorkers)
	positive("progress_interval", s.ProgressInterval)
	positive("cache_size", s.CacheSize)
	positive("max_heavy_candidates", s.MaxHeavyCandidates)

	if _, err := tabular.LookupEncoding(s.CSVEncoding); err != nil {
		errs = append(errs, err)
	}

	names := []string{s.ColumnNames.Reference, s.ColumnNames.BestMatch, s.ColumnNames.Similarity}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			errs = append(errs, errors.New("column_names must not be empty"))
			break
		}
		if seen[n] {
			errs = append(errs, fmt.Errorf("column_names: %q used twice", n))
		}
		seen[n] = true
	}

	if s.CollisionSuffixes.Ref == "" || s.CollisionSuffixes.Cand == "" {
		errs = append(errs, errors.New("collision_suffixes must not be empty"))
	} else if s.CollisionSuffixes.Ref == s.CollisionSuffixes.Cand {
		errs = append(errs, errors.New("collision_suffixes must differ"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Names converts the configured column names.
func (s Settings) Names() rows.ColumnNames {
	return rows.ColumnNames{
		Reference:  s.ColumnNames.Reference,
		BestMatch:  s.ColumnNames.BestMatch,
		Similarity: s.ColumnNames.Similarity,
	}
}

// Suffixes converts the configured collision suffixes.
func (s Settings) Suffixes() rows.Suffixes {
	return rows.Suffixes{Ref: s.CollisionSuffixes.Ref, Cand: s.CollisionSuffixes.Cand}
}

// Params converts the scoring section.
func (s Settings) Params() rank.Params {
	return rank.Params{
		TokenThreshold: s.Scoring.TokenThreshold,
		PositionDecay:  s.Scoring.PositionDecay,
		NoiseStrength:  s.Scoring.NoiseStrength,
	}
}

// StoplistFile represents the stopword list file
type StoplistFile struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*StoplistFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl StoplistFile
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
	}

	return &sl, nil
}
