package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/relief/pkg/relief/forest"
	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/lexicon"
	"github.com/cognicore/relief/pkg/relief/model"
	"github.com/cognicore/relief/pkg/relief/multioutput"
	"github.com/cognicore/relief/pkg/relief/selection"
	"github.com/cognicore/relief/pkg/relief/store"
)

// Training is the training run configuration file.
type Training struct {
	Table          string         `yaml:"table"`
	TestSize       float64        `yaml:"test_size"`
	Workers        int            `yaml:"workers"`
	CVFolds        int            `yaml:"cv_folds"`
	MaxFeatures    int            `yaml:"max_features"`
	Forest         forest.Config  `yaml:"forest"`
	Grid           selection.Grid `yaml:"grid"`
	Stoplist       string         `yaml:"stoplist"`
	Lexicon        string         `yaml:"lexicon"`
	StopwordPolicy string         `yaml:"stopword_policy"`
	FoldAccents    bool           `yaml:"fold_accents"`
}

// DefaultTraining returns the configuration used when no file is given.
func DefaultTraining() Training {
	return Training{
		Table:          store.DefaultTable,
		TestSize:       0.2,
		Workers:        multioutput.DefaultWorkers,
		CVFolds:        selection.DefaultFolds,
		Forest:         forest.DefaultConfig(),
		Grid:           selection.DefaultGrid(),
		StopwordPolicy: ingest.RetainStopwords.String(),
	}
}

// LoadTraining reads a training config from a YAML file. Keys absent from
// the file keep their default values; unknown keys are an error.
func LoadTraining(path string) (Training, error) {
	cfg := DefaultTraining()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := decodeStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Training) Validate() error {
	if c.Table == "" {
		return fmt.Errorf("table is empty: %w", internalerr.ErrInvalidConfig)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test_size must be in (0, 1), got %v: %w", c.TestSize, internalerr.ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d: %w", c.Workers, internalerr.ErrInvalidConfig)
	}
	if c.CVFolds < 2 {
		return fmt.Errorf("cv_folds must be >= 2, got %d: %w", c.CVFolds, internalerr.ErrInvalidConfig)
	}
	if _, ok := ingest.ParseStopwordPolicy(c.StopwordPolicy); !ok {
		return fmt.Errorf("stopword_policy %q: %w", c.StopwordPolicy, internalerr.ErrInvalidConfig)
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	return c.Grid.Validate()
}

// Params returns the model hyperparameters for a direct fit.
func (c Training) Params() model.Params {
	return model.Params{MaxFeatures: c.MaxFeatures, Forest: c.Forest}
}

// Loader returns a Loader for the tokenizer settings of c.
func (c Training) Loader() (*Loader, error) {
	policy, ok := ingest.ParseStopwordPolicy(c.StopwordPolicy)
	if !ok {
		return nil, fmt.Errorf("stopword_policy %q: %w", c.StopwordPolicy, internalerr.ErrInvalidConfig)
	}
	return &Loader{
		StoplistPath: c.Stoplist,
		LexiconPath:  c.Lexicon,
		Policy:       policy,
		FoldAccents:  c.FoldAccents,
	}, nil
}

// LoadGrid reads grid-search values from a YAML file with the keys
// max_features, n_estimators, criterion and max_depth. Absent keys keep the
// default values.
func LoadGrid(path string) (selection.Grid, error) {
	grid := selection.DefaultGrid()
	data, err := os.ReadFile(path)
	if err != nil {
		return grid, err
	}
	if err := decodeStrict(data, &grid); err != nil {
		return grid, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := grid.Validate(); err != nil {
		return grid, fmt.Errorf("%s: %w", path, err)
	}
	return grid, nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseStoplist(data)
}

// ParseStoplist decodes a stoplist document.
func ParseStoplist(data []byte) (*Stoplist, error) {
	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}
	return &sl, nil
}

// LoadLexicon loads a lemma lexicon from a YAML file.
func LoadLexicon(path string) (*lexicon.Lexicon, error) {
	return lexicon.LoadFromYAML(path)
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%v: %w", err, internalerr.ErrInvalidConfig)
	}
	return nil
}
