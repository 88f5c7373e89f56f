// Package relief trains the disaster-response message classifier: it loads
// labeled messages from a store, splits them, fits a model directly or via
// grid search, reports per-category scores and saves the fitted model.
package relief

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/metrics"
	"github.com/cognicore/relief/pkg/relief/model"
	"github.com/cognicore/relief/pkg/relief/selection"
	"github.com/cognicore/relief/pkg/relief/store"
)

// Stage is a step of a training run. Stages run strictly in order.
type Stage int

const (
	StageLoad Stage = iota
	StageSplit
	StageBuild
	StageFit
	StageEvaluate
	StageSave
	StageDone
)

var stageNames = [...]string{"load", "split", "build", "fit", "evaluate", "save", "done"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Options configures a Trainer.
type Options struct {
	Store     store.Store
	Table     string
	Tokenizer *ingest.Tokenizer
	Params    model.Params

	// Search selects a grid search over Grid with Folds-fold
	// cross-validation instead of a direct fit with Params.
	Search bool
	Grid   selection.Grid
	Folds  int

	Workers  int
	TestSize float64
	// Seed drives the train/test shuffle.
	Seed uint64

	// DatabasePath is only echoed in progress output.
	DatabasePath string
	ModelPath    string

	// Out receives progress and report lines. Nil discards them.
	Out io.Writer
}

// Result summarizes a training run.
type Result struct {
	// Stage is the last stage entered: StageDone on success, the failing
	// stage otherwise.
	Stage     Stage
	Model     *model.Model
	Reports   []metrics.Report
	TrainRows int
	TestRows  int
}

// Trainer runs one training job.
type Trainer struct {
	opts Options
	out  io.Writer
}

// New creates a Trainer with the given dependencies
func New(opts Options) *Trainer {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	if opts.Table == "" {
		opts.Table = store.DefaultTable
	}
	if opts.TestSize == 0 {
		opts.TestSize = 0.2
	}
	return &Trainer{opts: opts, out: out}
}

// Close cleanly shuts down the underlying store
func (t *Trainer) Close() error {
	if t.opts.Store == nil {
		return nil
	}
	return t.opts.Store.Close()
}

// Run executes Load, Split, Build, Fit, Evaluate and Save in order. The
// first error aborts the run.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	res := Result{Stage: StageLoad}
	if t.opts.Store == nil || t.opts.Tokenizer == nil {
		return res, fmt.Errorf("trainer needs a store and a tokenizer: %w", internalerr.ErrInvalidConfig)
	}

	fmt.Fprintf(t.out, "Loading data...\n    DATABASE: %s\n", t.opts.DatabasePath)
	ds, err := t.opts.Store.LoadDataset(ctx, t.opts.Table)
	if err != nil {
		return res, fmt.Errorf("load data: %w", err)
	}
	slog.Info("dataset loaded", "table", t.opts.Table, "rows", ds.Len(), "categories", len(ds.Categories))

	res.Stage = StageSplit
	rng := rand.New(rand.NewPCG(t.opts.Seed, t.opts.Seed))
	trainIdx, testIdx, err := selection.TrainTestSplit(ds.Len(), t.opts.TestSize, rng)
	if err != nil {
		return res, fmt.Errorf("split data: %w", err)
	}
	train, test := ds.Subset(trainIdx), ds.Subset(testIdx)
	res.TrainRows, res.TestRows = train.Len(), test.Len()
	slog.Info("dataset split", "train", res.TrainRows, "test", res.TestRows, "seed", t.opts.Seed)

	res.Stage = StageBuild
	fmt.Fprintln(t.out, "Building model...")
	if t.opts.Search {
		folds := t.opts.Folds
		if folds == 0 {
			folds = selection.DefaultFolds
		}
		fmt.Fprintf(t.out, "Hint: grid search fits %d candidates on %d folds and takes much longer!\n",
			t.opts.Grid.Size(), folds)
		slog.Warn("grid search enabled", "candidates", t.opts.Grid.Size(), "folds", folds)
	}
	est, err := selection.Build(t.opts.Search, t.opts.Tokenizer, t.opts.Params, t.opts.Grid, t.opts.Folds, t.opts.Workers)
	if err != nil {
		return res, fmt.Errorf("build model: %w", err)
	}

	res.Stage = StageFit
	fmt.Fprintln(t.out, "Training model...")
	m, err := est.Fit(ctx, train.Messages, train.Labels)
	if err != nil {
		return res, fmt.Errorf("train model: %w", err)
	}
	m.Meta.Categories = append([]string(nil), ds.Categories...)
	res.Model = m
	slog.Info("model trained", "run_id", m.Meta.RunID, "params", m.Meta.Params.String(), "vocabulary", len(m.Vocabulary()))

	res.Stage = StageEvaluate
	fmt.Fprintln(t.out, "Evaluating model...")
	reports, err := metrics.Evaluate(m, test.Messages, test.Labels, ds.Categories)
	if err != nil {
		return res, fmt.Errorf("evaluate model: %w", err)
	}
	res.Reports = reports
	if err := metrics.WriteReport(t.out, reports); err != nil {
		return res, fmt.Errorf("write report: %w", err)
	}

	res.Stage = StageSave
	fmt.Fprintf(t.out, "Saving model...\n    MODEL: %s\n", t.opts.ModelPath)
	if err := m.Save(t.opts.ModelPath); err != nil {
		return res, fmt.Errorf("save model: %w", err)
	}

	res.Stage = StageDone
	fmt.Fprintln(t.out, "Trained model saved!")
	return res, nil
}
