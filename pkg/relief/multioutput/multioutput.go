// Package multioutput fits one forest per label column over a shared
// feature matrix.
package multioutput

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/relief/pkg/relief/features"
	"github.com/cognicore/relief/pkg/relief/forest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// DefaultWorkers is the label-level parallelism when none is configured.
const DefaultWorkers = 4

// Options configures a multi-output fit.
type Options struct {
	Forest  forest.Config
	Workers int
}

// Classifier holds one fitted forest per label, in label order.
type Classifier struct {
	Forests []*forest.Forest `json:"forests"`
}

// CheckLabels validates a label matrix against the number of feature rows.
func CheckLabels(Y [][]int, rows int) error {
	if len(Y) == 0 {
		return fmt.Errorf("label matrix has no rows: %w", internalerr.ErrInvalidConfig)
	}
	width := len(Y[0])
	if width == 0 {
		return fmt.Errorf("label matrix has no columns: %w", internalerr.ErrInvalidConfig)
	}
	if len(Y) != rows {
		return fmt.Errorf("label matrix has %d rows, features have %d: %w", len(Y), rows, internalerr.ErrInvalidConfig)
	}
	for i, row := range Y {
		if len(row) != width {
			return fmt.Errorf("label row %d has %d columns, want %d: %w", i, len(row), width, internalerr.ErrInvalidInput)
		}
	}
	return nil
}

// Fit trains one forest per column of Y. Labels are fitted concurrently on
// at most opts.Workers goroutines; the call returns once every label is
// fitted or the first failure.
func Fit(ctx context.Context, X features.Matrix, Y [][]int, opts Options) (*Classifier, error) {
	if err := CheckLabels(Y, X.Len()); err != nil {
		return nil, err
	}
	if err := opts.Forest.Validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	in := forest.NewInput(X)
	nLabels := len(Y[0])
	forests := make([]*forest.Forest, nLabels)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for j := 0; j < nLabels; j++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			f, err := forest.Fit(in, column(Y, j), opts.Forest)
			if err != nil {
				return fmt.Errorf("label %d: %w", j, err)
			}
			forests[j] = f
			slog.Debug("label fitted", "label", j, "classes", len(f.Classes), "elapsed", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Classifier{Forests: forests}, nil
}

func column(Y [][]int, j int) []int {
	out := make([]int, len(Y))
	for i, row := range Y {
		out[i] = row[j]
	}
	return out
}

// NumLabels returns the number of label columns the classifier predicts.
func (c *Classifier) NumLabels() int {
	return len(c.Forests)
}

// Predict returns one decision per label for every row of X.
func (c *Classifier) Predict(X features.Matrix) [][]int {
	out := make([][]int, X.Len())
	for i, row := range X.Rows {
		decisions := make([]int, len(c.Forests))
		for j, f := range c.Forests {
			decisions[j] = f.Predict(row)
		}
		out[i] = decisions
	}
	return out
}
