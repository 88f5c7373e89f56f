package selection

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/metrics"
	"github.com/cognicore/relief/pkg/relief/model"
	"github.com/cognicore/relief/pkg/relief/multioutput"
)

// DefaultFolds is the cross-validation fold count.
const DefaultFolds = 3

// Estimator fits a model on messages and their label rows.
type Estimator interface {
	Fit(ctx context.Context, texts []string, Y [][]int) (*model.Model, error)
}

// Direct fits a single model with fixed params.
type Direct struct {
	Tokenizer *ingest.Tokenizer
	Params    model.Params
	Workers   int
}

// Fit implements Estimator.
func (d *Direct) Fit(ctx context.Context, texts []string, Y [][]int) (*model.Model, error) {
	return model.Fit(ctx, d.Tokenizer, texts, Y, d.Params, d.Workers)
}

// Result is the cross-validated score of one candidate.
type Result struct {
	Params model.Params
	Scores []float64
	Mean   float64
}

// GridSearch scores every grid candidate with k-fold cross-validation and
// refits the best one on all rows.
type GridSearch struct {
	Tokenizer *ingest.Tokenizer
	Base      model.Params
	Grid      Grid
	Folds     int
	Workers   int

	results []Result
	best    int
}

// Fit implements Estimator. Candidate/fold fits run concurrently on at most
// Workers goroutines, each fitting its labels sequentially.
func (g *GridSearch) Fit(ctx context.Context, texts []string, Y [][]int) (*model.Model, error) {
	if err := multioutput.CheckLabels(Y, len(texts)); err != nil {
		return nil, err
	}
	if err := g.Grid.Validate(); err != nil {
		return nil, err
	}
	k := g.Folds
	if k == 0 {
		k = DefaultFolds
	}
	folds, err := KFold(len(texts), k)
	if err != nil {
		return nil, err
	}
	workers := g.Workers
	if workers < 1 {
		workers = multioutput.DefaultWorkers
	}

	candidates := g.Grid.Combinations(g.Base)
	scores := make([][]float64, len(candidates))
	for i := range scores {
		scores[i] = make([]float64, len(folds))
	}

	slog.Info("grid search started", "candidates", len(candidates), "folds", len(folds), "fits", len(candidates)*len(folds))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for c, params := range candidates {
		for f, fold := range folds {
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				score, err := g.score(egCtx, params, fold, texts, Y)
				if err != nil {
					if egCtx.Err() != nil {
						return fmt.Errorf("candidate %s fold %d: %w", params, f, err)
					}
					// A fold that cannot be fitted disqualifies its candidate only.
					slog.Warn("fold failed", "params", params.String(), "fold", f, "error", err)
					scores[c][f] = math.NaN()
					return nil
				}
				scores[c][f] = score
				slog.Debug("fold scored", "params", params.String(), "fold", f, "score", score)
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.results = make([]Result, len(candidates))
	g.best = 0
	for c, params := range candidates {
		var sum float64
		for _, s := range scores[c] {
			sum += s
		}
		g.results[c] = Result{Params: params, Scores: scores[c], Mean: sum / float64(len(folds))}
		slog.Info("grid candidate", "candidate", c, "params", params.String(), "mean_score", g.results[c].Mean)
	}
	best, ok := bestCandidate(g.results)
	if !ok {
		return nil, fmt.Errorf("no grid candidate could be scored: %w", internalerr.ErrInvalidInput)
	}
	g.best = best

	winner := g.results[g.best]
	slog.Info("grid search finished", "best_params", winner.Params.String(), "best_score", winner.Mean)

	direct := &Direct{Tokenizer: g.Tokenizer, Params: winner.Params, Workers: workers}
	m, err := direct.Fit(ctx, texts, Y)
	if err != nil {
		return nil, fmt.Errorf("refit best candidate: %w", err)
	}
	score := winner.Mean
	m.Meta.CVScore = &score
	return m, nil
}

// bestCandidate returns the index of the highest mean score, keeping the
// earliest candidate on ties. Candidates with a NaN mean are skipped.
func bestCandidate(results []Result) (int, bool) {
	best := -1
	for i, r := range results {
		if math.IsNaN(r.Mean) {
			continue
		}
		if best < 0 || r.Mean > results[best].Mean {
			best = i
		}
	}
	return best, best >= 0
}

func (g *GridSearch) score(ctx context.Context, params model.Params, fold Fold, texts []string, Y [][]int) (float64, error) {
	m, err := model.Fit(ctx, g.Tokenizer, pick(texts, fold.Train), pick(Y, fold.Train), params, 1)
	if err != nil {
		return 0, err
	}
	pred, err := m.Predict(pick(texts, fold.Test))
	if err != nil {
		return 0, err
	}
	return metrics.SubsetAccuracy(pick(Y, fold.Test), pred), nil
}

// Results returns every candidate's scores in grid order.
func (g *GridSearch) Results() []Result {
	return g.results
}

// BestParams returns the winning candidate. It is the zero value before Fit.
func (g *GridSearch) BestParams() model.Params {
	if len(g.results) == 0 {
		return model.Params{}
	}
	return g.results[g.best].Params
}

// BestScore returns the winning candidate's mean score.
func (g *GridSearch) BestScore() float64 {
	if len(g.results) == 0 {
		return 0
	}
	return g.results[g.best].Mean
}

// Build returns a GridSearch when search is set and a Direct estimator
// otherwise.
func Build(search bool, tok *ingest.Tokenizer, base model.Params, grid Grid, folds, workers int) (Estimator, error) {
	if tok == nil {
		return nil, fmt.Errorf("build estimator: no tokenizer: %w", internalerr.ErrInvalidConfig)
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if !search {
		return &Direct{Tokenizer: tok, Params: base, Workers: workers}, nil
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return &GridSearch{Tokenizer: tok, Base: base, Grid: grid, Folds: folds, Workers: workers}, nil
}

func pick[T any](s []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}
