// Package forest implements random-forest classification over sparse
// feature rows.
package forest

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/cognicore/relief/pkg/relief/features"
	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// Config holds the forest hyperparameters.
type Config struct {
	NTrees    int       `json:"n_estimators" yaml:"n_estimators"`
	Criterion Criterion `json:"criterion" yaml:"criterion"`
	MaxDepth  int       `json:"max_depth" yaml:"max_depth"` // 0 = unlimited
	Seed      uint64    `json:"seed" yaml:"seed"`
}

// DefaultConfig mirrors the usual random-forest defaults with a fixed seed.
func DefaultConfig() Config {
	return Config{
		NTrees:    100,
		Criterion: Gini,
		MaxDepth:  0,
		Seed:      42,
	}
}

// Validate checks the hyperparameters.
func (c Config) Validate() error {
	if c.NTrees < 1 {
		return fmt.Errorf("n_estimators must be >= 1, got %d: %w", c.NTrees, internalerr.ErrInvalidConfig)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d: %w", c.MaxDepth, internalerr.ErrInvalidConfig)
	}
	if _, err := ParseCriterion(string(c.Criterion)); err != nil {
		return err
	}
	return nil
}

// Input is a feature matrix prepared for tree growing. It is read-only and
// can be shared by concurrent fits.
type Input struct {
	X    features.Matrix
	cols []features.Column
}

// NewInput indexes X by column.
func NewInput(X features.Matrix) *Input {
	return &Input{X: X, cols: X.Columns()}
}

// Forest is a fitted ensemble for one label.
type Forest struct {
	Classes []int  `json:"classes"`
	Trees   []Tree `json:"trees"`
}

// Fit grows cfg.NTrees trees on bootstrap samples of the rows. Tree i is
// seeded from cfg.Seed, so equal inputs and configs yield equal forests.
func Fit(in *Input, y []int, cfg Config) (*Forest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := in.X.Len()
	if n == 0 {
		return nil, fmt.Errorf("fit forest: no rows: %w", internalerr.ErrInvalidConfig)
	}
	if len(y) != n {
		return nil, fmt.Errorf("fit forest: %d labels for %d rows: %w", len(y), n, internalerr.ErrInvalidConfig)
	}

	classes, encoded, err := encodeClasses(y)
	if err != nil {
		return nil, err
	}

	seeder := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	trees := make([]Tree, cfg.NTrees)
	weights := make([]float64, n)
	for t := range trees {
		rng := rand.New(rand.NewPCG(seeder.Uint64(), seeder.Uint64()))

		for i := range weights {
			weights[i] = 0
		}
		for i := 0; i < n; i++ {
			weights[rng.IntN(n)]++
		}
		rows := make([]int, 0, n)
		for i, w := range weights {
			if w > 0 {
				rows = append(rows, i)
			}
		}

		trees[t] = newBuilder(in, encoded, weights, len(classes), cfg, rng).grow(rows)
	}

	return &Forest{Classes: classes, Trees: trees}, nil
}

// encodeClasses maps labels to positions in their sorted distinct values.
func encodeClasses(y []int) ([]int, []int, error) {
	seen := make(map[int]struct{})
	for i, v := range y {
		if v < 0 {
			return nil, nil, fmt.Errorf("label %d at row %d is negative: %w", v, i, internalerr.ErrInvalidInput)
		}
		seen[v] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Ints(classes)

	pos := make(map[int]int, len(classes))
	for i, v := range classes {
		pos[v] = i
	}
	encoded := make([]int, len(y))
	for i, v := range y {
		encoded[i] = pos[v]
	}
	return classes, encoded, nil
}

// PredictProba averages the trees' leaf distributions for x, indexed like
// Classes.
func (f *Forest) PredictProba(x features.Vector) []float64 {
	proba := make([]float64, len(f.Classes))
	for i := range f.Trees {
		for c, p := range f.Trees[i].Leaf(x) {
			proba[c] += p
		}
	}
	for c := range proba {
		proba[c] /= float64(len(f.Trees))
	}
	return proba
}

// Predict returns the most probable class; ties go to the smaller class.
func (f *Forest) Predict(x features.Vector) int {
	proba := f.PredictProba(x)
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return f.Classes[best]
}
