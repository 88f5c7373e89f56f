// Package selection chooses between direct training and a cross-validated
// grid search over model hyperparameters.
package selection

import (
	"fmt"

	"github.com/cognicore/relief/pkg/relief/forest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/model"
)

// Grid lists candidate values per hyperparameter.
type Grid struct {
	MaxFeatures []int              `yaml:"max_features"`
	NTrees      []int              `yaml:"n_estimators"`
	Criterion   []forest.Criterion `yaml:"criterion"`
	MaxDepth    []int              `yaml:"max_depth"`
}

// DefaultGrid returns the stock search space.
func DefaultGrid() Grid {
	return Grid{
		MaxFeatures: []int{5000, 10000},
		NTrees:      []int{50, 100, 150},
		Criterion:   []forest.Criterion{forest.Gini, forest.Entropy},
		MaxDepth:    []int{4, 6, 10},
	}
}

// Size is the number of combinations in the grid.
func (g Grid) Size() int {
	return len(g.MaxFeatures) * len(g.NTrees) * len(g.Criterion) * len(g.MaxDepth)
}

// Validate checks that every axis is non-empty and every candidate is valid.
func (g Grid) Validate() error {
	if g.Size() == 0 {
		return fmt.Errorf("grid has an empty axis: %w", internalerr.ErrInvalidConfig)
	}
	for _, p := range g.Combinations(model.DefaultParams()) {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("grid candidate %s: %w", p, err)
		}
	}
	return nil
}

// Combinations expands the grid over base. Axes are enumerated in the order
// criterion, max_depth, n_estimators, max_features, the last varying
// fastest. Fields outside the grid (such as the seed) come from base.
func (g Grid) Combinations(base model.Params) []model.Params {
	out := make([]model.Params, 0, g.Size())
	for _, c := range g.Criterion {
		for _, d := range g.MaxDepth {
			for _, n := range g.NTrees {
				for _, mf := range g.MaxFeatures {
					p := base
					p.MaxFeatures = mf
					p.Forest.Criterion = c
					p.Forest.MaxDepth = d
					p.Forest.NTrees = n
					out = append(out, p)
				}
			}
		}
	}
	return out
}
