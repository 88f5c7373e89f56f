package forest

import (
	"fmt"
	"math"
	"strings"

	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// Criterion measures node impurity.
type Criterion string

const (
	Gini    Criterion = "gini"
	Entropy Criterion = "entropy"
)

// ParseCriterion accepts "gini" or "entropy" in any case.
func ParseCriterion(s string) (Criterion, error) {
	switch c := Criterion(strings.ToLower(strings.TrimSpace(s))); c {
	case Gini, Entropy:
		return c, nil
	default:
		return "", fmt.Errorf("criterion %q: %w", s, internalerr.ErrInvalidConfig)
	}
}

// impurity of a weighted class histogram with the given total weight.
func (c Criterion) impurity(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	switch c {
	case Entropy:
		var h float64
		for _, n := range counts {
			if n <= 0 {
				continue
			}
			p := n / total
			h -= p * math.Log2(p)
		}
		return h
	default:
		sum := 1.0
		for _, n := range counts {
			p := n / total
			sum -= p * p
		}
		return sum
	}
}
