package selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// KFold partitions rows 0..n-1 into k contiguous test folds without
// shuffling. The first n%k folds hold one extra row.
func KFold(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 folds, got %d: %w", k, internalerr.ErrInvalidConfig)
	}
	if n < k {
		return nil, fmt.Errorf("cannot split %d rows into %d folds: %w", n, k, internalerr.ErrInvalidInput)
	}

	folds := make([]Fold, k)
	start := 0
	for i := range folds {
		size := n / k
		if i < n%k {
			size++
		}
		end := start + size

		test := make([]int, 0, size)
		train := make([]int, 0, n-size)
		for r := 0; r < n; r++ {
			if r >= start && r < end {
				test = append(test, r)
			} else {
				train = append(train, r)
			}
		}
		folds[i] = Fold{Train: train, Test: test}
		start = end
	}
	return folds, nil
}

// TrainTestSplit shuffles rows 0..n-1 with rng and puts the first
// ceil(testSize*n) of them in the test set. Both sets are non-empty.
func TrainTestSplit(n int, testSize float64, rng *rand.Rand) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v: %w", testSize, internalerr.ErrInvalidConfig)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("cannot split %d rows with test size %v: %w", n, testSize, internalerr.ErrInvalidInput)
	}

	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
