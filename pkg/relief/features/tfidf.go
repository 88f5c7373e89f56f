package features

import (
	"fmt"
	"math"

	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// TfidfTransformer rescales term counts by smoothed inverse document
// frequency and L2-normalizes each row.
type TfidfTransformer struct {
	idf []float64
}

// NewTfidfTransformer creates an unfitted transformer.
func NewTfidfTransformer() *TfidfTransformer {
	return &TfidfTransformer{}
}

// Fit learns idf(t) = ln((1+n)/(1+df(t))) + 1 from a count matrix.
func (t *TfidfTransformer) Fit(counts Matrix) {
	df := make([]float64, counts.Cols)
	for _, row := range counts.Rows {
		for k, j := range row.Indices {
			if row.Values[k] != 0 {
				df[j]++
			}
		}
	}
	n := float64(counts.Len())
	idf := make([]float64, counts.Cols)
	for j := range idf {
		idf[j] = math.Log((1+n)/(1+df[j])) + 1
	}
	t.idf = idf
}

// Transform weights counts by idf and L2-normalizes rows. All-zero rows stay
// all zero.
func (t *TfidfTransformer) Transform(counts Matrix) (Matrix, error) {
	if t.idf == nil {
		return Matrix{}, fmt.Errorf("tfidf transformer: %w", internalerr.ErrNotFitted)
	}
	if counts.Cols != len(t.idf) {
		return Matrix{}, fmt.Errorf("tfidf transformer: %d columns, fitted on %d: %w",
			counts.Cols, len(t.idf), internalerr.ErrInvalidInput)
	}

	out := Matrix{Rows: make([]Vector, counts.Len()), Cols: counts.Cols}
	for i, row := range counts.Rows {
		values := make([]float64, len(row.Values))
		var norm float64
		for k, j := range row.Indices {
			w := row.Values[k] * t.idf[j]
			values[k] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range values {
				values[k] /= norm
			}
		}
		indices := make([]int, len(row.Indices))
		copy(indices, row.Indices)
		out.Rows[i] = Vector{Indices: indices, Values: values}
	}
	return out, nil
}

// IDF returns a copy of the fitted weights.
func (t *TfidfTransformer) IDF() []float64 {
	out := make([]float64, len(t.idf))
	copy(out, t.idf)
	return out
}
