// Package metrics scores multi-label predictions per category.
package metrics

import (
	"fmt"
	"io"
	"slices"

	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// Positive is the class whose precision, recall and F1 are reported.
const Positive = 1

// ZeroDivision decides the value of a ratio whose denominator is zero.
type ZeroDivision int

const (
	// ZeroDivisionZero reports an undefined ratio as 0.
	ZeroDivisionZero ZeroDivision = iota
	// ZeroDivisionOne reports an undefined ratio as 1.
	ZeroDivisionOne
)

func (z ZeroDivision) value() float64 {
	if z == ZeroDivisionOne {
		return 1
	}
	return 0
}

// Scores holds the binary metrics of one class.
type Scores struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// BinaryScores computes precision, recall and F1 of class positive, treating
// every other value as negative. Mismatched lengths are scored over the
// shorter prefix.
func BinaryScores(truth, pred []int, positive int, policy ZeroDivision) Scores {
	n := min(len(truth), len(pred))
	var tp, fp, fn int
	for i := 0; i < n; i++ {
		t, p := truth[i] == positive, pred[i] == positive
		switch {
		case t && p:
			tp++
		case p:
			fp++
		case t:
			fn++
		}
	}

	s := Scores{Support: tp + fn}
	s.Precision = ratio(tp, tp+fp, policy)
	s.Recall = ratio(tp, tp+fn, policy)
	if s.Precision+s.Recall == 0 {
		s.F1 = ratio(0, 0, policy)
		if tp+fp+fn > 0 {
			s.F1 = 0
		}
	} else {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

func ratio(num, den int, policy ZeroDivision) float64 {
	if den == 0 {
		return policy.value()
	}
	return float64(num) / float64(den)
}

// Report is the evaluation of one category.
type Report struct {
	Category string
	Scores
}

// Predictor predicts one decision per label for each text.
type Predictor interface {
	Predict(texts []string) ([][]int, error)
}

// Evaluate predicts texts once and scores every label column against Y.
// Reports come back in categories order.
func Evaluate(p Predictor, texts []string, Y [][]int, categories []string) ([]Report, error) {
	if len(texts) != len(Y) {
		return nil, fmt.Errorf("evaluate: %d texts but %d label rows: %w", len(texts), len(Y), internalerr.ErrInvalidInput)
	}
	pred, err := p.Predict(texts)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if len(pred) != len(Y) {
		return nil, fmt.Errorf("evaluate: %d predictions for %d rows: %w", len(pred), len(Y), internalerr.ErrInvalidInput)
	}
	for i := range Y {
		if len(Y[i]) != len(categories) || len(pred[i]) != len(categories) {
			return nil, fmt.Errorf("evaluate: row %d does not have %d labels: %w", i, len(categories), internalerr.ErrInvalidInput)
		}
	}

	reports := make([]Report, len(categories))
	truth := make([]int, len(Y))
	guess := make([]int, len(Y))
	for j, name := range categories {
		for i := range Y {
			truth[i] = Y[i][j]
			guess[i] = pred[i][j]
		}
		reports[j] = Report{Category: name, Scores: BinaryScores(truth, guess, Positive, ZeroDivisionZero)}
	}
	return reports, nil
}

// WriteReport prints one line per category.
func WriteReport(w io.Writer, reports []Report) error {
	for _, r := range reports {
		_, err := fmt.Fprintf(w, "%-25s  Precision:% 6.3f   Recall:%- 5.3f  F1 score:% 5.3f\n",
			r.Category, r.Precision, r.Recall, r.F1)
		if err != nil {
			return err
		}
	}
	return nil
}

// SubsetAccuracy is the fraction of rows whose whole label vector matches.
func SubsetAccuracy(truth, pred [][]int) float64 {
	if len(truth) == 0 {
		return 0
	}
	hits := 0
	for i := range truth {
		if i < len(pred) && slices.Equal(truth[i], pred[i]) {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
