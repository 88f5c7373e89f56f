package store

import (
	"context"
	"fmt"

	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// DefaultTable is the table written by the disaster-response ETL step.
const DefaultTable = "DisasterResponse"

// Store is the source of labeled training data.
type Store interface {
	Close() error

	// LoadDataset reads every row of table. Messages come from the
	// "message" column and categories from the fifth column onward.
	LoadDataset(ctx context.Context, table string) (Dataset, error)
}

// Dataset is a set of messages with one label row per message.
type Dataset struct {
	Messages   []string
	Labels     [][]int
	Categories []string
}

// Len returns the number of rows.
func (d Dataset) Len() int {
	return len(d.Messages)
}

// Validate checks that the dataset is non-empty and rectangular.
func (d Dataset) Validate() error {
	if len(d.Messages) == 0 {
		return fmt.Errorf("dataset has no rows: %w", internalerr.ErrInvalidInput)
	}
	if len(d.Categories) == 0 {
		return fmt.Errorf("dataset has no categories: %w", internalerr.ErrInvalidInput)
	}
	if len(d.Labels) != len(d.Messages) {
		return fmt.Errorf("dataset has %d messages but %d label rows: %w",
			len(d.Messages), len(d.Labels), internalerr.ErrInvalidInput)
	}
	for i, row := range d.Labels {
		if len(row) != len(d.Categories) {
			return fmt.Errorf("label row %d has %d values, want %d: %w",
				i, len(row), len(d.Categories), internalerr.ErrInvalidInput)
		}
	}
	return nil
}

// Subset returns the rows at idx, in idx order. Categories are shared.
func (d Dataset) Subset(idx []int) Dataset {
	out := Dataset{
		Messages:   make([]string, len(idx)),
		Labels:     make([][]int, len(idx)),
		Categories: d.Categories,
	}
	for i, j := range idx {
		out.Messages[i] = d.Messages[j]
		out.Labels[i] = d.Labels[j]
	}
	return out
}

// Clone returns a deep copy of the dataset.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Messages:   append([]string(nil), d.Messages...),
		Labels:     make([][]int, len(d.Labels)),
		Categories: append([]string(nil), d.Categories...),
	}
	for i, row := range d.Labels {
		out.Labels[i] = append([]int(nil), row...)
	}
	return out
}
