// Package model ties a fitted feature pipeline to a fitted multi-output
// classifier and persists the pair as a single artifact.
package model

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/relief/pkg/relief/features"
	"github.com/cognicore/relief/pkg/relief/forest"
	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/multioutput"
)

// Params are the tunable hyperparameters of a model.
type Params struct {
	MaxFeatures int           `json:"max_features" yaml:"max_features"`
	Forest      forest.Config `json:"forest" yaml:"forest"`
}

// DefaultParams returns an unlimited vocabulary and the default forest.
func DefaultParams() Params {
	return Params{Forest: forest.DefaultConfig()}
}

// String renders the params compactly for logs.
func (p Params) String() string {
	return fmt.Sprintf("max_features=%d n_estimators=%d criterion=%s max_depth=%d",
		p.MaxFeatures, p.Forest.NTrees, p.Forest.Criterion, p.Forest.MaxDepth)
}

// Validate checks the params.
func (p Params) Validate() error {
	if p.MaxFeatures < 0 {
		return fmt.Errorf("max_features must be >= 0, got %d: %w", p.MaxFeatures, internalerr.ErrInvalidConfig)
	}
	return p.Forest.Validate()
}

// Metadata describes how and when a model was trained.
type Metadata struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	Categories []string  `json:"categories,omitempty"`
	Params     Params    `json:"params"`
	CVScore    *float64  `json:"cv_score,omitempty"`
}

// Model is a fitted tokenizer → TF-IDF → forest chain. It is immutable once
// returned by Fit or Load.
type Model struct {
	Meta Metadata

	tokenizer *ingest.Tokenizer
	pipeline  *features.Pipeline
	clf       *multioutput.Classifier
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a time-ordered identifier for a training run.
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Fit fits the feature pipeline on texts and one forest per label column of
// Y on the resulting features.
func Fit(ctx context.Context, tok *ingest.Tokenizer, texts []string, Y [][]int, params Params, workers int) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := multioutput.CheckLabels(Y, len(texts)); err != nil {
		return nil, err
	}

	pipeline := features.NewPipeline(tok, params.MaxFeatures)
	X, err := pipeline.FitTransform(texts)
	if err != nil {
		return nil, fmt.Errorf("fit features: %w", err)
	}

	clf, err := multioutput.Fit(ctx, X, Y, multioutput.Options{Forest: params.Forest, Workers: workers})
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	return &Model{
		Meta: Metadata{
			RunID:     NewRunID(),
			CreatedAt: time.Now().UTC(),
			Params:    params,
		},
		tokenizer: tok,
		pipeline:  pipeline,
		clf:       clf,
	}, nil
}

// NumLabels returns the number of labels the model predicts.
func (m *Model) NumLabels() int {
	return m.clf.NumLabels()
}

// Vocabulary returns the fitted vocabulary in column order.
func (m *Model) Vocabulary() []string {
	return m.pipeline.Vocabulary()
}

// Transform maps texts to the model's feature space.
func (m *Model) Transform(texts []string) (features.Matrix, error) {
	return m.pipeline.Transform(texts)
}

// PredictFeatures predicts labels for an already transformed matrix.
func (m *Model) PredictFeatures(X features.Matrix) [][]int {
	return m.clf.Predict(X)
}

// Predict returns one decision per label for every text.
func (m *Model) Predict(texts []string) ([][]int, error) {
	X, err := m.Transform(texts)
	if err != nil {
		return nil, err
	}
	return m.PredictFeatures(X), nil
}
