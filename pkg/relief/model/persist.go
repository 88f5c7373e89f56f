package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognicore/relief/pkg/relief/features"
	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/multioutput"
)

// formatVersion is bumped whenever the artifact layout changes.
const formatVersion = 1

type artifact struct {
	Version    int                     `json:"version"`
	Meta       Metadata                `json:"meta"`
	Tokenizer  ingest.Spec             `json:"tokenizer"`
	Features   features.State          `json:"features"`
	Classifier *multioutput.Classifier `json:"classifier"`
}

// Save writes the model to path as a single JSON document. The file is
// written to a temporary sibling first and renamed into place.
func (m *Model) Save(path string) error {
	state, err := m.pipeline.State()
	if err != nil {
		return err
	}
	data, err := json.Marshal(artifact{
		Version:    formatVersion,
		Meta:       m.Meta,
		Tokenizer:  m.tokenizer.Spec(),
		Features:   state,
		Classifier: m.clf,
	})
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install model file: %w", err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if a.Version != formatVersion {
		return nil, fmt.Errorf("model %s has format version %d, want %d: %w",
			path, a.Version, formatVersion, internalerr.ErrInvalidInput)
	}
	if a.Classifier == nil || a.Classifier.NumLabels() == 0 {
		return nil, fmt.Errorf("model %s has no classifier: %w", path, internalerr.ErrInvalidInput)
	}

	tok, err := ingest.FromSpec(a.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("restore tokenizer: %w", err)
	}
	pipeline, err := features.Restore(tok, a.Features)
	if err != nil {
		return nil, err
	}

	return &Model{
		Meta:      a.Meta,
		tokenizer: tok,
		pipeline:  pipeline,
		clf:       a.Classifier,
	}, nil
}
