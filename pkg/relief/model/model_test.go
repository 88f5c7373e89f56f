package model

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cognicore/relief/pkg/relief/forest"
	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
)

var corpus = []string{
	"we need water and food in the camp",
	"the bridge has collapsed after the flood",
	"medical help is needed for the injured",
	"water is rising in the flood zone",
	"food supplies have not arrived",
	"there are injured people near the bridge",
	"the flood destroyed the road",
	"please send water",
}

var labels = [][]int{
	{1, 0}, {0, 1}, {0, 0}, {1, 1}, {1, 0}, {0, 0}, {0, 1}, {1, 0},
}

func testTokenizer() *ingest.Tokenizer {
	tok := ingest.NewTokenizer([]string{"the", "and", "in", "is", "are", "for", "have", "has", "not", "after", "near", "there"})
	tok.SetPolicy(ingest.DiscardStopwords)
	return tok
}

func testParams() Params {
	return Params{
		MaxFeatures: 50,
		Forest:      forest.Config{NTrees: 8, Criterion: forest.Gini, Seed: 42},
	}
}

func TestFitPredictShape(t *testing.T) {
	m, err := Fit(context.Background(), testTokenizer(), corpus, labels, testParams(), 2)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.NumLabels() != 2 {
		t.Fatalf("NumLabels = %d, want 2", m.NumLabels())
	}
	if m.Meta.RunID == "" {
		t.Error("RunID should be set")
	}

	pred, err := m.Predict([]string{"water", "unknown words only", ""})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(pred) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(pred))
	}
	for _, row := range pred {
		if len(row) != 2 {
			t.Errorf("expected 2 labels per row, got %d", len(row))
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, err := Fit(context.Background(), testTokenizer(), corpus, labels, testParams(), 2)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	m.Meta.Categories = []string{"water", "infrastructure"}

	path := filepath.Join(t.TempDir(), "classifier.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	heldOut := []string{
		"water and food needed",
		"the bridge flood",
		"injured medical",
		"nothing relevant here",
	}
	X, err := m.Transform(heldOut)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := m.PredictFeatures(X)
	if got := loaded.PredictFeatures(X); !reflect.DeepEqual(got, want) {
		t.Errorf("loaded predictions %v differ from %v", got, want)
	}

	got, err := loaded.Predict(heldOut)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("loaded end-to-end predictions %v differ from %v", got, want)
	}

	if !reflect.DeepEqual(loaded.Meta.Categories, m.Meta.Categories) {
		t.Errorf("categories not restored: %v", loaded.Meta.Categories)
	}
	if loaded.Meta.RunID != m.Meta.RunID {
		t.Errorf("run id not restored")
	}
	if !reflect.DeepEqual(loaded.Vocabulary(), m.Vocabulary()) {
		t.Error("vocabulary not restored")
	}
}

func TestSaveFailsOnMissingDir(t *testing.T) {
	m, err := Fit(context.Background(), testTokenizer(), corpus, labels, testParams(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Save(filepath.Join(t.TempDir(), "missing", "model.json")); err == nil {
		t.Error("Save into a missing directory should fail")
	}
}

func TestLoadRejectsBadArtifacts(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("Load of a missing file should fail")
	}

	garbage := filepath.Join(dir, "garbage.json")
	os.WriteFile(garbage, []byte("not json"), 0644)
	if _, err := Load(garbage); err == nil {
		t.Error("Load of garbage should fail")
	}

	wrongVersion := filepath.Join(dir, "v0.json")
	os.WriteFile(wrongVersion, []byte(`{"version":0}`), 0644)
	if _, err := Load(wrongVersion); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for version mismatch, got %v", err)
	}
}

func TestFitRejectsBadParams(t *testing.T) {
	params := testParams()
	params.MaxFeatures = -1
	_, err := Fit(context.Background(), testTokenizer(), corpus, labels, params, 1)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	_, err = Fit(context.Background(), testTokenizer(), corpus, nil, testParams(), 1)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty labels, got %v", err)
	}
}

func TestNewRunIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if seen[id] {
			t.Fatalf("duplicate run id %s", id)
		}
		seen[id] = true
	}
}
