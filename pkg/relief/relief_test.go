package relief

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/relief/pkg/relief/forest"
	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/model"
	"github.com/cognicore/relief/pkg/relief/selection"
	"github.com/cognicore/relief/pkg/relief/store"
	"github.com/cognicore/relief/pkg/relief/store/memstore"
)

var categories = []string{"water", "food", "shelter"}

// syntheticDataset builds n messages whose words reveal their labels.
func syntheticDataset(n int) store.Dataset {
	words := [][]string{
		{"water", "thirsty", "drink"},
		{"food", "hungry", "rice"},
		{"tent", "shelter", "roof"},
	}
	filler := []string{"please", "help", "us", "near", "the", "village", "today"}

	ds := store.Dataset{Categories: categories}
	for i := 0; i < n; i++ {
		var msg []string
		labels := make([]int, len(categories))
		for j := range categories {
			if (i>>j)&1 == 1 {
				labels[j] = 1
				msg = append(msg, words[j][i%len(words[j])])
			}
		}
		msg = append(msg, filler[i%len(filler)], filler[(i+3)%len(filler)])
		ds.Messages = append(ds.Messages, strings.Join(msg, " "))
		ds.Labels = append(ds.Labels, labels)
	}
	return ds
}

func testTokenizer() *ingest.Tokenizer {
	tok := ingest.NewTokenizer([]string{"the", "us"})
	tok.SetPolicy(ingest.DiscardStopwords)
	return tok
}

func testOptions(t *testing.T, st store.Store, out *bytes.Buffer) Options {
	return Options{
		Store:        st,
		Table:        store.DefaultTable,
		Tokenizer:    testTokenizer(),
		Params:       model.Params{Forest: forest.Config{NTrees: 10, Criterion: forest.Gini, Seed: 42}},
		Workers:      2,
		TestSize:     0.2,
		Seed:         7,
		DatabasePath: "data/DisasterResponse.db",
		ModelPath:    filepath.Join(t.TempDir(), "classifier.json"),
		Out:          out,
	}
}

func TestRunEndToEnd(t *testing.T) {
	st := memstore.New()
	st.Put(store.DefaultTable, syntheticDataset(100))

	var out bytes.Buffer
	opts := testOptions(t, st, &out)
	trainer := New(opts)
	defer trainer.Close()

	res, err := trainer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v\noutput:\n%s", err, out.String())
	}
	if res.Stage != StageDone {
		t.Errorf("Stage = %v, want done", res.Stage)
	}
	if res.TrainRows != 80 || res.TestRows != 20 {
		t.Errorf("split = %d/%d, want 80/20", res.TrainRows, res.TestRows)
	}

	var reportLines []string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.Contains(line, "Precision:") {
			reportLines = append(reportLines, line)
		}
	}
	if len(reportLines) != 3 {
		t.Fatalf("expected 3 report lines, got %d:\n%s", len(reportLines), out.String())
	}
	for i, line := range reportLines {
		if !strings.HasPrefix(line, categories[i]+" ") {
			t.Errorf("report line %d = %q, want category %q", i, line, categories[i])
		}
	}

	for _, want := range []string{
		"Loading data...\n    DATABASE: data/DisasterResponse.db\n",
		"Building model...\n",
		"Training model...\n",
		"Evaluating model...\n",
		"Saving model...\n    MODEL: " + opts.ModelPath + "\n",
		"Trained model saved!\n",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q", want)
		}
	}

	loaded, err := model.Load(opts.ModelPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Meta.Categories, categories) {
		t.Errorf("saved categories = %v", loaded.Meta.Categories)
	}
	queries := []string{"thirsty people", "rice and tent", "nothing"}
	want, _ := res.Model.Predict(queries)
	got, err := loaded.Predict(queries)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("loaded predictions %v differ from %v", got, want)
	}
}

func TestRunSameSeedSameSplit(t *testing.T) {
	st := memstore.New()
	st.Put(store.DefaultTable, syntheticDataset(40))

	run := func() []scoreTriple {
		var out bytes.Buffer
		res, err := New(testOptions(t, st, &out)).Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		m := make([]scoreTriple, len(res.Reports))
		for i, r := range res.Reports {
			m[i] = scoreTriple{r.Precision, r.Recall, r.F1}
		}
		return m
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Errorf("same seed gave different reports: %v vs %v", a, b)
	}
}

type scoreTriple struct{ p, r, f float64 }

func TestRunWithGridSearch(t *testing.T) {
	st := memstore.New()
	st.Put(store.DefaultTable, syntheticDataset(60))

	var out bytes.Buffer
	opts := testOptions(t, st, &out)
	opts.Search = true
	opts.Grid = selection.Grid{
		MaxFeatures: []int{0},
		NTrees:      []int{3, 5},
		Criterion:   []forest.Criterion{forest.Gini},
		MaxDepth:    []int{0},
	}

	res, err := New(opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Hint: grid search fits 2 candidates on 3 folds") {
		t.Errorf("missing grid search warning:\n%s", out.String())
	}
	if res.Model.Meta.CVScore == nil {
		t.Error("grid search should record the cross-validation score")
	}
}

func TestRunStageFailures(t *testing.T) {
	t.Run("missing table", func(t *testing.T) {
		var out bytes.Buffer
		res, err := New(testOptions(t, memstore.New(), &out)).Run(context.Background())
		if !errors.Is(err, internalerr.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if res.Stage != StageLoad {
			t.Errorf("Stage = %v, want load", res.Stage)
		}
		if strings.Contains(out.String(), "Building model") {
			t.Error("later stages should not run")
		}
	})

	t.Run("too few rows", func(t *testing.T) {
		st := memstore.New()
		st.Put(store.DefaultTable, syntheticDataset(1))
		res, err := New(testOptions(t, st, &bytes.Buffer{})).Run(context.Background())
		if err == nil || res.Stage != StageSplit {
			t.Errorf("expected split failure, got stage %v err %v", res.Stage, err)
		}
	})

	t.Run("unwritable model path", func(t *testing.T) {
		st := memstore.New()
		st.Put(store.DefaultTable, syntheticDataset(30))
		opts := testOptions(t, st, &bytes.Buffer{})
		opts.ModelPath = filepath.Join(t.TempDir(), "missing", "model.json")
		res, err := New(opts).Run(context.Background())
		if err == nil || res.Stage != StageSave {
			t.Errorf("expected save failure, got stage %v err %v", res.Stage, err)
		}
		if _, statErr := os.Stat(opts.ModelPath); statErr == nil {
			t.Error("model file should not exist")
		}
	})

	t.Run("missing tokenizer", func(t *testing.T) {
		opts := testOptions(t, memstore.New(), &bytes.Buffer{})
		opts.Tokenizer = nil
		if _, err := New(opts).Run(context.Background()); !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestStageString(t *testing.T) {
	for s, want := range map[Stage]string{StageLoad: "load", StageEvaluate: "evaluate", StageDone: "done", Stage(42): "stage(42)"} {
		if got := s.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
