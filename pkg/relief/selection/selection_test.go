package selection

import (
	"context"
	"errors"
	"flag"
	"io"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/cognicore/relief/pkg/relief/forest"
	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/model"
)

func TestDefaultGrid(t *testing.T) {
	g := DefaultGrid()
	if g.Size() != 36 {
		t.Fatalf("Size = %d, want 36", g.Size())
	}
	combos := g.Combinations(model.DefaultParams())
	if len(combos) != 36 {
		t.Fatalf("expected 36 combinations, got %d", len(combos))
	}

	first, second, last := combos[0], combos[1], combos[35]
	if first.Forest.Criterion != forest.Gini || first.Forest.MaxDepth != 4 || first.Forest.NTrees != 50 || first.MaxFeatures != 5000 {
		t.Errorf("unexpected first combination %s", first)
	}
	if second.MaxFeatures != 10000 || second.Forest.NTrees != 50 {
		t.Errorf("max_features should vary fastest, got %s", second)
	}
	if last.Forest.Criterion != forest.Entropy || last.Forest.MaxDepth != 10 || last.Forest.NTrees != 150 || last.MaxFeatures != 10000 {
		t.Errorf("unexpected last combination %s", last)
	}
	if first.Forest.Seed != 42 {
		t.Errorf("seed should come from base, got %d", first.Forest.Seed)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("default grid invalid: %v", err)
	}
}

func TestGridValidate(t *testing.T) {
	g := DefaultGrid()
	g.NTrees = nil
	if err := g.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("empty axis: got %v", err)
	}

	g = DefaultGrid()
	g.Criterion = []forest.Criterion{"mse"}
	if err := g.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("bad criterion: got %v", err)
	}
}

func TestKFold(t *testing.T) {
	folds, err := KFold(10, 3)
	if err != nil {
		t.Fatal(err)
	}
	sizes := []int{4, 3, 3}
	next := 0
	for i, f := range folds {
		if len(f.Test) != sizes[i] {
			t.Errorf("fold %d has %d test rows, want %d", i, len(f.Test), sizes[i])
		}
		if len(f.Train)+len(f.Test) != 10 {
			t.Errorf("fold %d does not cover all rows", i)
		}
		for _, r := range f.Test {
			if r != next {
				t.Errorf("fold %d test rows are not contiguous: %v", i, f.Test)
				break
			}
			next++
		}
	}

	if _, err := KFold(10, 1); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("k=1: got %v", err)
	}
	if _, err := KFold(2, 3); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("n<k: got %v", err)
	}
}

func TestTrainTestSplit(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	train, test, err := TrainTestSplit(101, 0.2, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(test) != 21 || len(train) != 80 {
		t.Fatalf("split sizes = %d/%d, want 80/21", len(train), len(test))
	}

	all := append(append([]int{}, train...), test...)
	sort.Ints(all)
	for i, v := range all {
		if v != i {
			t.Fatalf("split is not a partition of 0..100: %v", all)
		}
	}

	_, test2, _ := TrainTestSplit(101, 0.2, rand.New(rand.NewPCG(1, 2)))
	for i := range test {
		if test[i] != test2[i] {
			t.Fatal("same seed should give the same split")
		}
	}

	for _, size := range []float64{0, 1, -0.5} {
		if _, _, err := TrainTestSplit(10, size, rng); !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("test size %v: got %v", size, err)
		}
	}
	if _, _, err := TrainTestSplit(1, 0.5, rng); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("single row: got %v", err)
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"yes", true, false},
		{"Y", true, false},
		{" TRUE ", true, false},
		{"no", false, false},
		{"n", false, false},
		{"False", false, false},
		{"maybe", false, true},
		{"", false, true},
	}
	for _, tt := range tests {
		got, err := ParseChoice(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseChoice(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestChoiceFlag(t *testing.T) {
	var c Choice
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Var(&c, "search", "")

	if err := fs.Parse([]string{"-search"}); err != nil || !c {
		t.Errorf("bare flag: %v, %v", c, err)
	}
	if err := fs.Parse([]string{"-search=no"}); err != nil || c {
		t.Errorf("-search=no: %v, %v", c, err)
	}
	if err := fs.Parse([]string{"-search=perhaps"}); err == nil {
		t.Error("invalid value should fail to parse")
	}
}

var corpus = []string{
	"water needed urgently",
	"we need clean water",
	"bridge collapsed road blocked",
	"road closed after storm",
	"send water and food",
	"food shortage in village",
	"the road is flooded",
	"drinking water please",
	"storm damaged bridge",
	"no food since monday",
	"water tank empty",
	"road to hospital blocked",
}

var labels = [][]int{
	{1, 0}, {1, 0}, {0, 1}, {0, 1}, {1, 0}, {0, 0},
	{0, 1}, {1, 0}, {0, 1}, {0, 0}, {1, 0}, {0, 1},
}

func testTokenizer() *ingest.Tokenizer {
	tok := ingest.NewTokenizer([]string{"the", "and", "in", "is", "to", "we", "no"})
	tok.SetPolicy(ingest.DiscardStopwords)
	return tok
}

func smallGrid() Grid {
	return Grid{
		MaxFeatures: []int{5, 0},
		NTrees:      []int{5},
		Criterion:   []forest.Criterion{forest.Gini},
		MaxDepth:    []int{1, 0},
	}
}

func TestGridSearchFit(t *testing.T) {
	base := model.Params{Forest: forest.Config{NTrees: 5, Criterion: forest.Gini, Seed: 42}}
	est, err := Build(true, testTokenizer(), base, smallGrid(), 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	gs, ok := est.(*GridSearch)
	if !ok {
		t.Fatalf("Build(true) returned %T", est)
	}

	m, err := gs.Fit(context.Background(), corpus, labels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	results := gs.Results()
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if len(r.Scores) != 3 {
			t.Errorf("expected 3 fold scores, got %d", len(r.Scores))
		}
		if r.Mean < 0 || r.Mean > 1 {
			t.Errorf("mean score out of range: %v", r.Mean)
		}
		if r.Mean > gs.BestScore() {
			t.Errorf("result %v beats best score %v", r.Mean, gs.BestScore())
		}
	}
	if m.Meta.Params != gs.BestParams() {
		t.Errorf("refit params %s differ from best %s", m.Meta.Params, gs.BestParams())
	}
	if m.Meta.CVScore == nil || *m.Meta.CVScore != gs.BestScore() {
		t.Errorf("CVScore not recorded: %v", m.Meta.CVScore)
	}

	pred, err := m.Predict(corpus)
	if err != nil {
		t.Fatal(err)
	}
	if len(pred) != len(corpus) || len(pred[0]) != 2 {
		t.Errorf("prediction shape %dx%d", len(pred), len(pred[0]))
	}
}

func TestGridSearchDeterministic(t *testing.T) {
	base := model.Params{Forest: forest.Config{NTrees: 5, Criterion: forest.Gini, Seed: 7}}
	run := func(workers int) []Result {
		gs := &GridSearch{Tokenizer: testTokenizer(), Base: base, Grid: smallGrid(), Folds: 3, Workers: workers}
		if _, err := gs.Fit(context.Background(), corpus, labels); err != nil {
			t.Fatal(err)
		}
		return gs.Results()
	}
	a, b := run(1), run(4)
	for i := range a {
		if a[i].Mean != b[i].Mean {
			t.Errorf("candidate %d: score %v with 1 worker, %v with 4", i, a[i].Mean, b[i].Mean)
		}
	}
}

func TestBuildDirect(t *testing.T) {
	base := model.Params{Forest: forest.Config{NTrees: 3, Criterion: forest.Entropy, Seed: 1}}
	est, err := Build(false, testTokenizer(), base, Grid{}, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := est.(*Direct); !ok {
		t.Fatalf("Build(false) returned %T", est)
	}
	m, err := est.Fit(context.Background(), corpus, labels)
	if err != nil {
		t.Fatal(err)
	}
	if m.Meta.CVScore != nil {
		t.Error("direct fit should not record a cv score")
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(false, nil, model.DefaultParams(), DefaultGrid(), 3, 1); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("nil tokenizer: got %v", err)
	}
	if _, err := Build(true, testTokenizer(), model.DefaultParams(), Grid{}, 3, 1); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("empty grid: got %v", err)
	}
}

func TestGridSearchRefitUsesCallerContext(t *testing.T) {
	base := model.Params{Forest: forest.Config{NTrees: 3, Criterion: forest.Gini, Seed: 3}}
	gs := &GridSearch{Tokenizer: testTokenizer(), Base: base, Grid: smallGrid(), Folds: 3, Workers: 2}
	m, err := gs.Fit(context.Background(), corpus, labels)
	if err != nil {
		t.Fatalf("refit after search: %v", err)
	}
	if m.Meta.CVScore == nil {
		t.Error("CVScore not recorded")
	}
}

func TestGridSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	base := model.Params{Forest: forest.Config{NTrees: 3, Criterion: forest.Gini, Seed: 3}}
	gs := &GridSearch{Tokenizer: testTokenizer(), Base: base, Grid: smallGrid(), Folds: 3, Workers: 2}
	if _, err := gs.Fit(ctx, corpus, labels); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGridSearchUnscorableFolds(t *testing.T) {
	// Rows 4..11 hold only stopwords, so the first fold trains on an empty
	// vocabulary for every candidate.
	texts := []string{
		"water needed urgently",
		"bridge collapsed road blocked",
		"send water and food",
		"road closed after storm",
		"the", "and", "in", "is", "to", "we", "no", "the and",
	}
	base := model.Params{Forest: forest.Config{NTrees: 3, Criterion: forest.Gini, Seed: 3}}
	gs := &GridSearch{Tokenizer: testTokenizer(), Base: base, Grid: smallGrid(), Folds: 3, Workers: 2}
	_, err := gs.Fit(context.Background(), texts, labels)
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	results := gs.Results()
	if len(results) != 4 {
		t.Fatalf("every candidate should still be reported, got %d", len(results))
	}
	for i, r := range results {
		if !math.IsNaN(r.Scores[0]) || !math.IsNaN(r.Mean) {
			t.Errorf("candidate %d: fold 0 = %v, mean = %v; want NaN", i, r.Scores[0], r.Mean)
		}
		if math.IsNaN(r.Scores[1]) {
			t.Errorf("candidate %d: fold 1 should have been scored", i)
		}
	}
}

func TestBestCandidate(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		means  []float64
		want   int
		wantOK bool
	}{
		{[]float64{0.2, 0.5, 0.5}, 1, true},
		{[]float64{nan, 0.1, 0.3}, 2, true},
		{[]float64{0.4, nan, 0.3}, 0, true},
		{[]float64{nan, nan}, -1, false},
		{nil, -1, false},
	}
	for _, tt := range tests {
		results := make([]Result, len(tt.means))
		for i, m := range tt.means {
			results[i].Mean = m
		}
		got, ok := bestCandidate(results)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("bestCandidate(%v) = %d, %v; want %d, %v", tt.means, got, ok, tt.want, tt.wantOK)
		}
	}
}
