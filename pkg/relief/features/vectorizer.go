package features

import (
	"fmt"
	"sort"

	"github.com/cognicore/relief/pkg/relief/analytics"
	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// Tokenizer turns one message into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// CountVectorizer learns a vocabulary and maps messages to term-count rows.
type CountVectorizer struct {
	tokenizer   Tokenizer
	maxFeatures int
	terms       []string
	vocabulary  map[string]int
}

// NewCountVectorizer creates a vectorizer keeping at most maxFeatures terms
// (0 keeps all).
func NewCountVectorizer(tok Tokenizer, maxFeatures int) *CountVectorizer {
	return &CountVectorizer{tokenizer: tok, maxFeatures: maxFeatures}
}

// Fit learns the vocabulary: the maxFeatures most frequent corpus terms,
// with columns assigned in lexicographic term order.
func (v *CountVectorizer) Fit(corpus []string) error {
	_, err := v.fit(v.tokenizeAll(corpus))
	return err
}

func (v *CountVectorizer) fit(docs [][]string) (analytics.Stats, error) {
	a := analytics.NewAnalyzer()
	for _, tokens := range docs {
		a.Process(tokens)
	}
	stats := a.Snapshot()

	terms := stats.TopTerms(v.maxFeatures)
	if len(terms) == 0 {
		return stats, fmt.Errorf("empty vocabulary: %w", internalerr.ErrInvalidInput)
	}
	sort.Strings(terms)
	v.setTerms(terms)
	return stats, nil
}

func (v *CountVectorizer) setTerms(terms []string) {
	v.terms = terms
	v.vocabulary = make(map[string]int, len(terms))
	for i, t := range terms {
		v.vocabulary[t] = i
	}
}

// Transform maps each message to a row of raw term counts. Tokens outside
// the vocabulary are ignored.
func (v *CountVectorizer) Transform(corpus []string) (Matrix, error) {
	if v.vocabulary == nil {
		return Matrix{}, fmt.Errorf("count vectorizer: %w", internalerr.ErrNotFitted)
	}
	return v.count(v.tokenizeAll(corpus)), nil
}

func (v *CountVectorizer) count(docs [][]string) Matrix {
	m := Matrix{Rows: make([]Vector, len(docs)), Cols: len(v.terms)}
	for i, tokens := range docs {
		counts := make(map[int]float64)
		for _, tok := range tokens {
			if j, ok := v.vocabulary[tok]; ok {
				counts[j]++
			}
		}
		row := Vector{
			Indices: make([]int, 0, len(counts)),
			Values:  make([]float64, 0, len(counts)),
		}
		for j := range counts {
			row.Indices = append(row.Indices, j)
		}
		sort.Ints(row.Indices)
		for _, j := range row.Indices {
			row.Values = append(row.Values, counts[j])
		}
		m.Rows[i] = row
	}
	return m
}

func (v *CountVectorizer) tokenizeAll(corpus []string) [][]string {
	docs := make([][]string, len(corpus))
	for i, text := range corpus {
		docs[i] = v.tokenizer.Tokenize(text)
	}
	return docs
}

// Vocabulary returns the learned terms in column order.
func (v *CountVectorizer) Vocabulary() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// MaxFeatures returns the vocabulary cap (0 = unlimited).
func (v *CountVectorizer) MaxFeatures() int {
	return v.maxFeatures
}
