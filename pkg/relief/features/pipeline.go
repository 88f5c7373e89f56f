package features

import (
	"fmt"
	"log/slog"

	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// Pipeline chains a CountVectorizer and a TfidfTransformer. Once fitted its
// vocabulary and weights never change.
type Pipeline struct {
	vect  *CountVectorizer
	tfidf *TfidfTransformer
}

// NewPipeline creates an unfitted pipeline.
func NewPipeline(tok Tokenizer, maxFeatures int) *Pipeline {
	return &Pipeline{
		vect:  NewCountVectorizer(tok, maxFeatures),
		tfidf: NewTfidfTransformer(),
	}
}

// Fit learns vocabulary and idf weights from the training corpus.
func (p *Pipeline) Fit(corpus []string) error {
	_, err := p.FitTransform(corpus)
	return err
}

// FitTransform fits on corpus and returns its feature matrix, tokenizing
// each message once.
func (p *Pipeline) FitTransform(corpus []string) (Matrix, error) {
	docs := p.vect.tokenizeAll(corpus)
	stats, err := p.vect.fit(docs)
	if err != nil {
		return Matrix{}, err
	}
	counts := p.vect.count(docs)
	p.tfidf.Fit(counts)

	slog.Debug("feature pipeline fitted",
		"docs", stats.TotalDocs,
		"distinct_terms", len(stats.TokenTF),
		"vocabulary", len(p.vect.terms),
		"max_features", p.vect.maxFeatures)

	return p.tfidf.Transform(counts)
}

// Transform maps messages to TF-IDF rows using the fitted state.
func (p *Pipeline) Transform(corpus []string) (Matrix, error) {
	counts, err := p.vect.Transform(corpus)
	if err != nil {
		return Matrix{}, err
	}
	return p.tfidf.Transform(counts)
}

// Vocabulary returns the learned terms in column order.
func (p *Pipeline) Vocabulary() []string {
	return p.vect.Vocabulary()
}

// State is the serializable form of a fitted pipeline.
type State struct {
	MaxFeatures int       `json:"max_features"`
	Terms       []string  `json:"terms"`
	IDF         []float64 `json:"idf"`
}

// State exports the fitted vocabulary and weights.
func (p *Pipeline) State() (State, error) {
	if p.vect.vocabulary == nil || p.tfidf.idf == nil {
		return State{}, fmt.Errorf("feature pipeline: %w", internalerr.ErrNotFitted)
	}
	return State{
		MaxFeatures: p.vect.maxFeatures,
		Terms:       p.vect.Vocabulary(),
		IDF:         p.tfidf.IDF(),
	}, nil
}

// Restore rebuilds a fitted pipeline from exported state.
func Restore(tok Tokenizer, s State) (*Pipeline, error) {
	if len(s.Terms) == 0 || len(s.Terms) != len(s.IDF) {
		return nil, fmt.Errorf("restore pipeline: %d terms, %d weights: %w",
			len(s.Terms), len(s.IDF), internalerr.ErrInvalidInput)
	}
	p := NewPipeline(tok, s.MaxFeatures)
	terms := make([]string, len(s.Terms))
	copy(terms, s.Terms)
	p.vect.setTerms(terms)
	idf := make([]float64, len(s.IDF))
	copy(idf, s.IDF)
	p.tfidf.idf = idf
	return p, nil
}
