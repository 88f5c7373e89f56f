package analytics

import (
	"math"
	"sort"
)

// Analyzer aggregates corpus-level token statistics: how often each token
// occurs in total (term frequency) and in how many documents (document
// frequency).
type Analyzer struct {
	totalDocs int64
	tokenTF   map[string]int64
	tokenDF   map[string]int64
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		tokenTF: make(map[string]int64),
		tokenDF: make(map[string]int64),
	}
}

// Process consumes one document's tokens.
func (a *Analyzer) Process(tokens []string) {
	a.totalDocs++

	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		a.tokenTF[tok]++
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		a.tokenDF[tok]++
	}
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalDocs int64
	TokenTF   map[string]int64
	TokenDF   map[string]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	copyTF := make(map[string]int64, len(a.tokenTF))
	for tok, count := range a.tokenTF {
		copyTF[tok] = count
	}
	copyDF := make(map[string]int64, len(a.tokenDF))
	for tok, count := range a.tokenDF {
		copyDF[tok] = count
	}
	return Stats{
		TotalDocs: a.totalDocs,
		TokenTF:   copyTF,
		TokenDF:   copyDF,
	}
}

// TopTerms returns up to k tokens ranked by corpus frequency, highest first.
// Ties are broken lexicographically. k <= 0 returns every token.
func (s Stats) TopTerms(k int) []string {
	terms := make([]string, 0, len(s.TokenTF))
	for tok := range s.TokenTF {
		terms = append(terms, tok)
	}
	sort.Slice(terms, func(i, j int) bool {
		ci, cj := s.TokenTF[terms[i]], s.TokenTF[terms[j]]
		if ci != cj {
			return ci > cj
		}
		return terms[i] < terms[j]
	})
	if k > 0 && len(terms) > k {
		terms = terms[:k]
	}
	return terms
}

// SmoothIDF returns ln((1+n)/(1+df)) + 1 for token, where n is the number of
// documents. Unseen tokens get the maximum weight.
func (s Stats) SmoothIDF(token string) float64 {
	n := float64(s.TotalDocs)
	df := float64(s.TokenDF[token])
	return math.Log((1+n)/(1+df)) + 1
}
