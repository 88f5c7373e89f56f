package ingest

import (
	"fmt"
	"sort"

	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/lexicon"
	"github.com/cognicore/relief/pkg/relief/stoplist"
)

// Spec is the serializable configuration of a Tokenizer, stored alongside a
// fitted model so the model tokenizes exactly as it did during training.
type Spec struct {
	Stopwords   []string            `json:"stopwords"`
	Lemmas      map[string][]string `json:"lemmas,omitempty"`
	Policy      string              `json:"policy"`
	FoldAccents bool                `json:"fold_accents,omitempty"`
}

// Spec exports the tokenizer configuration.
func (t *Tokenizer) Spec() Spec {
	return Spec{
		Stopwords:   t.stopwords.All(),
		Lemmas:      t.lexicon.Groups(),
		Policy:      t.policy.String(),
		FoldAccents: t.foldAccents,
	}
}

// FromSpec rebuilds a tokenizer from an exported configuration.
func FromSpec(s Spec) (*Tokenizer, error) {
	policy, ok := ParseStopwordPolicy(s.Policy)
	if !ok {
		return nil, fmt.Errorf("stopword policy %q: %w", s.Policy, internalerr.ErrInvalidConfig)
	}

	lex := lexicon.New()
	lemmas := make([]string, 0, len(s.Lemmas))
	for lemma := range s.Lemmas {
		lemmas = append(lemmas, lemma)
	}
	sort.Strings(lemmas)
	for _, lemma := range lemmas {
		lex.AddLemma(lemma, s.Lemmas[lemma])
	}

	t := NewTokenizerFromStoplist(stoplist.NewManager(s.Stopwords))
	t.SetLexicon(lex)
	t.SetPolicy(policy)
	t.SetFoldAccents(s.FoldAccents)
	return t, nil
}
