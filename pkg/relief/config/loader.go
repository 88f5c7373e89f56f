package config

import (
	"fmt"

	"github.com/cognicore/relief/pkg/relief/ingest"
	"github.com/cognicore/relief/pkg/relief/lexicon"
	"github.com/cognicore/relief/pkg/relief/resources"
	"github.com/cognicore/relief/pkg/relief/stoplist"
)

// Loader loads the tokenizer resources and constructs the tokenizer.
// Empty paths fall back to the embedded English resources.
type Loader struct {
	StoplistPath string
	LexiconPath  string
	Policy       ingest.StopwordPolicy
	FoldAccents  bool
}

// Components holds all loaded configuration components
type Components struct {
	Tokenizer *ingest.Tokenizer
	Stoplist  *stoplist.Manager
	Lexicon   *lexicon.Lexicon
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	var (
		sl  *Stoplist
		err error
	)
	if l.StoplistPath != "" {
		sl, err = LoadStoplist(l.StoplistPath)
	} else {
		sl, err = ParseStoplist(resources.Stopwords())
	}
	if err != nil {
		return nil, fmt.Errorf("load stoplist: %w", err)
	}
	comp.Stoplist = stoplist.NewManager(sl.Terms)

	if l.LexiconPath != "" {
		comp.Lexicon, err = LoadLexicon(l.LexiconPath)
	} else {
		comp.Lexicon, err = lexicon.Parse(resources.Lemmas())
	}
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}

	comp.Tokenizer = ingest.NewTokenizerFromStoplist(comp.Stoplist)
	comp.Tokenizer.SetLexicon(comp.Lexicon)
	comp.Tokenizer.SetPolicy(l.Policy)
	comp.Tokenizer.SetFoldAccents(l.FoldAccents)

	return comp, nil
}
