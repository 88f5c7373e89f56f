package lexicon

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps inflected surface forms to their dictionary base form (lemma).
//
// Example: "was" -> "wa", "has" -> "ha", "children" -> "child"
//
// Forms that are not registered are their own lemma, so a lexicon never
// fails a lookup.
type Lexicon struct {
	// lemma -> all forms (including the lemma itself)
	forms map[string][]string

	// form -> lemma
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		forms:        make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadFromYAML loads lemma mappings from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - lemma: a
//	    forms: [as]
//	  - lemma: child
//	    forms: [children]
//
// Lemmas and forms are lowercased.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a lexicon from YAML bytes in the LoadFromYAML format.
func Parse(data []byte) (*Lexicon, error) {
	var config struct {
		Lemmas []struct {
			Lemma string   `yaml:"lemma"`
			Forms []string `yaml:"forms"`
		} `yaml:"lemmas"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range config.Lemmas {
		if strings.TrimSpace(entry.Lemma) == "" {
			continue
		}
		lex.AddLemma(entry.Lemma, entry.Forms)
	}
	return lex, nil
}

// AddLemma registers forms that reduce to lemma. The lemma is always one of
// its own forms. Re-adding a lemma replaces its previous forms.
func (l *Lexicon) AddLemma(lemma string, forms []string) {
	lemma = strings.ToLower(strings.TrimSpace(lemma))

	if old, exists := l.forms[lemma]; exists {
		for _, f := range old {
			if l.reverseIndex[f] == lemma {
				delete(l.reverseIndex, f)
			}
		}
	}

	normalized := make([]string, 0, len(forms)+1)
	seen := map[string]bool{lemma: true}
	normalized = append(normalized, lemma)
	for _, f := range forms {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		normalized = append(normalized, f)
		seen[f] = true
	}

	l.forms[lemma] = normalized
	for _, f := range normalized {
		l.reverseIndex[f] = lemma
	}
}

// Lemma returns the base form of token, or token itself when unknown.
//
// Examples:
//   - Lemma("was") -> "wa"
//   - Lemma("flood") -> "flood"
func (l *Lexicon) Lemma(token string) string {
	if lemma, ok := l.reverseIndex[token]; ok {
		return lemma
	}
	lower := strings.ToLower(token)
	if lemma, ok := l.reverseIndex[lower]; ok {
		return lemma
	}
	return lower
}

// Forms returns every registered form of the lemma that token reduces to.
// Unknown tokens return a slice containing only the token.
func (l *Lexicon) Forms(token string) []string {
	lemma := l.Lemma(token)
	if forms, ok := l.forms[lemma]; ok {
		out := make([]string, len(forms))
		copy(out, forms)
		return out
	}
	return []string{lemma}
}

// Has reports whether token is a registered form.
func (l *Lexicon) Has(token string) bool {
	_, ok := l.reverseIndex[strings.ToLower(token)]
	return ok
}

// Lemmas returns all lemmas in lexicographic order.
func (l *Lexicon) Lemmas() []string {
	out := make([]string, 0, len(l.forms))
	for lemma := range l.forms {
		out = append(out, lemma)
	}
	sort.Strings(out)
	return out
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() LexiconStats {
	total := 0
	for _, forms := range l.forms {
		total += len(forms)
	}
	return LexiconStats{
		Lemmas:     len(l.forms),
		TotalForms: total,
	}
}

// LexiconStats holds statistics about lexicon contents.
type LexiconStats struct {
	Lemmas     int // Number of lemma groups
	TotalForms int // Total number of forms across all groups, lemmas included
}

// Groups returns a copy of every lemma with its forms.
func (l *Lexicon) Groups() map[string][]string {
	out := make(map[string][]string, len(l.forms))
	for lemma, forms := range l.forms {
		cp := make([]string, len(forms))
		copy(cp, forms)
		out[lemma] = cp
	}
	return out
}
