package ingest

import (
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/relief/pkg/relief/lexicon"
	"github.com/cognicore/relief/pkg/relief/stoplist"
)

// lemmaCacheSize bounds the memoized lemma lookups shared by all workers.
const lemmaCacheSize = 4096

// StopwordPolicy decides what happens to a token found in the stoplist.
type StopwordPolicy int

const (
	// RetainStopwords keeps stopwords (lemmatized) and drops every other
	// token. Previously trained models depend on this.
	RetainStopwords StopwordPolicy = iota
	// DiscardStopwords drops stopwords and keeps every other token,
	// lemmatized through the configured lexicon. Words the lexicon does not
	// list pass through unchanged.
	DiscardStopwords
)

// String implements fmt.Stringer.
func (p StopwordPolicy) String() string {
	switch p {
	case RetainStopwords:
		return "retain"
	case DiscardStopwords:
		return "discard"
	default:
		return "unknown"
	}
}

// ParseStopwordPolicy maps "retain" / "discard" to a policy. An empty string
// selects RetainStopwords.
func ParseStopwordPolicy(s string) (StopwordPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "retain":
		return RetainStopwords, true
	case "discard":
		return DiscardStopwords, true
	default:
		return RetainStopwords, false
	}
}

// splits mirrors the Penn Treebank word splitter for fused forms that
// survive alphanumeric normalization ("cannot" -> "can", "not").
var splits = map[string][2]string{
	"cannot": {"can", "not"},
	"gimme":  {"gim", "me"},
	"gonna":  {"gon", "na"},
	"gotta":  {"got", "ta"},
	"lemme":  {"lem", "me"},
	"wanna":  {"wan", "na"},
}

// Tokenizer handles text tokenization and normalization.
// A Tokenizer is safe for concurrent use once configured.
type Tokenizer struct {
	stopwords   *stoplist.Manager
	lexicon     *lexicon.Lexicon
	policy      StopwordPolicy
	foldAccents bool
	lemmas      *lru.Cache[string, string]
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	return NewTokenizerFromStoplist(stoplist.NewManager(stopwords))
}

// NewTokenizerFromStoplist creates a tokenizer around an existing stoplist.
func NewTokenizerFromStoplist(stops *stoplist.Manager) *Tokenizer {
	cache, _ := lru.New[string, string](lemmaCacheSize)
	return &Tokenizer{
		stopwords: stops,
		lexicon:   lexicon.New(),
		policy:    RetainStopwords,
		lemmas:    cache,
	}
}

// SetLexicon assigns the lemma lexicon. A nil lexicon leaves tokens as-is.
func (t *Tokenizer) SetLexicon(lex *lexicon.Lexicon) {
	if lex == nil {
		lex = lexicon.New()
	}
	t.lexicon = lex
	t.lemmas.Purge()
}

// SetPolicy selects how stopwords are treated.
func (t *Tokenizer) SetPolicy(p StopwordPolicy) {
	t.policy = p
}

// Policy returns the configured stopword policy.
func (t *Tokenizer) Policy() StopwordPolicy {
	return t.policy
}

// SetFoldAccents enables NFKD accent folding before normalization, so that
// "café" tokenizes as "cafe" instead of "caf".
func (t *Tokenizer) SetFoldAccents(on bool) {
	t.foldAccents = on
}

// Tokenize lowercases text, turns every character outside [a-z0-9] into a
// space, splits on whitespace and filters the words through the stoplist
// according to the policy. Emitted tokens are lemmatized.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(t.normalize(text)) {
		if pair, ok := splits[word]; ok {
			tokens = t.appendToken(tokens, pair[0])
			tokens = t.appendToken(tokens, pair[1])
			continue
		}
		tokens = t.appendToken(tokens, word)
	}
	return tokens
}

func (t *Tokenizer) appendToken(tokens []string, word string) []string {
	if t.stopwords.IsStop(word) != (t.policy == RetainStopwords) {
		return tokens
	}
	return append(tokens, t.lemma(word))
}

// normalize lowercases text and replaces each non-[a-z0-9] rune with one space.
func (t *Tokenizer) normalize(text string) string {
	if t.foldAccents {
		text = foldAccents(text)
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func (t *Tokenizer) lemma(word string) string {
	if l, ok := t.lemmas.Get(word); ok {
		return l
	}
	l := t.lexicon.Lemma(word)
	t.lemmas.Add(word, l)
	return l
}

// foldAccents decomposes text and drops combining marks.
func foldAccents(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, norm.NFKD.String(text))
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	t.stopwords.Add(word)
}

// RemoveStopword removes a word from the stopword list
func (t *Tokenizer) RemoveStopword(word string) {
	t.stopwords.Remove(word)
}
