// Package punct implements the whitespace and punctuation tokenizer used by the NER converters.
//
// Text is split on whitespace, and a punctuation character is split off into its own token when it
// is followed by whitespace or by the end of the text. Punctuation inside a token ("a.b", "x-y",
// "foo(1)bar") is left untouched:
//
//	tok := punct.New(punct.DefaultPunctuation)
//	api.Words(tok.Tokenize("value, next.")) // ["value" "," "next" "."]
package punct

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gomlx/go-nerconv/tokenizers/api"
)

// DefaultPunctuation is the set of characters split off the end of a word.
const DefaultPunctuation = `.,!?\-/()[]{};:`

// Tokenizer implements api.Tokenizer. It is immutable after New and safe for concurrent use.
type Tokenizer struct {
	punctuation string
}

// Compile time assert that punct.Tokenizer implements api.Tokenizer interface.
var _ api.Tokenizer = &Tokenizer{}

// New creates a tokenizer that splits off the characters in punctuation.
// An empty punctuation set yields a plain whitespace tokenizer.
func New(punctuation string) *Tokenizer {
	return &Tokenizer{punctuation: punctuation}
}

// IsPunctuation reports whether r is one of the characters this tokenizer splits off.
func (t *Tokenizer) IsPunctuation(r rune) bool {
	return strings.ContainsRune(t.punctuation, r)
}

// Tokenize splits text into tokens, with the byte span of each one.
func (t *Tokenizer) Tokenize(text string) []api.Token {
	var tokens []api.Token
	start := -1
	emit := func(end int) {
		if start >= 0 && end > start {
			tokens = append(tokens, api.Token{
				Text: text[start:end],
				Span: api.TokenSpan{Start: start, End: end},
			})
		}
		start = -1
	}

	for pos := 0; pos < len(text); {
		r, size := utf8.DecodeRuneInString(text[pos:])
		next := pos + size
		switch {
		case unicode.IsSpace(r):
			emit(pos)
		case t.IsPunctuation(r) && spaceOrEnd(text, next):
			// Boundary right before the punctuation; the following space closes it.
			emit(pos)
			start = pos
		case start < 0:
			start = pos
		}
		pos = next
	}
	emit(len(text))
	return tokens
}

// spaceOrEnd reports whether text has whitespace at pos, or pos is past its end.
func spaceOrEnd(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return unicode.IsSpace(r)
}
