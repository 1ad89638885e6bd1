// Package api defines the Tokenizer API shared by the converters.
// It only holds interfaces and plain types, so converters and tokenizer implementations can
// import it without depending on each other.
package api

// TokenSpan represents the byte span of a token in the original text.
// Start and End are byte offsets (not rune offsets), suitable for slicing
// Go strings directly: originalText[span.Start:span.End].
type TokenSpan struct {
	Start int // start byte position (inclusive)
	End   int // end byte position (exclusive)
}

// Len returns the length of the span in bytes.
func (s TokenSpan) Len() int {
	return s.End - s.Start
}

// Token is a word or punctuation token, together with where it was found in the tokenized text.
type Token struct {
	Text string
	Span TokenSpan
}

// Tokenizer splits text into an ordered sequence of tokens.
//
// Implementations must be deterministic and total: the same text always yields the same tokens,
// and no input makes them fail. A Tokenizer holds no per-document state, so one instance can be
// shared read-only across goroutines.
type Tokenizer interface {
	Tokenize(text string) []Token
}

// Words returns only the texts of the tokens.
func Words(tokens []Token) []string {
	words := make([]string, len(tokens))
	for ii, tok := range tokens {
		words[ii] = tok.Text
	}
	return words
}
