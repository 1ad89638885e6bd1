package ner

import (
	"strings"
	"unicode"

	"github.com/gomlx/go-nerconv/tokenizers/api"
	"github.com/gomlx/go-nerconv/tokenizers/punct"
)

// DefaultOffsetShift is how many characters the start of a span is moved left before its surface
// text is taken. Span-annotated data produced by some labeling tools starts entities one character
// late, so the surface is taken from one character earlier and then stripped.
const DefaultOffsetShift = 1

// Options configure a Converter.
type Options struct {
	// OffsetShift is subtracted from a span's start when entities are matched by surface text.
	// It is not used when span offsets align with tokens exactly.
	OffsetShift int

	// StripChars are trimmed, together with any whitespace, from both ends of an entity surface
	// text before it is searched for.
	StripChars string
}

// DefaultOptions returns the options matching the usual span-annotated datasets.
func DefaultOptions() Options {
	return Options{
		OffsetShift: DefaultOffsetShift,
		StripChars:  punct.DefaultPunctuation,
	}
}

// Converter converts documents between the span-annotated and the token-tagged formats.
// It holds no per-document state, and can be used concurrently.
type Converter struct {
	tokenizer api.Tokenizer
	opts      Options
}

// NewConverter creates a Converter that uses tokenizer for both directions.
func NewConverter(tokenizer api.Tokenizer, opts Options) *Converter {
	return &Converter{tokenizer: tokenizer, opts: opts}
}

// normalizeSurface trims whitespace and the configured strip characters from both ends of s.
func (c *Converter) normalizeSurface(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(c.opts.StripChars, r)
	})
}
