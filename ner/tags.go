package ner

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformed is returned (wrapped) when a token-tagged sequence can't be parsed.
var ErrMalformed = errors.New("malformed tagged tokens")

// TagPrefix is the BIO position of a tag.
type TagPrefix int

const (
	Outside TagPrefix = iota
	Begin
	Inside
)

// Tag is a BIO tag: O, B-<label> or I-<label>.
type Tag struct {
	Prefix TagPrefix
	Label  string
}

// O is the tag of tokens outside any entity.
var O = Tag{Prefix: Outside}

// B returns the tag of the first token of an entity.
func B(label string) Tag { return Tag{Prefix: Begin, Label: label} }

// I returns the tag of a continuation token of an entity.
func I(label string) Tag { return Tag{Prefix: Inside, Label: label} }

// String returns the tag as written in token-tagged files.
func (t Tag) String() string {
	switch t.Prefix {
	case Begin:
		return "B-" + t.Label
	case Inside:
		return "I-" + t.Label
	default:
		return "O"
	}
}

// ParseTag parses "O", "B-<label>" or "I-<label>". Labels are kept as is, including case.
func ParseTag(s string) (Tag, error) {
	if s == "O" {
		return O, nil
	}
	if len(s) > 2 && s[1] == '-' {
		switch s[0] {
		case 'B':
			return B(s[2:]), nil
		case 'I':
			return I(s[2:]), nil
		}
	}
	return Tag{}, errors.Wrapf(ErrMalformed, "invalid tag %q", s)
}

// TaggedToken is a token with its BIO tag.
type TaggedToken struct {
	Text string
	Tag  Tag
}

// String returns the "<word> <TAG>" line of the token.
func (t TaggedToken) String() string {
	return t.Text + " " + t.Tag.String()
}

// ParseTaggedTokens parses alternating word and tag fields, as found in a whitespace split
// token-tagged document. An odd number of fields or an invalid tag returns an error wrapping
// ErrMalformed.
func ParseTaggedTokens(fields []string) ([]TaggedToken, error) {
	if len(fields)%2 != 0 {
		return nil, errors.Wrapf(ErrMalformed, "word %q has no tag", fields[len(fields)-1])
	}
	tokens := make([]TaggedToken, 0, len(fields)/2)
	for ii := 0; ii < len(fields); ii += 2 {
		tag, err := ParseTag(fields[ii+1])
		if err != nil {
			return nil, errors.WithMessagef(err, "token %d (%q)", ii/2, fields[ii])
		}
		tokens = append(tokens, TaggedToken{Text: fields[ii], Tag: tag})
	}
	return tokens, nil
}

// FormatTaggedTokens returns one "<word> <TAG>" line per token.
func FormatTaggedTokens(tokens []TaggedToken) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
