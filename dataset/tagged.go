package dataset

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/gomlx/go-nerconv/ner"
)

// ReadMode selects how a token-tagged file is split into documents.
type ReadMode string

const (
	// ReadAuto reads blank line separated blocks, which for a file without blank lines is the
	// whole file as one document.
	ReadAuto ReadMode = "auto"
	// ReadBlocks reads one document per blank line separated block.
	ReadBlocks ReadMode = "blocks"
	// ReadSingle joins the whole file into a single document.
	ReadSingle ReadMode = "single"
)

// ParseReadMode parses "auto", "blocks" or "single". The empty string is ReadAuto.
func ParseReadMode(s string) (ReadMode, error) {
	switch mode := ReadMode(strings.ToLower(s)); mode {
	case "":
		return ReadAuto, nil
	case ReadAuto, ReadBlocks, ReadSingle:
		return mode, nil
	default:
		return "", errors.Errorf("unknown read mode %q, valid values are auto, blocks and single", s)
	}
}

// Normalization is the Unicode normalization applied to the words of token-tagged input.
type Normalization string

const (
	NormalizeNone Normalization = ""
	NormalizeNFC  Normalization = "NFC"
	NormalizeNFKC Normalization = "NFKC"
)

// ParseNormalization parses "", "none", "NFC" or "NFKC".
func ParseNormalization(s string) (Normalization, error) {
	switch n := Normalization(strings.ToUpper(s)); n {
	case "", "NONE":
		return NormalizeNone, nil
	case NormalizeNFC, NormalizeNFKC:
		return n, nil
	default:
		return "", errors.Errorf("unknown normalization %q, valid values are none, NFC and NFKC", s)
	}
}

func (n Normalization) apply(word string) string {
	switch n {
	case NormalizeNFC:
		return norm.NFC.String(word)
	case NormalizeNFKC:
		return norm.NFKC.String(word)
	default:
		return word
	}
}

// TaggedOptions configure ReadTagged.
type TaggedOptions struct {
	Mode      ReadMode
	Normalize Normalization
}

// ReadTagged iterates over the documents of a token-tagged file: "<word> <TAG>" lines, with a
// blank line between documents.
//
// A document with a word without tag, or an invalid tag, yields a *RecordError (wrapping
// ner.ErrMalformed) and iteration continues with the next document.
func ReadTagged(data []byte, opts TaggedOptions) func(yield func([]ner.TaggedToken, error) bool) {
	return func(yield func([]ner.TaggedToken, error) bool) {
		if opts.Mode == ReadSingle {
			fields := strings.Fields(string(data))
			if len(fields) > 0 {
				yield(parseTaggedRecord(fields, 0, 1, opts.Normalize))
			}
			return
		}

		index := 0
		for block := range taggedBlocks(data) {
			tokens, err := parseTaggedRecord(block.fields, index, block.line, opts.Normalize)
			index++
			if !yield(tokens, err) {
				return
			}
		}
	}
}

func parseTaggedRecord(fields []string, index, line int, normalize Normalization) ([]ner.TaggedToken, error) {
	tokens, err := ner.ParseTaggedTokens(fields)
	if err != nil {
		return nil, &RecordError{Index: index, Line: line, Err: err}
	}
	if normalize != NormalizeNone {
		tokens = normalizeTokens(tokens, normalize)
	}
	return tokens, nil
}

// normalizeTokens normalizes every word. Compatibility normalization can turn a character into a
// space followed by a combining mark, so words are split again on whitespace: the pieces of a B
// word continue as I, and a word left with no text is dropped.
func normalizeTokens(tokens []ner.TaggedToken, normalize Normalization) []ner.TaggedToken {
	normalized := make([]ner.TaggedToken, 0, len(tokens))
	for _, tok := range tokens {
		for jj, piece := range strings.Fields(normalize.apply(tok.Text)) {
			tag := tok.Tag
			if jj > 0 && tag.Prefix == ner.Begin {
				tag = ner.I(tag.Label)
			}
			normalized = append(normalized, ner.TaggedToken{Text: piece, Tag: tag})
		}
	}
	return normalized
}

type taggedBlock struct {
	fields []string
	// line is the 1-based line number of the first line of the block.
	line int
}

// taggedBlocks splits data on blank lines.
func taggedBlocks(data []byte) func(yield func(taggedBlock) bool) {
	return func(yield func(taggedBlock) bool) {
		var current taggedBlock
		lineNum := 0
		for len(data) > 0 {
			var line []byte
			line, data, _ = bytes.Cut(data, []byte{'\n'})
			lineNum++
			fields := strings.Fields(string(line))
			if len(fields) == 0 {
				if len(current.fields) > 0 && !yield(current) {
					return
				}
				current = taggedBlock{}
				continue
			}
			if len(current.fields) == 0 {
				current.line = lineNum
			}
			current.fields = append(current.fields, fields...)
		}
		if len(current.fields) > 0 {
			yield(current)
		}
	}
}

// TaggedWriter writes token-tagged documents: one "<word> <TAG>" line per token, and a blank line
// after each document.
type TaggedWriter struct {
	buf *bufio.Writer
}

// NewTaggedWriter creates a TaggedWriter.
func NewTaggedWriter(w io.Writer) *TaggedWriter {
	return &TaggedWriter{buf: bufio.NewWriter(w)}
}

// Write writes one document.
func (w *TaggedWriter) Write(tokens []ner.TaggedToken) error {
	if _, err := w.buf.WriteString(ner.FormatTaggedTokens(tokens)); err != nil {
		return errors.Wrap(err, "failed to write tagged tokens")
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "failed to write tagged tokens")
	}
	return nil
}

// Close flushes buffered output. It doesn't close the underlying writer.
func (w *TaggedWriter) Close() error {
	return errors.Wrap(w.buf.Flush(), "failed to flush tagged tokens")
}
