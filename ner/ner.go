// Package ner converts NER training data between the span-annotated format (text plus character
// offset spans) and the token-tagged BIO format (one tag per token).
//
// Both directions share one api.Tokenizer and the same text rebuilding rules, so text rebuilt from
// tagged tokens tokenizes back into the same tokens:
//
//	conv := ner.NewConverter(punct.New(punct.DefaultPunctuation), ner.DefaultOptions())
//	tagged, report := conv.SpansToTokens(doc)
//	doc2, report2 := conv.TokensToSpans(tagged, doc.ID)
//
// Spans that can't be located are not errors: they are left out of the result and listed in
// the returned Report.
package ner

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// EntitySpan is a labeled entity given by character (rune) offsets into a document's text.
// End is exclusive.
//
// It is serialized as a JSON array `[start, end, "label"]`.
type EntitySpan struct {
	Start int
	End   int
	Label string
}

// MarshalJSON encodes the span as `[start, end, "label"]`.
func (s EntitySpan) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Start, s.End, s.Label})
}

// UnmarshalJSON decodes a span from `[start, end, "label"]`.
func (s *EntitySpan) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.Wrap(err, "entity span must be a [start, end, label] array")
	}
	if len(fields) != 3 {
		return errors.Errorf("entity span must have 3 elements, got %d", len(fields))
	}
	if err := json.Unmarshal(fields[0], &s.Start); err != nil {
		return errors.Wrap(err, "entity span start")
	}
	if err := json.Unmarshal(fields[1], &s.End); err != nil {
		return errors.Wrap(err, "entity span end")
	}
	if err := json.Unmarshal(fields[2], &s.Label); err != nil {
		return errors.Wrap(err, "entity span label")
	}
	return nil
}

// Document is a text with its entity spans, the span-annotated format.
type Document struct {
	ID       int          `json:"id"`
	Text     string       `json:"text"`
	Entities []EntitySpan `json:"label"`
}
