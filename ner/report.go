package ner

import "fmt"

// SkipReason tells why an entity was left out of a conversion.
type SkipReason int

const (
	// SkipEmptySurface: the span covers only punctuation and whitespace, or nothing at all.
	SkipEmptySurface SkipReason = iota
	// SkipNotFound: the entity text doesn't occur (anymore) in the document text.
	SkipNotFound
	// SkipMisaligned: the entity text was found, but glued to other characters of a token.
	SkipMisaligned
	// SkipNoLabel: the span has an empty label.
	SkipNoLabel
	// SkipDuplicate: the same (start, end, label) was already recorded.
	SkipDuplicate
)

var skipReasonNames = [...]string{
	SkipEmptySurface: "empty_surface",
	SkipNotFound:     "not_found",
	SkipMisaligned:   "misaligned",
	SkipNoLabel:      "no_label",
	SkipDuplicate:    "duplicate",
}

// String returns the snake case name of the reason, as used in logs.
func (r SkipReason) String() string {
	if int(r) >= 0 && int(r) < len(skipReasonNames) {
		return skipReasonNames[r]
	}
	return fmt.Sprintf("SkipReason(%d)", int(r))
}

// Skipped describes one entity left out of a conversion.
type Skipped struct {
	// Span is the entity as given (span to token) or as far as it was resolved (token to span,
	// where Start and End are -1 if the entity was never located).
	Span    EntitySpan
	Surface string
	Reason  SkipReason
}

// Report lists what a single document conversion couldn't carry over.
type Report struct {
	// Fallback is set when span offsets didn't align with token boundaries, and entities were
	// matched by their surface text instead.
	Fallback bool
	Skipped  []Skipped
}

func (r *Report) skip(span EntitySpan, surface string, reason SkipReason) {
	r.Skipped = append(r.Skipped, Skipped{Span: span, Surface: surface, Reason: reason})
}

// Count returns how many entities were skipped for the given reason.
func (r Report) Count(reason SkipReason) int {
	var n int
	for _, s := range r.Skipped {
		if s.Reason == reason {
			n++
		}
	}
	return n
}
