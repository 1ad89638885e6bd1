package ner

import (
	"cmp"
	"slices"
)

// entityBuffer accumulates the words of the entity being read.
type entityBuffer struct {
	words []string
	label string
	// first is the index of the entity's first token.
	first int
}

// TokensToSpans rebuilds the document text from tagged tokens (see JoinWords) and recovers the
// character offsets of its entities. The returned entities are sorted by start offset.
//
// Tags are read as a two state machine: a B tag opens an entity (closing the open one, if any),
// an I tag extends the open entity (or opens one, if none is open) and an O tag closes it.
// The label of an entity is the one of the tag that opened it.
func (c *Converter) TokensToSpans(tokens []TaggedToken, id int) (Document, Report) {
	words := make([]string, len(tokens))
	for ii, tok := range tokens {
		words[ii] = tok.Text
	}
	text, starts := joinWords(words)
	r := &spanResolver{
		text:     text,
		offsets:  newRuneOffsets(text),
		starts:   starts,
		taken:    make(map[[2]int]bool),
		recorded: make(map[EntitySpan]bool),
		entities: []EntitySpan{},
	}

	var buf *entityBuffer
	for ii, tok := range tokens {
		switch tok.Tag.Prefix {
		case Begin:
			if buf != nil {
				r.resolve(buf)
			}
			buf = &entityBuffer{words: []string{tok.Text}, label: tok.Tag.Label, first: ii}
		case Inside:
			if buf == nil {
				buf = &entityBuffer{label: tok.Tag.Label, first: ii}
			}
			buf.words = append(buf.words, tok.Text)
		default:
			if buf != nil {
				r.resolve(buf)
				buf = nil
			}
		}
	}
	if buf != nil {
		r.resolve(buf)
	}

	slices.SortStableFunc(r.entities, func(a, b EntitySpan) int {
		return cmp.Or(cmp.Compare(a.Start, b.Start), cmp.Compare(a.End, b.End))
	})
	return Document{ID: id, Text: text, Entities: r.entities}, r.report
}

// spanResolver locates closed entities in the rebuilt text.
type spanResolver struct {
	text    string
	offsets runeOffsets
	// starts holds the byte offset of each token in text.
	starts []int

	// taken holds the (start, end) byte ranges already given to an entity.
	taken    map[[2]int]bool
	recorded map[EntitySpan]bool
	entities []EntitySpan
	report   Report
}

// resolve searches the entity surface in the text, starting where its first token was placed.
func (r *spanResolver) resolve(buf *entityBuffer) {
	surface := entitySurface(buf.words)
	unresolved := EntitySpan{Start: -1, End: -1, Label: buf.label}
	if buf.label == "" {
		r.report.skip(unresolved, surface, SkipNoLabel)
		return
	}
	start, found := locate(r.text, surface, r.starts[buf.first], func(start, end int) bool {
		return r.taken[[2]int{start, end}]
	})
	if !found {
		r.report.skip(unresolved, surface, SkipNotFound)
		return
	}
	end := start + len(surface)
	span := EntitySpan{Start: r.offsets.runeAt(start), End: r.offsets.runeAt(end), Label: buf.label}
	if r.recorded[span] {
		r.report.skip(span, surface, SkipDuplicate)
		return
	}
	r.taken[[2]int{start, end}] = true
	r.recorded[span] = true
	r.entities = append(r.entities, span)
}
