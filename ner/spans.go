package ner

import (
	"strconv"
	"strings"

	"github.com/gomlx/go-nerconv/tokenizers/api"
)

// SpansToTokens converts a span-annotated document into tagged tokens, in reading order.
//
// If every span starts and ends on token boundaries (and none overlap), the offsets are used as
// they are. Otherwise each entity's surface text is taken from its (shifted) offsets, trimmed,
// and matched against the text: the first occurrence not claimed by an earlier entity is used.
// Entities that can't be placed are tagged O and listed in the Report.
func (c *Converter) SpansToTokens(doc Document) ([]TaggedToken, Report) {
	tokens := c.tokenizer.Tokenize(doc.Text)
	alignment := alignExact(doc.Text, tokens, doc.Entities)
	if alignment.OK {
		return zipTags(tokens, alignment.Tags), Report{}
	}
	return c.matchSurfaces(doc)
}

// Alignment is the result of projecting spans directly onto tokens.
type Alignment struct {
	OK bool
	// Reason is why the alignment failed, for debugging.
	Reason string
	// Tags has one tag per token, if OK.
	Tags []Tag
}

// AlignExact projects the document spans onto its tokens by offsets only.
// It fails if a span is out of range, has no label, doesn't start and end at token boundaries, or
// overlaps another span.
func (c *Converter) AlignExact(doc Document) Alignment {
	return alignExact(doc.Text, c.tokenizer.Tokenize(doc.Text), doc.Entities)
}

func alignExact(text string, tokens []api.Token, spans []EntitySpan) Alignment {
	tags := make([]Tag, len(tokens))
	if len(spans) == 0 {
		return Alignment{OK: true, Tags: tags}
	}
	offsets := newRuneOffsets(text)
	tokenByStart := make(map[int]int, len(tokens))
	tokenByEnd := make(map[int]int, len(tokens))
	for ii, tok := range tokens {
		tokenByStart[tok.Span.Start] = ii
		tokenByEnd[tok.Span.End] = ii
	}
	for _, span := range spans {
		if span.Label == "" {
			return Alignment{Reason: "span has no label"}
		}
		if span.Start < 0 || span.End > offsets.Len() || span.Start >= span.End {
			return Alignment{Reason: "span [" + strconv.Itoa(span.Start) + "," + strconv.Itoa(span.End) + ") out of range"}
		}
		first, okStart := tokenByStart[offsets.byteAt(span.Start)]
		last, okEnd := tokenByEnd[offsets.byteAt(span.End)]
		if !okStart || !okEnd || last < first {
			return Alignment{Reason: "span " + strconv.Quote(text[offsets.byteAt(span.Start):offsets.byteAt(span.End)]) + " doesn't match token boundaries"}
		}
		for ii := first; ii <= last; ii++ {
			if tags[ii].Prefix != Outside {
				return Alignment{Reason: "overlapping spans"}
			}
			if ii == first {
				tags[ii] = B(span.Label)
			} else {
				tags[ii] = I(span.Label)
			}
		}
	}
	return Alignment{OK: true, Tags: tags}
}

func zipTags(tokens []api.Token, tags []Tag) []TaggedToken {
	tagged := make([]TaggedToken, len(tokens))
	for ii, tok := range tokens {
		tagged[ii] = TaggedToken{Text: tok.Text, Tag: tags[ii]}
	}
	return tagged
}

// Surface returns the normalized surface text of span in text: the text from
// span.Start-OffsetShift to span.End, clamped to the text, with whitespace and StripChars trimmed
// from both ends.
func (c *Converter) Surface(text string, span EntitySpan) string {
	return c.surface(text, newRuneOffsets(text), span)
}

func (c *Converter) surface(text string, offsets runeOffsets, span EntitySpan) string {
	start := offsets.byteAt(span.Start - c.opts.OffsetShift)
	end := offsets.byteAt(span.End)
	if start >= end {
		return ""
	}
	return c.normalizeSurface(text[start:end])
}

// matchSurfaces places each entity by its surface text: every entity's first unclaimed occurrence
// is replaced by a placeholder token, so after tokenization each entity occupies exactly one token.
func (c *Converter) matchSurfaces(doc Document) ([]TaggedToken, Report) {
	report := Report{Fallback: true}
	offsets := newRuneOffsets(doc.Text)
	marks := newPlaceholders(doc.Text)
	surfaces := make([]string, len(doc.Entities))
	work := doc.Text
	for ii, span := range doc.Entities {
		if span.Label == "" {
			report.skip(span, "", SkipNoLabel)
			continue
		}
		surface := c.surface(doc.Text, offsets, span)
		if surface == "" {
			report.skip(span, surface, SkipEmptySurface)
			continue
		}
		idx := strings.Index(work, surface)
		if idx < 0 {
			report.skip(span, surface, SkipNotFound)
			continue
		}
		surfaces[ii] = surface
		work = work[:idx] + marks.format(ii) + work[idx+len(surface):]
	}
	// placed returns the entity index of a placeholder, if it stands for a placed entity.
	placed := func(ii int, ok bool) (int, bool) {
		return ii, ok && ii < len(surfaces) && surfaces[ii] != ""
	}

	var tagged []TaggedToken
	for _, tok := range c.tokenizer.Tokenize(work) {
		if ii, ok := placed(marks.parse(tok.Text)); ok {
			label := doc.Entities[ii].Label
			for jj, entityTok := range c.tokenizer.Tokenize(surfaces[ii]) {
				tag := I(label)
				if jj == 0 {
					tag = B(label)
				}
				tagged = append(tagged, TaggedToken{Text: entityTok.Text, Tag: tag})
			}
			continue
		}
		if !strings.Contains(tok.Text, marks.open) {
			tagged = append(tagged, TaggedToken{Text: tok.Text, Tag: O})
			continue
		}
		// The entity text was glued to other characters: put the text back, untagged.
		restored := marks.expand(tok.Text, func(idx int) (string, bool) {
			ii, ok := placed(idx, true)
			if !ok {
				return "", false
			}
			report.skip(doc.Entities[ii], surfaces[ii], SkipMisaligned)
			return surfaces[ii], true
		})
		for _, plain := range c.tokenizer.Tokenize(restored) {
			tagged = append(tagged, TaggedToken{Text: plain.Text, Tag: O})
		}
	}
	return tagged, report
}

// placeholders encode an entity index with private use characters that don't occur in the
// document text: an opening mark, one character per decimal digit and a closing mark. The tokenizer
// never splits a placeholder, and neither document text nor entity surfaces can match one.
type placeholders struct {
	open, close string
	digits      [10]rune
}

// newPlaceholders picks the first twelve private use characters not in text.
func newPlaceholders(text string) placeholders {
	var marks []rune
	candidates := func(yield func(rune) bool) {
		for r := rune(0xE000); r <= 0xF8FF; r++ {
			if !yield(r) {
				return
			}
		}
		for r := rune(0xF0000); r <= 0x10FFFD; r++ {
			if !yield(r) {
				return
			}
		}
	}
	for r := range candidates {
		if strings.ContainsRune(text, r) {
			continue
		}
		marks = append(marks, r)
		if len(marks) == 12 {
			break
		}
	}
	p := placeholders{open: string(marks[0]), close: string(marks[1])}
	copy(p.digits[:], marks[2:])
	return p
}

func (p placeholders) format(idx int) string {
	var sb strings.Builder
	sb.WriteString(p.open)
	for _, d := range strconv.Itoa(idx) {
		sb.WriteRune(p.digits[d-'0'])
	}
	sb.WriteString(p.close)
	return sb.String()
}

func (p placeholders) digit(r rune) (int, bool) {
	for d, dr := range p.digits {
		if r == dr {
			return d, true
		}
	}
	return 0, false
}

// parse returns the entity index if s is exactly one placeholder.
func (p placeholders) parse(s string) (int, bool) {
	body, ok := strings.CutPrefix(s, p.open)
	if !ok {
		return 0, false
	}
	body, ok = strings.CutSuffix(body, p.close)
	if !ok || body == "" {
		return 0, false
	}
	idx := 0
	for _, r := range body {
		d, ok := p.digit(r)
		if !ok {
			return 0, false
		}
		idx = idx*10 + d
	}
	return idx, true
}

// expand replaces every placeholder in s by fn(index). Placeholders fn rejects are left as they are.
func (p placeholders) expand(s string, fn func(idx int) (string, bool)) string {
	var sb strings.Builder
	for {
		open := strings.Index(s, p.open)
		if open < 0 {
			break
		}
		closeIdx := strings.Index(s[open:], p.close)
		if closeIdx < 0 {
			break
		}
		end := open + closeIdx + len(p.close)
		idx, ok := p.parse(s[open:end])
		var replacement string
		if ok {
			replacement, ok = fn(idx)
		}
		if !ok {
			sb.WriteString(s[:end])
			s = s[end:]
			continue
		}
		sb.WriteString(s[:open])
		sb.WriteString(replacement)
		s = s[end:]
	}
	sb.WriteString(s)
	return sb.String()
}
