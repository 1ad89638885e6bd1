package ner

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// attachedPunctuation tokens are appended to the text without a preceding space.
	attachedPunctuation = `,.!?\/;:`
	// bracketPunctuation tokens are appended without a preceding space, and followed by one.
	bracketPunctuation = `()[]{}`

	// RebuildPunctuation holds every character JoinWords doesn't simply separate with a space. A
	// tokenizer used with the converters must split all of them off, or rebuilt texts don't tokenize
	// back into the same words.
	RebuildPunctuation = attachedPunctuation + bracketPunctuation
)

func isOneOf(word, set string) bool {
	r, size := utf8.DecodeRuneInString(word)
	return size > 0 && size == len(word) && strings.ContainsRune(set, r)
}

// JoinWords rebuilds a document text from its token texts.
//
// Attached punctuation (", . ! ? \ / ; :") follows the previous token directly, brackets are
// followed by a space, and other tokens are separated from the previous one by a single space.
// A non-empty text always ends with one space, and never holds two spaces in a row.
func JoinWords(words []string) string {
	text, _ := joinWords(words)
	return text
}

// joinWords implements JoinWords, and also returns the byte offset at which each word was placed.
func joinWords(words []string) (string, []int) {
	starts := make([]int, len(words))
	if len(words) == 0 {
		return "", starts
	}
	var sb strings.Builder
	endsWithSpace := func() bool {
		return sb.Len() > 0 && strings.HasSuffix(sb.String(), " ")
	}
	for ii, word := range words {
		switch {
		case isOneOf(word, attachedPunctuation):
			starts[ii] = sb.Len()
			sb.WriteString(word)
		case isOneOf(word, bracketPunctuation):
			starts[ii] = sb.Len()
			sb.WriteString(word)
			sb.WriteByte(' ')
		default:
			if sb.Len() > 0 && !endsWithSpace() {
				sb.WriteByte(' ')
			}
			starts[ii] = sb.Len()
			sb.WriteString(word)
		}
	}
	if !endsWithSpace() {
		sb.WriteByte(' ')
	}
	return collapseSpaces(sb.String()), starts
}

// collapseSpaces replaces runs of spaces with a single one.
func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// entitySurface joins the words of one entity the way JoinWords does, without the trailing space.
func entitySurface(words []string) string {
	text, _ := joinWords(words)
	return strings.TrimRight(text, " ")
}

// runeOffsets maps rune indices of a text to byte offsets: runeOffsets[i] is where the i-th rune
// starts, and the last element is len(text).
type runeOffsets []int

func newRuneOffsets(text string) runeOffsets {
	offsets := make(runeOffsets, 0, len(text)+1)
	for pos := range text {
		offsets = append(offsets, pos)
	}
	return append(offsets, len(text))
}

// Len returns the number of runes in the text.
func (o runeOffsets) Len() int {
	return len(o) - 1
}

// byteAt converts a rune index to a byte offset, clamping it to the text.
func (o runeOffsets) byteAt(runeIdx int) int {
	runeIdx = clamp(runeIdx, 0, o.Len())
	return o[runeIdx]
}

// runeAt converts a byte offset to a rune index. Offsets inside a rune map to the rune that follows.
func (o runeOffsets) runeAt(byteIdx int) int {
	return sort.SearchInts(o, byteIdx)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// locate finds surface in text, looking first from the byte offset hint onwards and then from the
// start of the text. Matches for which taken returns true are passed over.
// It returns the byte offset of the match.
func locate(text, surface string, hint int, taken func(start, end int) bool) (int, bool) {
	if surface == "" {
		return -1, false
	}
	hint = clamp(hint, 0, len(text))
	if pos, found := findFrom(text, surface, hint, len(text), taken); found {
		return pos, true
	}
	return findFrom(text, surface, 0, hint+len(surface)-1, taken)
}

// findFrom returns the first untaken match of surface that starts at or after from and ends at or
// before limit.
func findFrom(text, surface string, from, limit int, taken func(start, end int) bool) (int, bool) {
	limit = min(limit, len(text))
	for from <= limit-len(surface) {
		idx := strings.Index(text[from:limit], surface)
		if idx < 0 {
			return -1, false
		}
		start := from + idx
		if taken == nil || !taken(start, start+len(surface)) {
			return start, true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return -1, false
}
