package ner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseLines parses "<word> <TAG>" lines separated by " / ", for compact test tables.
func parseLines(t *testing.T, lines string) []TaggedToken {
	t.Helper()
	tokens, err := ParseTaggedTokens(strings.Fields(strings.ReplaceAll(lines, " / ", " ")))
	require.NoError(t, err)
	return tokens
}

func TestTokensToSpans(t *testing.T) {
	conv := newTestConverter()

	tests := []struct {
		name     string
		input    string
		wantText string
		want     []EntitySpan
	}{
		{
			name:     "entity followed by O",
			input:    "Cobalt B-MALWARE_NAME / Strike I-MALWARE_NAME / MD5_TOKEN O",
			wantText: "Cobalt Strike MD5_TOKEN ",
			want:     []EntitySpan{{Start: 0, End: 13, Label: "MALWARE_NAME"}},
		},
		{
			name:     "entities at the end are flushed",
			input:    "Compromise O / indicators O / name O / md5 O / sha256 O / Cobalt B-MALWARE_NAME / Strike I-MALWARE_NAME / MD5_TOKEN B-IOC_MD5",
			wantText: "Compromise indicators name md5 sha256 Cobalt Strike MD5_TOKEN ",
			want: []EntitySpan{
				{Start: 38, End: 51, Label: "MALWARE_NAME"},
				{Start: 52, End: 61, Label: "IOC_MD5"},
			},
		},
		{
			name: "consecutive B tags and repeated surfaces",
			input: "SHA256_TOKEN B-IOC_SHA256 / Rare B-MALWARE_NAME / MD5_TOKEN B-IOC_MD5 / SHA256_TOKEN B-IOC_SHA256 / " +
				"DanceWithMe B-MALWARE_NAME / MD5_TOKEN B-IOC_MD5 / SHA256_TOKEN B-IOC_SHA256",
			wantText: "SHA256_TOKEN Rare MD5_TOKEN SHA256_TOKEN DanceWithMe MD5_TOKEN SHA256_TOKEN ",
			want: []EntitySpan{
				{Start: 0, End: 12, Label: "IOC_SHA256"},
				{Start: 13, End: 17, Label: "MALWARE_NAME"},
				{Start: 18, End: 27, Label: "IOC_MD5"},
				{Start: 28, End: 40, Label: "IOC_SHA256"},
				{Start: 41, End: 52, Label: "MALWARE_NAME"},
				{Start: 53, End: 62, Label: "IOC_MD5"},
				{Start: 63, End: 75, Label: "IOC_SHA256"},
			},
		},
		{
			name:     "entity is the later of two equal words",
			input:    "MD5_TOKEN O / and O / MD5_TOKEN B-IOC_MD5",
			wantText: "MD5_TOKEN and MD5_TOKEN ",
			want:     []EntitySpan{{Start: 14, End: 23, Label: "IOC_MD5"}},
		},
		{
			name:     "punctuation and brackets",
			input:    "Hello O / , O / APT28 B-ACTOR / ( O / Fancy B-ACTOR / Bear I-ACTOR / ) O / attacked O / . O",
			wantText: "Hello, APT28( Fancy Bear) attacked. ",
			want: []EntitySpan{
				{Start: 7, End: 12, Label: "ACTOR"},
				{Start: 14, End: 24, Label: "ACTOR"},
			},
		},
		{
			name:     "I without B opens an entity",
			input:    "x O / y I-LOC / z I-LOC",
			wantText: "x y z ",
			want:     []EntitySpan{{Start: 2, End: 5, Label: "LOC"}},
		},
		{
			name:     "I with another label extends the open entity",
			input:    "a B-A / b I-B / c O",
			wantText: "a b c ",
			want:     []EntitySpan{{Start: 0, End: 3, Label: "A"}},
		},
		{
			name:     "character offsets on non-ASCII text",
			input:    "Grüße O / an O / Müller B-ORG / GmbH I-ORG",
			wantText: "Grüße an Müller GmbH ",
			want:     []EntitySpan{{Start: 9, End: 20, Label: "ORG"}},
		},
		{
			name:     "no entities",
			input:    "value O / , O / next O / . O",
			wantText: "value, next. ",
			want:     []EntitySpan{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, report := conv.TokensToSpans(parseLines(t, tt.input), 7)
			assert.Equal(t, 7, doc.ID)
			assert.Equal(t, tt.wantText, doc.Text)
			assert.Equal(t, tt.want, doc.Entities)
			assert.Empty(t, report.Skipped)
			for _, e := range doc.Entities {
				surface := string([]rune(doc.Text)[e.Start:e.End])
				assert.Equal(t, strings.TrimSpace(surface), surface)
			}
		})
	}
}

func TestTokensToSpansEmpty(t *testing.T) {
	doc, report := newTestConverter().TokensToSpans(nil, 0)
	assert.Equal(t, "", doc.Text)
	assert.Empty(t, doc.Entities)
	assert.NotNil(t, doc.Entities)
	assert.Empty(t, report.Skipped)
}

func TestTokensToSpansEmptyLabel(t *testing.T) {
	tokens := []TaggedToken{{Text: "a", Tag: B("")}, {Text: "b", Tag: O}}
	doc, report := newTestConverter().TokensToSpans(tokens, 0)
	assert.Empty(t, doc.Entities)
	assert.Equal(t, 1, report.Count(SkipNoLabel))
}

// TestRoundTrip converts token-tagged documents to spans and back, and expects the same tags.
func TestRoundTrip(t *testing.T) {
	conv := newTestConverter()
	inputs := []string{
		"Cobalt B-MALWARE_NAME / Strike I-MALWARE_NAME / MD5_TOKEN O",
		"Hello O / , O / APT28 B-ACTOR / ( O / Fancy B-ACTOR / Bear I-ACTOR / ) O / attacked O / . O",
		"MD5_TOKEN O / and O / MD5_TOKEN B-IOC_MD5 / ; O / see O / evil.com/x B-URL / ! O",
		"SHA256_TOKEN B-IOC_SHA256 / Rare B-MALWARE_NAME / MD5_TOKEN B-IOC_MD5 / SHA256_TOKEN B-IOC_SHA256",
		"[ O / loader B-TOOL / ] O / - O / v2 O / : O / Müller B-PERSON / , O / Straße B-LOC / ? O",
	}
	for _, input := range inputs {
		tokens := parseLines(t, input)
		doc, report := conv.TokensToSpans(tokens, 0)
		require.Empty(t, report.Skipped, input)

		back, report := conv.SpansToTokens(doc)
		assert.False(t, report.Fallback, input)
		assert.Equal(t, tagStrings(tokens), tagStrings(back), input)
	}
}

func TestSpanInvariants(t *testing.T) {
	conv := newTestConverter()
	tokens := parseLines(t, "b B-X / a B-X / b B-X / a B-Y / b B-X / a O / a B-X")
	doc, _ := conv.TokensToSpans(tokens, 0)
	seen := make(map[EntitySpan]bool)
	for ii, e := range doc.Entities {
		assert.False(t, seen[e], "duplicate span %v", e)
		seen[e] = true
		if ii > 0 {
			assert.LessOrEqual(t, doc.Entities[ii-1].Start, e.Start)
		}
	}
	assert.Len(t, doc.Entities, 6)
}
