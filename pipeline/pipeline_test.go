package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/go-nerconv/dataset"
	"github.com/gomlx/go-nerconv/ner"
	"github.com/gomlx/go-nerconv/tokenizers/punct"
)

func newTestConverter() *ner.Converter {
	return ner.NewConverter(punct.New(punct.DefaultPunctuation), ner.DefaultOptions())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestRunSpansToTokens(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "source.jsonl", `{"id": 0, "text": "Cobalt Strike MD5_TOKEN", "label": [[0, 14, "MALWARE_NAME"]]}
{"id": 1, "text": "not json
{"id": 2, "text": "Rare malware", "label": [[0, 4, "MALWARE_NAME"], [0, 4, "MALWARE_NAME"]]}
`)
	result := filepath.Join(dir, "result.txt")

	stats, err := Run(context.Background(), newTestConverter(), Options{
		Source: source, Result: result, Direction: SpansToTokens, RunID: "test-run",
	})
	require.NoError(t, err)
	assert.Equal(t, "test-run", stats.RunID)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Fallbacks)
	assert.Equal(t, 1, stats.Skipped[ner.SkipNotFound])
	assert.Equal(t, 1, stats.TotalSkipped())
	assert.Contains(t, stats.String(), "not_found=1")

	assert.Equal(t, "Cobalt B-MALWARE_NAME\nStrike I-MALWARE_NAME\nMD5_TOKEN O\n\nRare B-MALWARE_NAME\nmalware O\n\n", readFile(t, result))
}

func TestRunTokensToSpans(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "source.txt", `Cobalt B-MALWARE_NAME
Strike I-MALWARE_NAME
MD5_TOKEN O

dangling

SHA256_TOKEN B-IOC_SHA256
`)
	result := filepath.Join(dir, "result.jsonl")

	stats, err := Run(context.Background(), newTestConverter(), Options{
		Source: source, Result: result, Direction: TokensToSpans,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 1, stats.Failed)

	lines := strings.Split(strings.TrimSpace(readFile(t, result)), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"id": 0, "text": "Cobalt Strike MD5_TOKEN ", "label": [[0, 13, "MALWARE_NAME"]]}`, lines[0])
	assert.JSONEq(t, `{"id": 1, "text": "SHA256_TOKEN ", "label": [[0, 12, "IOC_SHA256"]]}`, lines[1])
}

func TestRunTokensToSpansParquet(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "source.txt", "Cobalt B-MALWARE_NAME\nStrike I-MALWARE_NAME\nMD5_TOKEN O\n")
	result := filepath.Join(dir, "result.parquet")

	_, err := Run(context.Background(), newTestConverter(), Options{
		Source: source, Result: result, Direction: TokensToSpans, Tagged: dataset.TaggedOptions{Mode: dataset.ReadSingle},
	})
	require.NoError(t, err)

	rows, err := parquet.ReadFile[dataset.SpanRow](result)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ner.Document{
		ID:       0,
		Text:     "Cobalt Strike MD5_TOKEN ",
		Entities: []ner.EntitySpan{{Start: 0, End: 13, Label: "MALWARE_NAME"}},
	}, rows[0].Document())
}

// TestRunRoundTrip converts token-tagged data to spans and back through files.
func TestRunRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := "Hello O\n, O\nAPT28 B-ACTOR\n( O\nFancy B-ACTOR\nBear I-ACTOR\n) O\nattacked O\n. O\n\n" +
		"MD5_TOKEN O\nand O\nMD5_TOKEN B-IOC_MD5\n\n"
	source := writeFile(t, dir, "source.txt", original)
	spans := filepath.Join(dir, "spans.jsonl")
	back := filepath.Join(dir, "back.txt")
	conv := newTestConverter()

	_, err := Run(context.Background(), conv, Options{Source: source, Result: spans, Direction: TokensToSpans})
	require.NoError(t, err)
	stats, err := Run(context.Background(), conv, Options{Source: spans, Result: back, Direction: SpansToTokens})
	require.NoError(t, err)
	assert.Zero(t, stats.Fallbacks)
	assert.Equal(t, original, readFile(t, back))
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	result := filepath.Join(dir, "result.txt")
	_, err := Run(context.Background(), newTestConverter(), Options{
		Source: filepath.Join(dir, "missing.jsonl"), Result: result, Direction: SpansToTokens,
	})
	assert.ErrorContains(t, err, "missing.jsonl")
	assert.NoFileExists(t, result)

	source := writeFile(t, dir, "source.jsonl", `{"text": "a"}`+"\n")
	_, err = Run(context.Background(), newTestConverter(), Options{Source: source, Result: result, Direction: Direction(7)})
	assert.ErrorContains(t, err, "Direction(7)")
	assert.NoFileExists(t, result)
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "source.jsonl", `{"text": "a"}`+"\n")
	result := filepath.Join(dir, "result.txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, newTestConverter(), Options{Source: source, Result: result, Direction: SpansToTokens})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, result)
}
