package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/go-nerconv/dataset"
	"github.com/gomlx/go-nerconv/ner"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nerconv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.OffsetShift)
	assert.Equal(t, dataset.TaggedOptions{Mode: dataset.ReadAuto}, cfg.TaggedOptions())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
offset_shift: 0
token_format:
  read_mode: single
  normalize: NFC
lock_timeout: 5s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, cfg.OffsetShift)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, Default().Punctuation, cfg.Punctuation, "unset keys keep their defaults")
	assert.Equal(t, dataset.TaggedOptions{Mode: dataset.ReadSingle, Normalize: dataset.NormalizeNFC}, cfg.TaggedOptions())

	conv := cfg.NewConverter()
	span := ner.EntitySpan{Start: 7, End: 19, Label: "M"}
	assert.Equal(t, "obalt Strike", conv.Surface("Found Cobalt Strike", span))
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "missing.yaml")

	_, err = Load(writeConfig(t, "offset_shfit: 2\n"))
	assert.ErrorContains(t, err, "offset_shfit")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"negative shift", func(c *Config) { c.OffsetShift = -1 }, "offset_shift"},
		{"read mode", func(c *Config) { c.TokenFormat.ReadMode = "lines" }, "read_mode"},
		{"normalization", func(c *Config) { c.TokenFormat.Normalize = "NFD" }, "normalize"},
		{"lock timeout", func(c *Config) { c.LockTimeout = 0 }, "lock_timeout"},
		{"punctuation without the rebuild set", func(c *Config) { c.Punctuation = ".,!?" }, `must include '\\'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidatePunctuationSuperset(t *testing.T) {
	cfg := Default()
	cfg.Punctuation = ner.RebuildPunctuation + "-'"
	require.NoError(t, cfg.Validate())

	conv := cfg.NewConverter()
	doc, _ := conv.TokensToSpans([]ner.TaggedToken{{Text: "it", Tag: ner.O}, {Text: "'", Tag: ner.O}, {Text: "s", Tag: ner.O}}, 0)
	tagged, _ := conv.SpansToTokens(doc)
	assert.Equal(t, []ner.TaggedToken{{Text: "it", Tag: ner.O}, {Text: "'", Tag: ner.O}, {Text: "s", Tag: ner.O}}, tagged)
}
