// Package config holds the conversion settings, read from an optional YAML file.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gomlx/go-nerconv/dataset"
	"github.com/gomlx/go-nerconv/ner"
	"github.com/gomlx/go-nerconv/tokenizers/punct"
)

// Config of a conversion run.
type Config struct {
	// OffsetShift is how many characters span starts are moved left when entities have to be
	// matched by surface text.
	OffsetShift int `yaml:"offset_shift"`

	// StripChars are trimmed (with whitespace) from entity surface texts.
	StripChars string `yaml:"strip_chars"`

	// Punctuation is the set of characters the tokenizer splits off the end of words.
	Punctuation string `yaml:"punctuation"`

	TokenFormat TokenFormat `yaml:"token_format"`

	// LockTimeout bounds how long to wait for another run writing the same result file.
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// TokenFormat configures reading token-tagged files.
type TokenFormat struct {
	// ReadMode is one of auto, blocks or single.
	ReadMode string `yaml:"read_mode"`
	// Normalize is the Unicode normalization applied to words: none, NFC or NFKC.
	Normalize string `yaml:"normalize"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		OffsetShift: ner.DefaultOffsetShift,
		StripChars:  punct.DefaultPunctuation,
		Punctuation: punct.DefaultPunctuation,
		TokenFormat: TokenFormat{
			ReadMode: string(dataset.ReadAuto),
		},
		LockTimeout: time.Minute,
	}
}

// Load reads the YAML file at path over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to open config file %q", path)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, errors.Wrapf(err, "failed to parse config file %q", path)
	}
	return cfg, nil
}

// Validate checks the values of the configuration.
func (c Config) Validate() error {
	if c.OffsetShift < 0 {
		return errors.Errorf("offset_shift must be >= 0, got %d", c.OffsetShift)
	}
	for _, r := range ner.RebuildPunctuation {
		if !strings.ContainsRune(c.Punctuation, r) {
			return errors.Errorf("punctuation %q must include %q, which rebuilt texts separate from words", c.Punctuation, r)
		}
	}
	if _, err := dataset.ParseReadMode(c.TokenFormat.ReadMode); err != nil {
		return errors.WithMessage(err, "token_format.read_mode")
	}
	if _, err := dataset.ParseNormalization(c.TokenFormat.Normalize); err != nil {
		return errors.WithMessage(err, "token_format.normalize")
	}
	if c.LockTimeout <= 0 {
		return errors.Errorf("lock_timeout must be positive, got %s", c.LockTimeout)
	}
	return nil
}

// NewConverter builds the tokenizer and converter described by the configuration.
func (c Config) NewConverter() *ner.Converter {
	return ner.NewConverter(punct.New(c.Punctuation), ner.Options{
		OffsetShift: c.OffsetShift,
		StripChars:  c.StripChars,
	})
}

// TaggedOptions returns the options to read token-tagged files. The configuration must be valid.
func (c Config) TaggedOptions() dataset.TaggedOptions {
	mode, _ := dataset.ParseReadMode(c.TokenFormat.ReadMode)
	normalize, _ := dataset.ParseNormalization(c.TokenFormat.Normalize)
	return dataset.TaggedOptions{Mode: mode, Normalize: normalize}
}
