// Command nerconv converts NER datasets between the span-annotated JSON lines format and the
// token-tagged BIO format.
//
//	nerconv -s dataset.jsonl -r dataset.txt --spans-to-tokens
//	nerconv -s dataset.txt -r dataset.jsonl --tokens-to-spans --log nerconv.log --verbose
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/go-nerconv/config"
	"github.com/gomlx/go-nerconv/pipeline"
)

// CLI defines the command-line interface of nerconv.
type CLI struct {
	Source string `short:"s" required:"" type:"path" help:"Path to the source dataset."`
	Result string `short:"r" required:"" type:"path" help:"Path to the result dataset. A .parquet extension writes span output as parquet."`

	SpansToTokens bool `name:"spans-to-tokens" aliases:"spacy-to-bert" xor:"direction" help:"Convert span-annotated JSON lines to token-tagged text."`
	TokensToSpans bool `name:"tokens-to-spans" aliases:"bert-to-spacy" xor:"direction" help:"Convert token-tagged text to span-annotated JSON lines."`

	Log     string `short:"l" type:"path" help:"Write logs to this file instead of stderr."`
	Verbose bool   `short:"v" aliases:"dry" help:"Log every malformed record and skipped entity."`
	Quiet   bool   `short:"q" help:"Don't print the summary."`

	Config      string `short:"c" type:"path" help:"YAML configuration file."`
	ReadMode    string `help:"How token-tagged sources are split into documents: auto, blocks or single. Overrides the configuration."`
	OffsetShift int    `default:"-1" help:"Characters to move span starts left when matching entity texts. Overrides the configuration when >= 0."`
}

// Validate is called by kong after parsing.
func (c *CLI) Validate() error {
	if !c.SpansToTokens && !c.TokensToSpans {
		return errors.New("one of --spans-to-tokens or --tokens-to-spans is required")
	}
	return nil
}

func (c *CLI) direction() pipeline.Direction {
	if c.TokensToSpans {
		return pipeline.TokensToSpans
	}
	return pipeline.SpansToTokens
}

// loadConfig reads the configuration file, if any, and applies the command line overrides.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		var err error
		cfg, err = config.Load(c.Config)
		if err != nil {
			return cfg, err
		}
	}
	if c.ReadMode != "" {
		cfg.TokenFormat.ReadMode = c.ReadMode
	}
	if c.OffsetShift >= 0 {
		cfg.OffsetShift = c.OffsetShift
	}
	return cfg, cfg.Validate()
}

// setupLogging configures klog: to a file (only) if logFile is set, and at verbosity 2 if verbose.
func setupLogging(logFile string, verbose bool) error {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	settings := map[string]string{}
	if logFile != "" {
		settings["logtostderr"] = "false"
		settings["alsologtostderr"] = "false"
		settings["log_file"] = logFile
		settings["one_output"] = "true"
	}
	if verbose {
		settings["v"] = "2"
	}
	for name, value := range settings {
		if err := fs.Set(name, value); err != nil {
			return errors.Wrapf(err, "failed to set klog flag %s=%q", name, value)
		}
	}
	return nil
}

func (c *CLI) run(ctx context.Context, runID string) (pipeline.Stats, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return pipeline.Stats{}, errors.WithMessage(err, "invalid configuration")
	}
	return pipeline.Run(ctx, cfg.NewConverter(), pipeline.Options{
		Source:      c.Source,
		Result:      c.Result,
		Direction:   c.direction(),
		Tagged:      cfg.TaggedOptions(),
		LockTimeout: cfg.LockTimeout,
		RunID:       runID,
	})
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("nerconv"),
		kong.Description("Converts NER datasets between span-annotated JSON lines and token-tagged BIO text."),
		kong.UsageOnError(),
	)
	if err := setupLogging(cli.Log, cli.Verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runID := uuid.NewString()
	klog.InfoS("nerconv started", "run", runID, "source", cli.Source, "result", cli.Result,
		"direction", cli.direction(), "config", cli.Config, "log", cli.Log, "verbose", cli.Verbose)
	stats, err := cli.run(ctx, runID)
	stop()
	if err != nil {
		klog.ErrorS(err, "Unexpected error", "run", runID)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
	if !cli.Quiet {
		fmt.Fprintln(os.Stderr, renderSummary(stats, cli.Result))
	}
}
