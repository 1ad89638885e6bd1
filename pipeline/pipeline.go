// Package pipeline runs a conversion over a whole dataset file.
//
// Records are converted one at a time, in order. A broken record is logged, counted and left out
// of the result; reading, writing and configuration problems abort the run, and the result file
// is then left as it was.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/go-nerconv/dataset"
	"github.com/gomlx/go-nerconv/ner"
)

// Direction of a conversion.
type Direction int

const (
	// SpansToTokens reads span-annotated JSON lines and writes token-tagged text.
	SpansToTokens Direction = iota
	// TokensToSpans reads token-tagged text and writes span-annotated JSON lines (or parquet).
	TokensToSpans
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case SpansToTokens:
		return "spans-to-tokens"
	case TokensToSpans:
		return "tokens-to-spans"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Options of a run.
type Options struct {
	Source    string
	Result    string
	Direction Direction

	// Tagged configures reading token-tagged sources.
	Tagged dataset.TaggedOptions

	// LockTimeout bounds the wait for the result file lock. Zero means no bound.
	LockTimeout time.Duration

	// RunID tags the log lines of the run. A random one is created if empty.
	RunID string
}

// Stats of a run.
type Stats struct {
	RunID string
	// Records read from the source, including failed ones.
	Records int
	// Written records.
	Written int
	// Failed records, left out of the result.
	Failed int
	// Fallbacks counts documents whose spans had to be matched by surface text.
	Fallbacks int
	// Skipped counts the entities left out, per reason.
	Skipped map[ner.SkipReason]int
	Elapsed time.Duration
}

// TotalSkipped returns the number of entities left out for any reason.
func (s Stats) TotalSkipped() int {
	var n int
	for _, count := range s.Skipped {
		n += count
	}
	return n
}

func (s *Stats) addReport(record int, report ner.Report) {
	if report.Fallback {
		s.Fallbacks++
	}
	for _, skipped := range report.Skipped {
		s.Skipped[skipped.Reason]++
		klog.V(2).InfoS("Entity skipped", "run", s.RunID, "record", record, "reason", skipped.Reason,
			"surface", skipped.Surface, "start", skipped.Span.Start, "end", skipped.Span.End, "label", skipped.Span.Label)
	}
}

// recordFailed counts and logs a broken record.
func (s *Stats) recordFailed(err error) {
	s.Failed++
	klog.V(1).InfoS("Skipping malformed record", "run", s.RunID, "err", err)
}

// Run converts opts.Source into opts.Result with conv.
func Run(ctx context.Context, conv *ner.Converter, opts Options) (Stats, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	stats := Stats{RunID: opts.RunID, Skipped: make(map[ner.SkipReason]int)}
	start := time.Now()
	klog.InfoS("Conversion started", "run", opts.RunID, "direction", opts.Direction, "source", opts.Source, "result", opts.Result)

	src, err := dataset.OpenSource(opts.Source)
	if err != nil {
		return stats, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			klog.Warningf("Failed closing source: %v", err)
		}
	}()

	lockCtx := ctx
	if opts.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, opts.LockTimeout)
		defer cancel()
	}
	out, err := dataset.CreateOutput(lockCtx, opts.Result)
	if err != nil {
		return stats, err
	}
	defer out.Abort()

	switch opts.Direction {
	case SpansToTokens:
		err = convertSpans(ctx, conv, src, out, &stats)
	case TokensToSpans:
		err = convertTokens(ctx, conv, src, out, opts, &stats)
	default:
		err = errors.Errorf("unknown conversion direction %s", opts.Direction)
	}
	if err != nil {
		return stats, err
	}
	if err := out.Commit(); err != nil {
		return stats, err
	}
	stats.Elapsed = time.Since(start)
	klog.InfoS("Conversion finished", "run", opts.RunID, "records", stats.Records, "written", stats.Written,
		"failed", stats.Failed, "skipped_entities", stats.TotalSkipped(), "elapsed", stats.Elapsed)
	return stats, nil
}

func convertSpans(ctx context.Context, conv *ner.Converter, src *dataset.Source, out *dataset.Output, stats *Stats) error {
	w := dataset.NewTaggedWriter(out)
	for doc, err := range dataset.ReadSpans(src.Reader()) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrapf(ctxErr, "interrupted after %d records", stats.Records)
		}
		if err != nil && !dataset.IsRecordError(err) {
			return errors.WithMessagef(err, "while reading %q", src.Path())
		}
		stats.Records++
		if err != nil {
			stats.recordFailed(err)
			continue
		}
		tagged, report := conv.SpansToTokens(doc)
		stats.addReport(stats.Records-1, report)
		if err := w.Write(tagged); err != nil {
			return errors.WithMessagef(err, "while writing %q", out.Path())
		}
		stats.Written++
	}
	return errors.WithMessagef(w.Close(), "while writing %q", out.Path())
}

func convertTokens(ctx context.Context, conv *ner.Converter, src *dataset.Source, out *dataset.Output, opts Options, stats *Stats) error {
	w := dataset.NewDocumentWriter(out, opts.Result)
	for tokens, err := range dataset.ReadTagged(src.Bytes(), opts.Tagged) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrapf(ctxErr, "interrupted after %d records", stats.Records)
		}
		stats.Records++
		if err != nil {
			// Reading token-tagged data from memory only fails per record.
			stats.recordFailed(err)
			continue
		}
		// Ids are sequential over the written documents.
		doc, report := conv.TokensToSpans(tokens, stats.Written)
		stats.addReport(stats.Records-1, report)
		if err := w.Write(doc); err != nil {
			return errors.WithMessagef(err, "while writing %q", out.Path())
		}
		stats.Written++
	}
	return errors.WithMessagef(w.Close(), "while writing %q", out.Path())
}

// String returns a one line summary of the stats.
func (s Stats) String() string {
	var parts []string
	for reason := ner.SkipEmptySurface; reason <= ner.SkipDuplicate; reason++ {
		if n := s.Skipped[reason]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
		}
	}
	skipped := "none"
	if len(parts) > 0 {
		skipped = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("records=%d written=%d failed=%d fallbacks=%d skipped entities: %s",
		s.Records, s.Written, s.Failed, s.Fallbacks, skipped)
}
