// Package dataset reads and writes NER datasets: span-annotated JSON lines (or parquet), and
// token-tagged BIO text files.
//
// Readers are iterators yielding one record at a time together with an error. A *RecordError
// means only that record is broken and iteration can go on; any other error ends the stream.
package dataset

import (
	"fmt"

	"github.com/pkg/errors"
)

// RecordError is a structural problem with a single record: invalid JSON, a word without a tag,
// an unknown tag.
type RecordError struct {
	// Index is the 0-based position of the record in the source.
	Index int
	// Line is the 1-based line where the record starts.
	Line int
	Err  error
}

// Error implements error.
func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (line %d): %v", e.Index, e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsRecordError reports whether err is (or wraps) a *RecordError.
func IsRecordError(err error) bool {
	var recErr *RecordError
	return errors.As(err, &recErr)
}
