package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gomlx/go-nerconv/ner"
)

// MaxLineSize is the longest JSON line ReadSpans accepts.
const MaxLineSize = 64 << 20

// ReadSpans iterates over the span-annotated documents of a JSON lines stream, one JSON object
// `{"id": ..., "text": ..., "label": [[start, end, label], ...]}` per line. Blank lines are ignored.
//
// A line that isn't a valid document yields a *RecordError and iteration continues, which also
// covers a stream cut in the middle of its last line. Read errors end the iteration.
func ReadSpans(r io.Reader) func(yield func(ner.Document, error) bool) {
	return func(yield func(ner.Document, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		index, lineNum := 0, 0
		for scanner.Scan() {
			lineNum++
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var doc ner.Document
			err := json.Unmarshal(line, &doc)
			if err != nil {
				err = &RecordError{Index: index, Line: lineNum, Err: errors.Wrap(err, "invalid span record")}
			}
			index++
			if !yield(doc, err) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(ner.Document{}, errors.Wrapf(err, "failed reading span records after line %d", lineNum))
		}
	}
}

// DocumentWriter writes span-annotated documents.
type DocumentWriter interface {
	Write(doc ner.Document) error
	// Close flushes buffered documents. It doesn't close the underlying writer.
	Close() error
}

// NewDocumentWriter returns a parquet writer if path ends with ".parquet", and a JSON lines writer
// otherwise.
func NewDocumentWriter(w io.Writer, path string) DocumentWriter {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return NewParquetWriter(w)
	}
	return NewJSONLWriter(w)
}

// JSONLWriter writes one JSON document per line.
type JSONLWriter struct {
	buf *bufio.Writer
	enc *json.Encoder
}

// Compile time assert that JSONLWriter implements DocumentWriter.
var _ DocumentWriter = &JSONLWriter{}

// NewJSONLWriter creates a JSONLWriter.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{buf: buf, enc: enc}
}

// Write implements DocumentWriter.
func (w *JSONLWriter) Write(doc ner.Document) error {
	if doc.Entities == nil {
		doc.Entities = []ner.EntitySpan{}
	}
	if err := w.enc.Encode(doc); err != nil {
		return errors.Wrapf(err, "failed to write document %d", doc.ID)
	}
	return nil
}

// Close implements DocumentWriter.
func (w *JSONLWriter) Close() error {
	return errors.Wrap(w.buf.Flush(), "failed to flush JSON lines")
}
