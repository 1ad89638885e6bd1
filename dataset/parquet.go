package dataset

import (
	"io"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/gomlx/go-nerconv/ner"
)

// SpanRow is the parquet row of a span-annotated document, laid out like the JSON lines records
// so the file loads directly as a HuggingFace dataset.
type SpanRow struct {
	ID    int64      `parquet:"id"`
	Text  string     `parquet:"text"`
	Label []LabelRow `parquet:"label,list"`
}

// LabelRow is one entity of a SpanRow.
type LabelRow struct {
	Start int64  `parquet:"start"`
	End   int64  `parquet:"end"`
	Label string `parquet:"label"`
}

// NewSpanRow converts a document to its parquet row.
func NewSpanRow(doc ner.Document) SpanRow {
	row := SpanRow{
		ID:    int64(doc.ID),
		Text:  doc.Text,
		Label: make([]LabelRow, len(doc.Entities)),
	}
	for ii, e := range doc.Entities {
		row.Label[ii] = LabelRow{Start: int64(e.Start), End: int64(e.End), Label: e.Label}
	}
	return row
}

// Document converts the row back to a document.
func (row SpanRow) Document() ner.Document {
	doc := ner.Document{
		ID:       int(row.ID),
		Text:     row.Text,
		Entities: make([]ner.EntitySpan, len(row.Label)),
	}
	for ii, l := range row.Label {
		doc.Entities[ii] = ner.EntitySpan{Start: int(l.Start), End: int(l.End), Label: l.Label}
	}
	return doc
}

// ParquetWriter writes span-annotated documents as parquet rows.
type ParquetWriter struct {
	writer *parquet.GenericWriter[SpanRow]
	rows   int
}

// Compile time assert that ParquetWriter implements DocumentWriter.
var _ DocumentWriter = &ParquetWriter{}

// NewParquetWriter creates a ParquetWriter. The file is only complete after Close.
func NewParquetWriter(w io.Writer) *ParquetWriter {
	return &ParquetWriter{writer: parquet.NewGenericWriter[SpanRow](w)}
}

// Write implements DocumentWriter.
func (w *ParquetWriter) Write(doc ner.Document) error {
	if _, err := w.writer.Write([]SpanRow{NewSpanRow(doc)}); err != nil {
		return errors.Wrapf(err, "failed to write parquet row for document %d", doc.ID)
	}
	w.rows++
	return nil
}

// Close implements DocumentWriter: it writes the parquet footer.
func (w *ParquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		return errors.Wrapf(err, "failed to close parquet writer after %d rows", w.rows)
	}
	return nil
}
