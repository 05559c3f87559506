package native

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/nickyhof/flintdb/core"
)

// textReader reads delimited records (tsv, tbl, csv).
type textReader struct {
	reader *csv.Reader
	meta   *core.Meta
	nilStr string
	closer io.Closer
	line   int
}

func newTextReader(src io.Reader, meta *core.Meta, delimiter byte, skipHeader bool, closer io.Closer) (*textReader, error) {
	reader := csv.NewReader(src)
	reader.Comma = rune(delimiter)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	r := &textReader{reader: reader, meta: meta, nilStr: meta.EffectiveNilStr(), closer: closer}
	if skipHeader {
		if _, err := r.next(); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	}
	return r, nil
}

func (r *textReader) next() ([]string, error) {
	record, err := r.reader.Read()
	if err != nil {
		return nil, err
	}
	r.line++
	return record, nil
}

func (r *textReader) Read() ([]core.Value, error) {
	record, err := r.next()
	if err != nil {
		return nil, err
	}

	values := make([]core.Value, len(r.meta.Columns))
	for i, col := range r.meta.Columns {
		if i >= len(record) || record[i] == r.nilStr || (record[i] == "" && col.Type != core.String) {
			values[i] = core.NilValue()
			continue
		}
		v, err := core.ParseValue(record[i], col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		values[i] = v
	}
	return values, nil
}

func (r *textReader) Close() error {
	return r.closer.Close()
}

// readHeader returns the first record of a delimited source.
func readHeader(src io.Reader, delimiter byte) ([]string, error) {
	reader := csv.NewReader(src)
	reader.Comma = rune(delimiter)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.Read()
}

// recordWriter appends records to a generic file.
type recordWriter interface {
	Write(values []core.Value) error
	Close() error
}

type textWriter struct {
	writer *csv.Writer
	nilStr string
	closer io.Closer
	fields []string
}

func newTextWriter(dst io.Writer, meta *core.Meta, delimiter byte, header bool, closer io.Closer) (*textWriter, error) {
	writer := csv.NewWriter(dst)
	writer.Comma = rune(delimiter)

	w := &textWriter{writer: writer, nilStr: meta.EffectiveNilStr(), closer: closer, fields: make([]string, len(meta.Columns))}
	if header {
		for i, col := range meta.Columns {
			w.fields[i] = col.Name
		}
		if err := writer.Write(w.fields); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	return w, nil
}

func (w *textWriter) Write(values []core.Value) error {
	for i, v := range values {
		if v.IsNil() {
			w.fields[i] = w.nilStr
		} else {
			w.fields[i] = v.Format()
		}
	}
	return w.writer.Write(w.fields)
}

func (w *textWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.closer.Close()
		return err
	}
	return w.closer.Close()
}
