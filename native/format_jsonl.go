package native

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/nickyhof/flintdb/core"
)

const maxJSONLine = 16 * 1024 * 1024

// jsonlReader reads one JSON object per line. Keys are column names;
// missing keys and null read as NULL.
type jsonlReader struct {
	scanner *bufio.Scanner
	meta    *core.Meta
	closer  io.Closer
	line    int
}

func newJSONLReader(src io.Reader, meta *core.Meta, closer io.Closer) *jsonlReader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxJSONLine)
	return &jsonlReader{scanner: scanner, meta: meta, closer: closer}
}

func (r *jsonlReader) object() (map[string]json.RawMessage, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var object map[string]json.RawMessage
		if err := json.Unmarshal(line, &object); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return object, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (r *jsonlReader) Read() ([]core.Value, error) {
	object, err := r.object()
	if err != nil {
		return nil, err
	}

	values := make([]core.Value, len(r.meta.Columns))
	for i, col := range r.meta.Columns {
		raw, ok := object[col.Name]
		if !ok || string(raw) == "null" {
			values[i] = core.NilValue()
			continue
		}
		text := string(raw)
		if len(raw) > 0 && raw[0] == '"' {
			if err := json.Unmarshal(raw, &text); err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", r.line, col.Name, err)
			}
		}
		v, err := core.ParseValue(text, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		values[i] = v
	}
	return values, nil
}

func (r *jsonlReader) Close() error {
	return r.closer.Close()
}

// jsonlKeys returns the keys of the first object, sorted.
func jsonlKeys(src io.Reader) ([]string, error) {
	reader := newJSONLReader(src, &core.Meta{}, io.NopCloser(nil))
	object, err := reader.object()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

type jsonlWriter struct {
	writer *bufio.Writer
	meta   *core.Meta
	closer io.Closer
	keys   [][]byte
	buf    []byte
}

func newJSONLWriter(dst io.Writer, meta *core.Meta, closer io.Closer) (*jsonlWriter, error) {
	w := &jsonlWriter{writer: bufio.NewWriter(dst), meta: meta, closer: closer}
	for _, col := range meta.Columns {
		key, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		w.keys = append(w.keys, key)
	}
	return w, nil
}

// Write emits the columns in descriptor order.
func (w *jsonlWriter) Write(values []core.Value) error {
	buf := append(w.buf[:0], '{')
	for i, v := range values {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, w.keys[i]...)
		buf = append(buf, ':')

		switch t := v.Type(); {
		case v.IsNil():
			buf = append(buf, "null"...)
		case t.IsInteger():
			n, _ := v.Int64()
			buf = strconv.AppendInt(buf, n, 10)
		case t == core.Double || t == core.Float:
			if f, _ := v.Float64(); !math.IsInf(f, 0) && !math.IsNaN(f) {
				buf = append(buf, v.Format()...)
				break
			}
			cell, _ := json.Marshal(v.Format())
			buf = append(buf, cell...)
		default:
			cell, err := json.Marshal(v.Format())
			if err != nil {
				return err
			}
			buf = append(buf, cell...)
		}
	}
	buf = append(buf, '}', '\n')
	w.buf = buf

	_, err := w.writer.Write(buf)
	return err
}

func (w *jsonlWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.closer.Close()
		return err
	}
	return w.closer.Close()
}
