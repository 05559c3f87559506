package flintdb

import (
	"errors"

	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/native"
)

// GenericFile is an open TSV, CSV, JSONL or parquet file, optionally gzip
// compressed, on local disk, s3:// or http(s)://. Rows are appended in
// order and have no ids.
type GenericFile struct {
	inner *native.GenericFile
	name  string
	meta  *core.Meta
}

// OpenGenericFile opens a generic file. Without meta the columns come from
// the <name>.desc sidecar or, failing that, from the header line.
func OpenGenericFile(name string, mode Mode, meta *Meta) (*GenericFile, error) {
	if meta != nil && meta.inner == nil {
		return nil, closed("meta")
	}
	inner, err := call(func(e **native.Fault) *native.GenericFile {
		return native.GenericFileOpen(name, mode.openMode(), meta.engine(), e)
	})
	if err != nil {
		return nil, err
	}
	f := &GenericFile{inner: inner, name: name}
	if inner.Meta == nil {
		f.Close()
		return nil, unavailable("meta")
	}
	f.meta, err = call(inner.Meta)
	if err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// DropGenericFile removes a file and its sidecar. Dropping a file that
// does not exist succeeds.
func DropGenericFile(name string) error {
	err := run(func(e **native.Fault) { native.GenericFileDrop(name, e) })
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (f *GenericFile) live() error {
	if f == nil || f.inner == nil {
		return closed("file")
	}
	return nil
}

func (f *GenericFile) Name() string {
	if f == nil {
		return ""
	}
	return f.name
}

// CreateRow creates an owned row for the file's columns.
func (f *GenericFile) CreateRow() (*Row, error) {
	if err := f.live(); err != nil {
		return nil, err
	}
	return newOwnedRow(f.meta)
}

// Meta returns a copy of the file descriptor. The caller closes it.
func (f *GenericFile) Meta() (*Meta, error) {
	if err := f.live(); err != nil {
		return nil, err
	}
	if f.inner.Meta == nil {
		return nil, unavailable("meta")
	}
	meta, err := call(f.inner.Meta)
	if err != nil {
		return nil, err
	}
	return dupMeta(meta)
}

// Write appends r.
func (f *GenericFile) Write(r *Row) error {
	if err := f.live(); err != nil {
		return err
	}
	if f.inner.Write == nil {
		return unavailable("write")
	}
	if err := r.live(); err != nil {
		return err
	}
	n, err := call(func(e **native.Fault) int64 { return f.inner.Write(r.inner, e) })
	_, err = rowID("write", n, err)
	return err
}

// Rows counts the records, flushing pending writes first.
func (f *GenericFile) Rows() (int64, error) {
	if err := f.live(); err != nil {
		return -1, err
	}
	if f.inner.Rows == nil {
		return -1, unavailable("rows")
	}
	return call(f.inner.Rows)
}

// Find scans the file, for example with "WHERE price > 10 LIMIT 5".
func (f *GenericFile) Find(where string) (*RowCursor, error) {
	if err := f.live(); err != nil {
		return nil, err
	}
	if f.inner.Find == nil {
		return nil, unavailable("find")
	}
	inner, err := call(func(e **native.Fault) *native.CursorRow { return f.inner.Find(where, e) })
	if err != nil {
		return nil, err
	}
	return &RowCursor{inner: inner, meta: f.meta}, nil
}

// Flush completes pending writes.
func (f *GenericFile) Flush() error {
	if err := f.live(); err != nil {
		return err
	}
	if f.inner.Flush == nil {
		return unavailable("flush")
	}
	return run(f.inner.Flush)
}

// Close flushes pending writes and releases the file. The file is released
// even when the flush fails. Further calls do nothing.
func (f *GenericFile) Close() error {
	if f == nil || f.inner == nil {
		return nil
	}
	var err error
	if f.inner.Flush != nil {
		if err = run(f.inner.Flush); errors.Is(err, ErrClosed) {
			err = nil
		}
	}
	if f.inner.Close != nil {
		f.inner.Close()
	}
	f.inner = nil
	return err
}
