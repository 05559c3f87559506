package native

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/sql"
)

type fileFormat struct {
	name       string
	compressed bool
	delimiter  byte
}

// detectFormat picks the record format from meta.Format or, when unset,
// from the file suffix. A trailing .gz selects gzip compression.
func detectFormat(name string, meta *core.Meta) (fileFormat, error) {
	var format fileFormat
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".gz") {
		format.compressed = true
		lower = strings.TrimSuffix(lower, ".gz")
	}

	suffix := path.Ext(lower)
	if suffix == core.TableSuffix {
		return format, fmt.Errorf("%s is a table, not a generic file", name)
	}
	kind := strings.TrimPrefix(suffix, ".")
	if meta != nil && meta.Format != "" {
		kind = meta.Format
	}

	switch kind {
	case "tsv":
		format.name, format.delimiter = "tsv", '\t'
	case "tbl":
		format.name, format.delimiter = "tsv", '|'
	case "csv":
		format.name, format.delimiter = "csv", ','
	case "jsonl", "ndjson":
		format.name = "jsonl"
	case "parquet":
		if format.compressed {
			return format, fmt.Errorf("parquet files cannot be gzip compressed: %s", name)
		}
		format.name = "parquet"
	default:
		return format, fmt.Errorf("cannot detect the format of %s", name)
	}

	if meta != nil && meta.Delimiter != 0 && format.name != "jsonl" {
		format.delimiter = meta.Delimiter
	}
	return format, nil
}

// closers closes every element in order and reports the first error.
type closers []io.Closer

func (cs closers) Close() error {
	var first error
	for _, c := range cs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type emptyReader struct{}

func (emptyReader) Read() ([]core.Value, error) { return nil, io.EOF }
func (emptyReader) Close() error                { return nil }

// GenericFile is an open delimited, jsonl or parquet file. Write is nil on
// files opened read-only.
type GenericFile struct {
	handle
	name    string
	mode    OpenMode
	meta    *core.Meta
	format  fileFormat
	scheme  urlScheme
	s3      S3Options
	writer  recordWriter
	content *bytes.Buffer
	count   int64
	tracked uint64

	Rows  func(e **Fault) int64
	Meta  func(e **Fault) *core.Meta
	Write func(r *Row, e **Fault) int64
	Find  func(where string, e **Fault) *CursorRow
	Flush func(e **Fault)
	Close func()
}

// GenericFileOpen opens a generic file. Without meta the columns come from
// the <name>.desc sidecar or, failing that, from the header line.
func GenericFileOpen(name string, mode OpenMode, m *Meta, e **Fault) *GenericFile {
	if name == "" {
		throw(e, InvalidArgument, "file name is empty")
		return nil
	}
	_, s3opts := rt.settings()
	scheme := detectScheme(name)
	if mode == RDWR && scheme.isHTTP() {
		throw(e, InvalidOperation, "%s does not support writing", name)
		return nil
	}

	var meta *core.Meta
	if m != nil {
		if !metaValid(m, e) {
			return nil
		}
		clone := m.Clone()
		meta = &clone
	}
	format, err := detectFormat(name, meta)
	if err != nil {
		throw(e, InvalidArgument, "%v", err)
		return nil
	}
	if format.name == "parquet" && !scheme.isLocal() {
		throw(e, ResourceUnavailable, "parquet files must be local: %s", name)
		return nil
	}

	exists, err := sourceExists(name, s3opts)
	if err != nil {
		raise(e, StorageRead, err)
		return nil
	}
	if !exists && (mode == RDONLY || meta == nil) {
		throw(e, TableNotFound, "file %s does not exist", name)
		return nil
	}

	descName := name + core.DescSuffix
	stored, err := readDescriptor(descName, s3opts)
	if err != nil {
		raise(e, Corrupt, err)
		return nil
	}

	switch {
	case meta != nil && stored != nil:
		if err := meta.Compatible(stored); err != nil {
			raise(e, Incompatible, fmt.Errorf("file %s: %w", name, err))
			return nil
		}
	case stored != nil:
		meta = stored
	case meta == nil:
		if meta, err = inferMeta(name, format, s3opts); err != nil {
			raise(e, StorageRead, fmt.Errorf("failed to infer columns of %s: %w", name, err))
			return nil
		}
	case mode == RDWR:
		if scheme.isLocal() {
			if err := os.MkdirAll(filepath.Dir(localPath(name)), 0755); err != nil {
				raise(e, StorageWrite, err)
				return nil
			}
		}
		if err := writeSink(descName, []byte(sql.FormatCreateTable(meta)), s3opts); err != nil {
			raise(e, StorageWrite, fmt.Errorf("failed to write %s: %w", descName, err))
			return nil
		}
	}
	if len(meta.Columns) == 0 {
		throw(e, ColumnMismatch, "file %s has no columns", name)
		return nil
	}
	if format, err = detectFormat(name, meta); err != nil {
		throw(e, InvalidArgument, "%v", err)
		return nil
	}

	f := &GenericFile{
		handle: newHandle(),
		name:   name,
		mode:   mode,
		meta:   meta,
		format: format,
		scheme: scheme,
		s3:     s3opts,
		count:  -1,
	}
	f.Rows = f.rows
	f.Meta = f.describe
	f.Find = f.find
	f.Flush = f.flush
	f.Close = f.close
	if mode == RDWR {
		f.Write = f.write
	}
	f.tracked = rt.track(f.release)

	rt.log().Debug("file opened", "name", name, "mode", mode, "format", format.name, "compressed", format.compressed)
	return f
}

// GenericFileDrop removes a file and its sidecar. A missing file raises
// TableNotFound.
func GenericFileDrop(name string, e **Fault) {
	_, s3opts := rt.settings()
	switch scheme := detectScheme(name); {
	case scheme.isHTTP():
		throw(e, InvalidOperation, "%s does not support deleting", name)
	case scheme == schemeS3:
		for _, target := range []string{name, name + core.DescSuffix} {
			if err := deleteS3Object(target, s3opts); err != nil {
				raise(e, StorageDelete, err)
				return
			}
		}
	default:
		removed := false
		for _, target := range []string{localPath(name), localPath(name) + core.DescSuffix} {
			err := os.Remove(target)
			switch {
			case err == nil:
				removed = true
			case !errors.Is(err, fs.ErrNotExist):
				raise(e, StorageDelete, fmt.Errorf("failed to drop %s: %w", target, err))
				return
			}
		}
		if !removed {
			throw(e, TableNotFound, "file %s does not exist", name)
			return
		}
	}
	rt.log().Debug("file dropped", "name", name)
}

func sourceExists(name string, opts S3Options) (bool, error) {
	if detectScheme(name).isLocal() {
		_, err := os.Stat(localPath(name))
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}
	src, err := openSource(name, opts)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	src.Close()
	return true, nil
}

// readDescriptor parses a .desc sidecar. It returns nil when there is none.
func readDescriptor(descName string, opts S3Options) (*core.Meta, error) {
	text, err := readSource(descName, opts)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	meta, err := sql.ParseCreateTable(string(text))
	if err != nil {
		return nil, fmt.Errorf("invalid descriptor %s: %w", descName, err)
	}
	return &meta, nil
}

// openDecoded opens name and strips gzip compression when the format
// calls for it.
func openDecoded(name string, format fileFormat, opts S3Options) (io.Reader, io.Closer, error) {
	src, err := openSource(name, opts)
	if err != nil {
		return nil, nil, err
	}
	if !format.compressed {
		return src, src, nil
	}
	gz, err := gzip.NewReader(src)
	if errors.Is(err, io.EOF) {
		return bytes.NewReader(nil), src, nil
	}
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	return gz, closers{gz, src}, nil
}

// inferMeta builds STRING columns from the header line, or from the keys of
// the first object for jsonl.
func inferMeta(name string, format fileFormat, opts S3Options) (*core.Meta, error) {
	if format.name == "parquet" {
		return inferParquetMeta(localPath(name))
	}

	src, closer, err := openDecoded(name, format, opts)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var names []string
	if format.name == "jsonl" {
		names, err = jsonlKeys(src)
	} else {
		names, err = readHeader(src, format.delimiter)
	}
	if errors.Is(err, io.EOF) {
		return nil, errors.New("file is empty")
	}
	if err != nil {
		return nil, err
	}

	meta := &core.Meta{Name: path.Base(name), Format: format.name, Delimiter: format.delimiter}
	for _, column := range names {
		meta.Columns = append(meta.Columns, core.Column{Name: strings.TrimSpace(column), Type: core.String})
	}
	return meta, nil
}

func (f *GenericFile) ok(e **Fault) bool {
	if f == nil {
		throw(e, InvalidArgument, "file is NULL")
		return false
	}
	return f.valid(e, "file")
}

func (f *GenericFile) openReader() (recordReader, error) {
	if f.format.name == "parquet" {
		if exists, err := sourceExists(f.name, f.s3); err != nil || !exists {
			return emptyReader{}, err
		}
		return openParquetReader(localPath(f.name), f.meta)
	}

	src, closer, err := openDecoded(f.name, f.format, f.s3)
	if errors.Is(err, fs.ErrNotExist) {
		return emptyReader{}, nil
	}
	if err != nil {
		return nil, err
	}
	if f.format.name == "jsonl" {
		return newJSONLReader(src, f.meta, closer), nil
	}
	reader, err := newTextReader(src, f.meta, f.format.delimiter, !f.meta.AbsentHeader, closer)
	if err != nil {
		closer.Close()
		return nil, err
	}
	return reader, nil
}

// uploader stores the buffered content of a remote file when closed.
type uploader struct {
	file *GenericFile
}

func (u uploader) Close() error {
	return writeSink(u.file.name, u.file.content.Bytes(), u.file.s3)
}

func (f *GenericFile) openWriter() (recordWriter, error) {
	if f.format.name == "parquet" {
		var existing [][]core.Value
		reader, err := f.openReader()
		if err != nil {
			return nil, err
		}
		for {
			values, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				reader.Close()
				return nil, err
			}
			existing = append(existing, values)
		}
		reader.Close()
		return newParquetWriter(localPath(f.name), f.meta, existing)
	}

	var dst io.Writer
	var closer closers
	fresh := false
	if f.scheme.isLocal() {
		file, err := os.OpenFile(localPath(f.name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, err
		}
		fresh = info.Size() == 0
		dst, closer = file, closers{file}
	} else {
		if f.content == nil {
			data, err := readSource(f.name, f.s3)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			f.content = bytes.NewBuffer(data)
		}
		fresh = f.content.Len() == 0
		dst, closer = f.content, closers{uploader{file: f}}
	}

	if f.format.compressed {
		gz := gzip.NewWriter(dst)
		dst, closer = gz, append(closers{gz}, closer...)
	}

	if f.format.name == "jsonl" {
		return newJSONLWriter(dst, f.meta, closer)
	}
	writer, err := newTextWriter(dst, f.meta, f.format.delimiter, fresh && !f.meta.AbsentHeader, closer)
	if err != nil {
		closer.Close()
		return nil, err
	}
	return writer, nil
}

func (f *GenericFile) rows(e **Fault) int64 {
	if !f.ok(e) {
		return -1
	}
	if f.count >= 0 {
		return f.count
	}
	if f.flush(e); e != nil && *e != nil {
		return -1
	}

	reader, err := f.openReader()
	if err != nil {
		raise(e, StorageRead, err)
		return -1
	}
	defer reader.Close()

	var count int64
	for {
		_, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			raise(e, StorageRead, err)
			return -1
		}
		count++
	}
	f.count = count
	return count
}

func (f *GenericFile) describe(e **Fault) *core.Meta {
	if !f.ok(e) {
		return nil
	}
	return f.meta
}

// write appends one record and returns the number of records written.
func (f *GenericFile) write(r *Row, e **Fault) int64 {
	if !f.ok(e) {
		return -1
	}
	values := castRow(f.meta, f.name, r, e)
	if values == nil {
		return -1
	}

	if f.writer == nil {
		writer, err := f.openWriter()
		if err != nil {
			raise(e, StorageWrite, fmt.Errorf("failed to open %s for writing: %w", f.name, err))
			return -1
		}
		f.writer = writer
	}
	if err := f.writer.Write(values); err != nil {
		raise(e, StorageWrite, fmt.Errorf("failed to write to %s: %w", f.name, err))
		return -1
	}
	if f.count >= 0 {
		f.count++
	}
	return 1
}

// flush completes pending writes so that readers see them.
func (f *GenericFile) flush(e **Fault) {
	if f.writer == nil {
		return
	}
	err := f.writer.Close()
	f.writer = nil
	if err != nil {
		raise(e, StorageWrite, fmt.Errorf("failed to flush %s: %w", f.name, err))
	}
}

func (f *GenericFile) find(where string, e **Fault) *CursorRow {
	if !f.ok(e) {
		return nil
	}
	program, err := sql.Compile(where, f.meta)
	if err != nil {
		throw(e, InvalidArgument, "invalid filter %q: %v", where, err)
		return nil
	}
	if f.flush(e); e != nil && *e != nil {
		return nil
	}

	reader, err := f.openReader()
	if err != nil {
		raise(e, StorageRead, fmt.Errorf("failed to read %s: %w", f.name, err))
		return nil
	}
	return newRowCursor(f.meta, &f.handle, reader, program, e)
}

func (f *GenericFile) release() {
	var fault *Fault
	f.flush(&fault)
	if fault != nil {
		rt.log().Error("failed to flush file", "name", f.name, "error", fault.Msg)
	}
}

// close flushes and releases the file. Closing twice panics; closing after
// Cleanup is a no-op.
func (f *GenericFile) close() {
	if f.freed {
		panic("flintdb: double close of file")
	}
	f.freed = true
	if f.gen != rt.current() {
		return
	}
	f.release()
	rt.untrack(f.tracked)
	rt.log().Debug("file closed", "name", f.name)
}
