package native

import (
	"strings"

	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/sql"
)

// Meta is a schema descriptor under construction.
type Meta struct {
	handle
	core.Meta
}

func metaValid(m *Meta, e **Fault) bool {
	if m == nil {
		throw(e, InvalidArgument, "meta is NULL")
		return false
	}
	return m.valid(e, "meta")
}

func MetaNew(name string, e **Fault) *Meta {
	if len(name) >= core.MaxMetaNameLimit-1 {
		throw(e, InvalidArgument, "table name too long (%d bytes, max: %d)", len(name), core.MaxMetaNameLimit-1)
		return nil
	}
	return &Meta{handle: newHandle(), Meta: core.Meta{Name: name}}
}

// MetaClose releases a descriptor. Releasing it twice panics.
func MetaClose(m *Meta) {
	if m == nil {
		return
	}
	if m.freed {
		panic("flintdb: double free of meta")
	}
	m.freed = true
	m.Columns = nil
	m.Indexes = nil
}

// ColumnsAdd appends a column. Column positions follow the order of calls.
func ColumnsAdd(m *Meta, name string, typ core.VariantType, bytes, precision int, nullspec core.NullSpec, value, comment string, e **Fault) {
	if !metaValid(m, e) {
		return
	}
	if len(m.Columns) >= core.MaxColumns {
		throw(e, ColumnMismatch, "meta is NULL or maximum columns limit reached")
		return
	}
	if name == "" {
		throw(e, InvalidArgument, "column name is NULL")
		return
	}
	if len(name) > core.MaxColumnNameLimit-1 {
		throw(e, InvalidArgument, "column name too long (%d bytes, max: %d)", len(name), core.MaxColumnNameLimit-1)
		return
	}
	if m.ColumnIndex(name) >= 0 {
		throw(e, ColumnMismatch, "column %s already exists", name)
		return
	}
	if !typ.IsStorable() {
		throw(e, InvalidDataType, "unsupported type %d for column %s", int(typ), name)
		return
	}
	if bytes < 0 || precision < 0 {
		throw(e, InvalidDataType, "invalid size (%d,%d) for column %s", bytes, precision, name)
		return
	}
	if typ == core.Decimal && bytes > 0 && precision > bytes {
		throw(e, InvalidDataType, "decimal scale %d exceeds precision %d for column %s", precision, bytes, name)
		return
	}
	if len(value) > core.MaxColumnNameLimit-1 {
		throw(e, InvalidArgument, "column default value too long (%d bytes, max: %d)", len(value), core.MaxColumnNameLimit-1)
		return
	}
	if len(comment) > core.MaxColumnNameLimit-1 {
		throw(e, InvalidArgument, "column comment too long (%d bytes, max: %d)", len(comment), core.MaxColumnNameLimit-1)
		return
	}

	col := core.Column{
		Name:      name,
		Type:      typ,
		Bytes:     bytes,
		Precision: precision,
		NullSpec:  nullspec,
		Default:   value,
		Comment:   comment,
	}
	if value != "" {
		if _, err := core.ParseValue(value, col); err != nil {
			throw(e, InvalidDataType, "invalid default value %q for column %s: %v", value, name, err)
			return
		}
	}
	m.Columns = append(m.Columns, col)
}

// IndexesAdd appends an index over existing columns. An index named
// primary becomes the primary index.
func IndexesAdd(m *Meta, name, algorithm string, keys []string, e **Fault) {
	if !metaValid(m, e) {
		return
	}
	if len(m.Indexes) >= core.MaxIndexes {
		throw(e, InvalidArgument, "meta is NULL or maximum indexes limit reached")
		return
	}
	if name == "" {
		throw(e, InvalidArgument, "index name is NULL")
		return
	}
	if len(name) > core.MaxColumnNameLimit-1 {
		throw(e, InvalidArgument, "index name too long (%d bytes, max: %d)", len(name), core.MaxColumnNameLimit-1)
		return
	}
	if len(keys) == 0 || len(keys) > core.MaxIndexKeys {
		throw(e, InvalidArgument, "invalid key count for index")
		return
	}
	if len(algorithm) > core.MaxColumnNameLimit-1 {
		throw(e, InvalidArgument, "index algorithm name too long (%d bytes, max: %d)", len(algorithm), core.MaxColumnNameLimit-1)
		return
	}
	if _, exists := m.IndexByName(name); exists {
		throw(e, InvalidArgument, "index %s already exists", name)
		return
	}
	for _, key := range keys {
		if len(key) > core.MaxColumnNameLimit-1 {
			throw(e, InvalidArgument, "index key name too long (%d bytes, max: %d)", len(key), core.MaxColumnNameLimit-1)
			return
		}
		if m.ColumnIndex(key) < 0 {
			throw(e, ColumnMismatch, "index %s key %s is not a column", name, key)
			return
		}
	}

	idx := core.Index{Name: name, Type: core.SortIndex, Algorithm: algorithm, Keys: append([]string(nil), keys...)}
	if strings.EqualFold(name, core.PrimaryIndex) {
		idx.Type = core.PrimaryIndex
	}
	m.Indexes = append(m.Indexes, idx)
}

// MetaToSQLString renders the descriptor into buf followed by a NUL byte
// and returns the full length of the rendered text. When the text and its
// terminator do not fit, buf holds a truncated copy and a Truncated fault
// is raised.
func MetaToSQLString(m *Meta, buf []byte, e **Fault) int {
	if !metaValid(m, e) {
		return -1
	}
	text := sql.FormatCreateTable(&m.Meta)
	n := copy(buf, text)
	if n < len(buf) {
		buf[n] = 0
	}
	if len(text) >= len(buf) {
		throw(e, Truncated, "schema string exceeds buffer (%d bytes, capacity: %d)", len(text), len(buf))
	}
	return len(text)
}

// ColumnAt returns the position of a column, or -1.
func ColumnAt(m *Meta, name string) int {
	if m == nil || !m.alive() {
		return -1
	}
	return m.ColumnIndex(name)
}

// MetaSet applies a descriptor option such as FORMAT or STORAGE.
func MetaSet(m *Meta, key, value string, e **Fault) {
	if !metaValid(m, e) {
		return
	}
	if err := m.SetOption(key, value); err != nil {
		raise(e, InvalidArgument, err)
	}
}

// MetaFromSQL parses a CREATE TABLE statement into a new descriptor.
func MetaFromSQL(text string, e **Fault) *Meta {
	meta, err := sql.ParseCreateTable(text)
	if err != nil {
		throw(e, InvalidArgument, "invalid schema: %v", err)
		return nil
	}
	return &Meta{handle: newHandle(), Meta: meta}
}

// MetaDup copies a descriptor handed out by a table or file into a new
// descriptor the caller must close.
func MetaDup(meta *core.Meta, e **Fault) *Meta {
	if meta == nil {
		throw(e, InvalidArgument, "meta is NULL")
		return nil
	}
	return &Meta{handle: newHandle(), Meta: meta.Clone()}
}
