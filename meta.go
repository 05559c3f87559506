package flintdb

import (
	"bytes"
	"strconv"

	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/native"
)

// Type is the variant type of a column.
type Type = core.VariantType

const (
	Int8    = core.Int8
	Uint8   = core.Uint8
	Int16   = core.Int16
	Uint16  = core.Uint16
	Int32   = core.Int32
	Uint32  = core.Uint32
	Int64   = core.Int64
	Double  = core.Double
	Float   = core.Float
	String  = core.String
	Decimal = core.Decimal
	Bytes   = core.Bytes
	Date    = core.Date
	Time    = core.Time
	UUID    = core.UUID
	IPv6    = core.IPv6
)

type NullSpec = core.NullSpec

const (
	Nullable = core.Nullable
	NotNull  = core.NotNull
)

type (
	Column = core.Column
	Index  = core.Index
	Value  = core.Value
)

const (
	// PrimaryIndex is the index name every table must declare first.
	PrimaryIndex = core.PrimaryIndex

	// SQLBufferSize is the capacity ToSQL renders into.
	SQLBufferSize = 8192
)

// Meta is an owned schema descriptor. Columns are addressed by the order
// they were added.
type Meta struct {
	inner *native.Meta
}

func NewMeta(name string) (*Meta, error) {
	inner, err := call(func(e **native.Fault) *native.Meta {
		return native.MetaNew(name, e)
	})
	if err != nil {
		return nil, err
	}
	return &Meta{inner: inner}, nil
}

// ParseMeta builds a descriptor from its CREATE TABLE form, as produced by
// ToSQL.
func ParseMeta(text string) (*Meta, error) {
	inner, err := call(func(e **native.Fault) *native.Meta {
		return native.MetaFromSQL(text, e)
	})
	if err != nil {
		return nil, err
	}
	return &Meta{inner: inner}, nil
}

// dupMeta copies a descriptor owned by an open table or file.
func dupMeta(meta *core.Meta) (*Meta, error) {
	inner, err := call(func(e **native.Fault) *native.Meta {
		return native.MetaDup(meta, e)
	})
	if err != nil {
		return nil, err
	}
	return &Meta{inner: inner}, nil
}

func (m *Meta) live() error {
	if m == nil || m.inner == nil {
		return closed("meta")
	}
	return nil
}

// AddColumn appends a column. size is the byte length for STRING and BYTES
// and the precision for DECIMAL; scale is the DECIMAL scale.
func (m *Meta) AddColumn(name string, typ Type, size, scale int, nullSpec NullSpec, def, comment string) error {
	if err := m.live(); err != nil {
		return err
	}
	return run(func(e **native.Fault) {
		native.ColumnsAdd(m.inner, name, typ, size, scale, nullSpec, def, comment, e)
	})
}

// AddIndex appends an index. Every key must name a column added before.
func (m *Meta) AddIndex(name string, keys ...string) error {
	if err := m.live(); err != nil {
		return err
	}
	return run(func(e **native.Fault) {
		native.IndexesAdd(m.inner, name, "", keys, e)
	})
}

// ToSQL renders the descriptor as a CREATE TABLE statement.
func (m *Meta) ToSQL() (string, error) {
	return m.ToSQLBuffer(SQLBufferSize)
}

// ToSQLBuffer renders into a buffer of n bytes including the terminator.
// Output that does not fit is a truncation error.
func (m *Meta) ToSQLBuffer(n int) (string, error) {
	if err := m.live(); err != nil {
		return "", err
	}
	if n <= 0 {
		return "", errorf(KindValidation, "invalid buffer size %d", n)
	}
	buf := make([]byte, n)
	length, err := call(func(e **native.Fault) int {
		return native.MetaToSQLString(m.inner, buf, e)
	})
	if err != nil {
		return "", err
	}
	if length < 0 || length >= n {
		return "", errorf(KindTruncation, "schema string of %d bytes does not fit %d", length, n)
	}
	if end := bytes.IndexByte(buf, 0); end >= 0 {
		buf = buf[:end]
	}
	return string(buf), nil
}

// ColumnAt returns the position of the named column, or -1.
func (m *Meta) ColumnAt(name string) int {
	if m.live() != nil {
		return -1
	}
	return native.ColumnAt(m.inner, name)
}

func (m *Meta) Name() string {
	if m.live() != nil {
		return ""
	}
	return m.inner.Name
}

// Columns returns a copy of the columns in position order.
func (m *Meta) Columns() []Column {
	if m.live() != nil {
		return nil
	}
	return append([]Column(nil), m.inner.Columns...)
}

func (m *Meta) Indexes() []Index {
	if m.live() != nil {
		return nil
	}
	return append([]Index(nil), m.inner.Indexes...)
}

// SetOption sets a descriptor option such as STORAGE, COMPRESSOR, CACHE,
// FORMAT, DELIMITER, QUOTE, NULL or HEADER.
func (m *Meta) SetOption(key, value string) error {
	if err := m.live(); err != nil {
		return err
	}
	return run(func(e **native.Fault) {
		native.MetaSet(m.inner, key, value, e)
	})
}

// SetFormat selects a generic file format. A zero delimiter keeps the
// format's own.
func (m *Meta) SetFormat(format string, delimiter byte) error {
	if err := m.SetOption("FORMAT", format); err != nil {
		return err
	}
	if delimiter == 0 {
		return nil
	}
	return m.SetOption("DELIMITER", string(delimiter))
}

func (m *Meta) SetFormatTSV() error {
	return m.SetFormat("tsv", '\t')
}

func (m *Meta) SetFormatCSV() error {
	return m.SetFormat("csv", ',')
}

// SetStorage selects the table storage; "memory" keeps the table in the
// process until Cleanup.
func (m *Meta) SetStorage(storage string) error {
	return m.SetOption("STORAGE", storage)
}

func (m *Meta) SetCompressor(compressor string) error {
	return m.SetOption("COMPRESSOR", compressor)
}

func (m *Meta) SetCache(entries int) error {
	return m.SetOption("CACHE", strconv.Itoa(entries))
}

// Close releases the descriptor. Further calls do nothing.
func (m *Meta) Close() {
	if m == nil || m.inner == nil {
		return
	}
	native.MetaClose(m.inner)
	m.inner = nil
}

// engine returns the engine descriptor, or nil when m is nil.
func (m *Meta) engine() *native.Meta {
	if m == nil {
		return nil
	}
	return m.inner
}
