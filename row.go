package flintdb

import (
	"math"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/native"
)

// Row is a fixed-arity set of values, one per column of its descriptor.
//
// Rows created by NewRow or CreateRow are owned and must be closed. Rows
// returned by Table.Read, Table.One and RowCursor.Next are borrowed: their
// producer invalidates them on its next operation, and Close does nothing.
type Row struct {
	inner *native.Row
	meta  *core.Meta
	owned bool
}

// NewRow creates an owned row with every column set to its default.
func NewRow(m *Meta) (*Row, error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	inner, err := call(func(e **native.Fault) *native.Row {
		return native.RowNew(m.inner, e)
	})
	if err != nil {
		return nil, err
	}
	meta := m.inner.Meta.Clone()
	return &Row{inner: inner, meta: &meta, owned: true}, nil
}

// newOwnedRow creates an owned row for the descriptor of an open table or
// file.
func newOwnedRow(meta *core.Meta) (*Row, error) {
	inner, err := call(func(e **native.Fault) *native.Row {
		return native.RowFrom(meta, e)
	})
	if err != nil {
		return nil, err
	}
	return &Row{inner: inner, meta: meta, owned: true}, nil
}

func borrowedRow(inner *native.Row, meta *core.Meta) *Row {
	return &Row{inner: inner, meta: meta}
}

func (r *Row) live() error {
	if r == nil {
		return errorf(KindValidation, "row is nil")
	}
	if r.inner == nil {
		return closed("row")
	}
	return nil
}

// Owned reports whether the caller must close the row.
func (r *Row) Owned() bool {
	return r != nil && r.owned
}

// Len returns the number of columns, or 0 once the row is closed.
func (r *Row) Len() int {
	if r.live() != nil {
		return 0
	}
	return r.inner.Len()
}

// ID returns the row id the row was read from, or -1 for rows not yet
// stored.
func (r *Row) ID() int64 {
	if r.live() != nil {
		return -1
	}
	return r.inner.ID
}

// ColumnAt resolves a column name against the row's descriptor.
func (r *Row) ColumnAt(name string) int {
	if r == nil || r.meta == nil {
		return -1
	}
	return r.meta.ColumnIndex(name)
}

func (r *Row) resolve(name string) (int, error) {
	col := r.ColumnAt(name)
	if col < 0 {
		return -1, errorf(KindValidation, "column %s not found", name)
	}
	return col, nil
}

// setter guards one native setter: the row must be live and the setter
// wired.
func setter[T any](r *Row, op string, pick func(*native.Row) func(int, T, **native.Fault), col int, v T) error {
	if err := r.live(); err != nil {
		return err
	}
	fn := pick(r.inner)
	if fn == nil {
		return unavailable(op)
	}
	return run(func(e **native.Fault) { fn(col, v, e) })
}

// Set stores v in column col, casting it to the column type.
func (r *Row) Set(col int, v Value) error {
	return setter(r, "set", func(n *native.Row) func(int, core.Value, **native.Fault) { return n.Set }, col, v)
}

func (r *Row) SetInt32(col int, v int32) error {
	return setter(r, "i32_set", func(n *native.Row) func(int, int32, **native.Fault) { return n.I32Set }, col, v)
}

func (r *Row) SetInt64(col int, v int64) error {
	return setter(r, "i64_set", func(n *native.Row) func(int, int64, **native.Fault) { return n.I64Set }, col, v)
}

func (r *Row) SetFloat64(col int, v float64) error {
	return setter(r, "f64_set", func(n *native.Row) func(int, float64, **native.Fault) { return n.F64Set }, col, v)
}

func (r *Row) SetString(col int, v string) error {
	return setter(r, "string_set", func(n *native.Row) func(int, string, **native.Fault) { return n.StringSet }, col, v)
}

func (r *Row) SetBytes(col int, v []byte) error {
	return setter(r, "bytes_set", func(n *native.Row) func(int, []byte, **native.Fault) { return n.BytesSet }, col, v)
}

func (r *Row) SetDate(col int, v time.Time) error {
	return setter(r, "date_set", func(n *native.Row) func(int, time.Time, **native.Fault) { return n.DateSet }, col, v)
}

func (r *Row) SetTime(col int, v time.Time) error {
	return setter(r, "time_set", func(n *native.Row) func(int, time.Time, **native.Fault) { return n.TimeSet }, col, v)
}

func (r *Row) SetUUID(col int, v uuid.UUID) error {
	return setter(r, "uuid_set", func(n *native.Row) func(int, uuid.UUID, **native.Fault) { return n.UUIDSet }, col, v)
}

func (r *Row) SetIPv6(col int, v netip.Addr) error {
	return setter(r, "ipv6_set", func(n *native.Row) func(int, netip.Addr, **native.Fault) { return n.IPv6Set }, col, v)
}

func (r *Row) SetInt8(col int, v int8) error {
	return r.Set(col, core.IntegerValue(core.Int8, int64(v)))
}

func (r *Row) SetInt16(col int, v int16) error {
	return r.Set(col, core.IntegerValue(core.Int16, int64(v)))
}

func (r *Row) SetUint8(col int, v uint8) error {
	return r.Set(col, core.IntegerValue(core.Uint8, int64(v)))
}

func (r *Row) SetUint16(col int, v uint16) error {
	return r.Set(col, core.IntegerValue(core.Uint16, int64(v)))
}

func (r *Row) SetUint32(col int, v uint32) error {
	return r.Set(col, core.IntegerValue(core.Uint32, int64(v)))
}

func (r *Row) SetFloat32(col int, v float32) error {
	return r.Set(col, core.Float32Value(v))
}

// SetDecimal stores the decimal text v, for example "12.50".
func (r *Row) SetDecimal(col int, v string) error {
	return r.Set(col, core.DecimalValue(v))
}

func (r *Row) SetNull(col int) error {
	return r.Set(col, core.NilValue())
}

func (r *Row) SetInt32ByName(name string, v int32) error {
	col, err := r.resolve(name)
	if err != nil {
		return err
	}
	return r.SetInt32(col, v)
}

func (r *Row) SetInt64ByName(name string, v int64) error {
	col, err := r.resolve(name)
	if err != nil {
		return err
	}
	return r.SetInt64(col, v)
}

func (r *Row) SetFloat64ByName(name string, v float64) error {
	col, err := r.resolve(name)
	if err != nil {
		return err
	}
	return r.SetFloat64(col, v)
}

func (r *Row) SetStringByName(name string, v string) error {
	col, err := r.resolve(name)
	if err != nil {
		return err
	}
	return r.SetString(col, v)
}

// Get returns the value in column col.
func (r *Row) Get(col int) (Value, error) {
	if err := r.live(); err != nil {
		return core.NilValue(), err
	}
	if r.inner.Get == nil {
		return core.NilValue(), unavailable("get")
	}
	return call(func(e **native.Fault) core.Value { return r.inner.Get(col, e) })
}

func (r *Row) GetByName(name string) (Value, error) {
	col, err := r.resolve(name)
	if err != nil {
		return core.NilValue(), err
	}
	return r.Get(col)
}

// IsNil reports whether column col holds NULL.
func (r *Row) IsNil(col int) (bool, error) {
	if err := r.live(); err != nil {
		return false, err
	}
	if r.inner.IsNil == nil {
		return false, unavailable("is_nil")
	}
	return call(func(e **native.Fault) bool { return r.inner.IsNil(col, e) })
}

// present fetches a non-NULL value.
func (r *Row) present(col int) (Value, error) {
	v, err := r.Get(col)
	if err != nil {
		return v, err
	}
	if v.IsNil() {
		return v, errorf(KindValidation, "column %d is NULL", col)
	}
	return v, nil
}

func (r *Row) GetInt64(col int) (int64, error) {
	v, err := r.present(col)
	if err != nil {
		return 0, err
	}
	n, ok := v.Int64()
	if !ok {
		return 0, errorf(KindValidation, "column %d holds %s, not an integer", col, v.Type())
	}
	return n, nil
}

func (r *Row) GetInt32(col int) (int32, error) {
	n, err := r.GetInt64(col)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, errorf(KindValidation, "column %d value %d overflows int32", col, n)
	}
	return int32(n), nil
}

func (r *Row) GetFloat64(col int) (float64, error) {
	v, err := r.present(col)
	if err != nil {
		return 0, err
	}
	f, ok := v.Float64()
	if !ok {
		return 0, errorf(KindValidation, "column %d holds %s, not a number", col, v.Type())
	}
	return f, nil
}

// GetString returns the text form of column col. NULL is an error.
func (r *Row) GetString(col int) (string, error) {
	v, err := r.present(col)
	if err != nil {
		return "", err
	}
	return v.Format(), nil
}

func (r *Row) GetBytes(col int) ([]byte, error) {
	v, err := r.present(col)
	if err != nil {
		return nil, err
	}
	b := v.Bytes()
	if b == nil && v.Type() != core.Bytes && v.Type() != core.String {
		return nil, errorf(KindValidation, "column %d holds %s, not bytes", col, v.Type())
	}
	return append([]byte(nil), b...), nil
}

func (r *Row) GetUUID(col int) (uuid.UUID, error) {
	v, err := r.present(col)
	if err != nil {
		return uuid.Nil, err
	}
	id, ok := v.UUID()
	if !ok {
		return uuid.Nil, errorf(KindValidation, "column %d holds %s, not a uuid", col, v.Type())
	}
	return id, nil
}

func (r *Row) GetTime(col int) (time.Time, error) {
	v, err := r.present(col)
	if err != nil {
		return time.Time{}, err
	}
	t, ok := v.Time()
	if !ok {
		return time.Time{}, errorf(KindValidation, "column %d holds %s, not a date or time", col, v.Type())
	}
	return t, nil
}

// Validate checks the NOT NULL constraints of the row.
func (r *Row) Validate() error {
	if err := r.live(); err != nil {
		return err
	}
	if r.inner.Validate == nil {
		return unavailable("validate")
	}
	_, err := call(func(e **native.Fault) bool { return r.inner.Validate(e) })
	return err
}

// Format renders the row as "col=value, ...".
func (r *Row) Format() (string, error) {
	if err := r.live(); err != nil {
		return "", err
	}
	if r.inner.Format == nil {
		return "", unavailable("format")
	}
	return call(func(e **native.Fault) string { return r.inner.Format(e) })
}

func (r *Row) String() string {
	s, err := r.Format()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return s
}

// Copy returns an owned copy of the row, also of a borrowed one.
func (r *Row) Copy() (*Row, error) {
	if err := r.live(); err != nil {
		return nil, err
	}
	if r.inner.Copy == nil {
		return nil, unavailable("copy")
	}
	inner, err := call(func(e **native.Fault) *native.Row { return r.inner.Copy(e) })
	if err != nil {
		return nil, err
	}
	return &Row{inner: inner, meta: r.meta, owned: true}, nil
}

// Close frees an owned row once. Closing a borrowed row, or closing again,
// does nothing.
func (r *Row) Close() {
	if r == nil || r.inner == nil {
		return
	}
	if r.owned && r.inner.Free != nil {
		r.inner.Free()
	}
	r.inner = nil
}
