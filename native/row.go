package native

import (
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/flintdb/core"
)

// Row holds one value per column of its descriptor. Rows handed out by a
// table, file or cursor are borrowed: the producer revokes them on its next
// operation and freeing them panics.
type Row struct {
	handle
	ID       int64
	meta     *core.Meta
	values   []core.Value
	borrowed bool

	Set       func(col int, v core.Value, e **Fault)
	I32Set    func(col int, v int32, e **Fault)
	I64Set    func(col int, v int64, e **Fault)
	F64Set    func(col int, v float64, e **Fault)
	StringSet func(col int, v string, e **Fault)
	BytesSet  func(col int, v []byte, e **Fault)
	DateSet   func(col int, v time.Time, e **Fault)
	TimeSet   func(col int, v time.Time, e **Fault)
	UUIDSet   func(col int, v uuid.UUID, e **Fault)
	IPv6Set   func(col int, v netip.Addr, e **Fault)
	Get       func(col int, e **Fault) core.Value
	IsNil     func(col int, e **Fault) bool
	Copy      func(e **Fault) *Row
	Validate  func(e **Fault) bool
	Format    func(e **Fault) string
	Free      func()
}

// RowNew creates an owned row with every column set to its default.
func RowNew(m *Meta, e **Fault) *Row {
	if !metaValid(m, e) {
		return nil
	}
	if len(m.Columns) == 0 {
		throw(e, ColumnMismatch, "meta has no columns")
		return nil
	}
	return RowFrom(&m.Meta, e)
}

// RowFrom creates an owned row for a descriptor handed out by a table or
// file.
func RowFrom(meta *core.Meta, e **Fault) *Row {
	if meta == nil {
		throw(e, InvalidArgument, "meta is NULL")
		return nil
	}
	values, err := meta.DefaultValues()
	if err != nil {
		raise(e, InvalidDataType, err)
		return nil
	}
	clone := meta.Clone()
	return newRow(&clone, values, -1, false)
}

func newRow(meta *core.Meta, values []core.Value, rowid int64, borrowed bool) *Row {
	r := &Row{handle: newHandle(), ID: rowid, meta: meta, values: values, borrowed: borrowed}
	r.Set = r.set
	r.I32Set = func(col int, v int32, e **Fault) { r.set(col, core.Int32Value(v), e) }
	r.I64Set = func(col int, v int64, e **Fault) { r.set(col, core.Int64Value(v), e) }
	r.F64Set = func(col int, v float64, e **Fault) { r.set(col, core.Float64Value(v), e) }
	r.StringSet = func(col int, v string, e **Fault) { r.set(col, core.StringValue(v), e) }
	r.BytesSet = func(col int, v []byte, e **Fault) { r.set(col, core.BytesValue(v), e) }
	r.DateSet = func(col int, v time.Time, e **Fault) { r.set(col, core.DateValue(v), e) }
	r.TimeSet = func(col int, v time.Time, e **Fault) { r.set(col, core.TimeValue(v), e) }
	r.UUIDSet = func(col int, v uuid.UUID, e **Fault) { r.set(col, core.UUIDValue(v), e) }
	r.IPv6Set = func(col int, v netip.Addr, e **Fault) { r.set(col, core.IPv6Value(v), e) }
	r.Get = r.get
	r.IsNil = func(col int, e **Fault) bool { return r.get(col, e).IsNil() }
	r.Copy = r.copy
	r.Validate = r.validate
	r.Format = r.format
	r.Free = r.free
	return r
}

func (r *Row) column(col int, e **Fault) bool {
	if !r.valid(e, "row") {
		return false
	}
	if col < 0 || col >= len(r.values) {
		throw(e, ColumnMismatch, "column index %d out of range (0..%d)", col, len(r.values)-1)
		return false
	}
	return true
}

func (r *Row) set(col int, v core.Value, e **Fault) {
	if !r.column(col, e) {
		return
	}
	cast, err := core.Cast(v, r.meta.Columns[col])
	if err != nil {
		raise(e, InvalidDataType, err)
		return
	}
	r.values[col] = cast
}

func (r *Row) get(col int, e **Fault) core.Value {
	if !r.column(col, e) {
		return core.NilValue()
	}
	return r.values[col]
}

func (r *Row) copy(e **Fault) *Row {
	if !r.valid(e, "row") {
		return nil
	}
	return newRow(r.meta, append([]core.Value(nil), r.values...), r.ID, false)
}

// validate checks NOT NULL constraints.
func (r *Row) validate(e **Fault) bool {
	if !r.valid(e, "row") {
		return false
	}
	for i, col := range r.meta.Columns {
		if col.NullSpec == core.NotNull && r.values[i].IsNil() {
			throw(e, NotNullViolation, "column %s cannot be NULL", col.Name)
			return false
		}
	}
	return true
}

func (r *Row) format(e **Fault) string {
	if !r.valid(e, "row") {
		return ""
	}
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = r.meta.Columns[i].Name + "=" + v.String()
	}
	return strings.Join(parts, ", ")
}

func (r *Row) free() {
	switch {
	case r.borrowed:
		panic("flintdb: free of borrowed row")
	case r.freed:
		panic("flintdb: double free of row")
	}
	r.freed = true
	r.values = nil
}

// Len returns the number of columns.
func (r *Row) Len() int {
	return len(r.values)
}

// Borrowed reports whether the row belongs to its producer.
func (r *Row) Borrowed() bool {
	return r.borrowed
}

// revoke ends the lifetime of a borrowed row.
func (r *Row) revoke() {
	if r != nil {
		r.revoked = true
	}
}

// cells returns the row values without copying them.
func (r *Row) cells(e **Fault) []core.Value {
	if !r.valid(e, "row") {
		return nil
	}
	return r.values
}
