package flintdb

import (
	"errors"

	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/native"
	"github.com/nickyhof/flintdb/ps"
)

// Mode selects how a table or file is opened.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (mode Mode) openMode() native.OpenMode {
	if mode == ReadWrite {
		return native.RDWR
	}
	return native.RDONLY
}

func (mode Mode) String() string {
	return mode.openMode().String()
}

// Commit is one entry of a table's history.
type Commit = ps.Transaction

// Table is an open indexed table. It must be closed exactly once; Close
// is safe to repeat.
type Table struct {
	inner *native.Table
	name  string
	meta  *core.Meta
}

// OpenTable opens the table stored under name. A nil meta opens an existing
// table with its stored descriptor. A non-nil meta creates the table when it
// does not exist, and must match the stored descriptor when it does.
func OpenTable(name string, mode Mode, meta *Meta) (*Table, error) {
	if meta != nil && meta.inner == nil {
		return nil, closed("meta")
	}
	inner, err := call(func(e **native.Fault) *native.Table {
		return native.TableOpen(name, mode.openMode(), meta.engine(), e)
	})
	if err != nil {
		return nil, err
	}
	t := &Table{inner: inner, name: name}
	if inner.Meta == nil {
		t.Close()
		return nil, unavailable("meta")
	}
	t.meta, err = call(inner.Meta)
	if err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// DropTable removes a table. Dropping a table that does not exist
// succeeds.
func DropTable(name string) error {
	err := run(func(e **native.Fault) { native.TableDrop(name, e) })
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (t *Table) live() error {
	if t == nil || t.inner == nil {
		return closed("table")
	}
	return nil
}

func (t *Table) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// CreateRow creates an owned row for the table's columns.
func (t *Table) CreateRow() (*Row, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	return newOwnedRow(t.meta)
}

// Meta returns a copy of the table descriptor. The caller closes it.
func (t *Table) Meta() (*Meta, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	if t.inner.Meta == nil {
		return nil, unavailable("meta")
	}
	meta, err := call(t.inner.Meta)
	if err != nil {
		return nil, err
	}
	return dupMeta(meta)
}

func (t *Table) Rows() (int64, error) {
	if err := t.live(); err != nil {
		return -1, err
	}
	if t.inner.Rows == nil {
		return -1, unavailable("rows")
	}
	return call(t.inner.Rows)
}

// Apply stores r, replacing the row with the same primary key, and returns
// its row id.
func (t *Table) Apply(r *Row) (int64, error) {
	return t.apply(r, true, "apply")
}

// Insert stores r as a new row. A row with the same primary key is a
// validation error.
func (t *Table) Insert(r *Row) (int64, error) {
	return t.apply(r, false, "insert")
}

func (t *Table) apply(r *Row, upsert bool, op string) (int64, error) {
	if err := t.live(); err != nil {
		return -1, err
	}
	if t.inner.Apply == nil {
		return -1, unavailable(op)
	}
	if err := r.live(); err != nil {
		return -1, err
	}
	id, err := call(func(e **native.Fault) int64 { return t.inner.Apply(r.inner, upsert, e) })
	return rowID(op, id, err)
}

// rowID rejects a negative id reported without a fault.
func rowID(op string, id int64, err error) (int64, error) {
	if err != nil {
		return -1, err
	}
	if id < 0 {
		return -1, errorf(KindInternal, "%s returned invalid row id %d", op, id)
	}
	return id, nil
}

// ApplyAt replaces the row stored at rowid with r. A rowid holding no row
// fails with ErrNotFound.
func (t *Table) ApplyAt(rowid int64, r *Row) error {
	if err := t.live(); err != nil {
		return err
	}
	if t.inner.ApplyAt == nil {
		return unavailable("apply_at")
	}
	if err := r.live(); err != nil {
		return err
	}
	id, err := call(func(e **native.Fault) int64 { return t.inner.ApplyAt(rowid, r.inner, e) })
	_, err = rowID("apply_at", id, err)
	return err
}

func (t *Table) DeleteAt(rowid int64) error {
	if err := t.live(); err != nil {
		return err
	}
	if t.inner.DeleteAt == nil {
		return unavailable("delete_at")
	}
	n, err := call(func(e **native.Fault) int64 { return t.inner.DeleteAt(rowid, e) })
	_, err = rowID("delete_at", n, err)
	return err
}

// Read returns the row stored at rowid. The row is borrowed and stays
// valid until the next operation on the table.
func (t *Table) Read(rowid int64) (*Row, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	if t.inner.Read == nil {
		return nil, unavailable("read")
	}
	inner, err := call(func(e **native.Fault) *native.Row { return t.inner.Read(rowid, e) })
	if err != nil {
		return nil, err
	}
	return borrowedRow(inner, t.meta), nil
}

// One returns the first row whose index key equals values, given as text
// in key order. The row is borrowed like one returned by Read.
func (t *Table) One(index string, values ...string) (*Row, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	if t.inner.One == nil {
		return nil, unavailable("one")
	}
	inner, err := call(func(e **native.Fault) *native.Row { return t.inner.One(index, values, e) })
	if err != nil {
		return nil, err
	}
	return borrowedRow(inner, t.meta), nil
}

// Find starts a filtered scan, for example "WHERE age >= 31 ORDER BY name".
// An empty filter matches every row in id order.
func (t *Table) Find(where string) (*IdCursor, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	if t.inner.Find == nil {
		return nil, unavailable("find")
	}
	inner, err := call(func(e **native.Fault) *native.CursorI64 { return t.inner.Find(where, e) })
	if err != nil {
		return nil, err
	}
	return &IdCursor{inner: inner}, nil
}

// History lists the table's commits, newest first. A limit of 0 returns
// all of them.
func (t *Table) History(limit int) ([]Commit, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	if t.inner.History == nil {
		return nil, unavailable("history")
	}
	return call(func(e **native.Fault) []Commit { return t.inner.History(limit, e) })
}

// Restore brings the table back to its rows as of commit, one of the ids
// listed by History. The restore is itself recorded as a new commit.
func (t *Table) Restore(commit string) error {
	if err := t.live(); err != nil {
		return err
	}
	if t.inner.Restore == nil {
		return unavailable("restore")
	}
	return run(func(e **native.Fault) { t.inner.Restore(commit, e) })
}

// Begin starts a transaction. Until it commits or rolls back, direct
// mutations of the table fail.
func (t *Table) Begin() (*Transaction, error) {
	if err := t.live(); err != nil {
		return nil, err
	}
	if t.inner.Begin == nil {
		return nil, unavailable("begin")
	}
	inner, err := call(t.inner.Begin)
	if err != nil {
		return nil, err
	}
	return &Transaction{inner: inner}, nil
}

// Close releases the table. Rows borrowed from it become invalid.
func (t *Table) Close() error {
	if t == nil || t.inner == nil {
		return nil
	}
	if t.inner.Close != nil {
		t.inner.Close()
	}
	t.inner = nil
	return nil
}
