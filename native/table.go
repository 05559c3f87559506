package native

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/golang/groupcache/lru"
	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/ps"
	"github.com/nickyhof/flintdb/sql"
)

type OpenMode int

const (
	RDONLY OpenMode = iota
	RDWR
)

func (mode OpenMode) String() string {
	if mode == RDWR {
		return "rdwr"
	}
	return "rdonly"
}

// Table is an open indexed table. Mutating operations are nil on tables
// opened read-only.
type Table struct {
	handle
	name       string
	mode       OpenMode
	meta       *core.Meta
	store      *ps.Persistence
	ids        *treeset.Set
	indexes    *ps.IndexManager
	cache      *lru.Cache
	nextID     int64
	borrowed   *Row
	txn        *Transaction
	txnSeq     int64
	tracked    uint64
	identity   core.Identity
	compressor string

	Rows     func(e **Fault) int64
	Meta     func(e **Fault) *core.Meta
	Apply    func(r *Row, upsert bool, e **Fault) int64
	ApplyAt  func(rowid int64, r *Row, e **Fault) int64
	DeleteAt func(rowid int64, e **Fault) int64
	Find     func(where string, e **Fault) *CursorI64
	One      func(index string, argv []string, e **Fault) *Row
	Read     func(rowid int64, e **Fault) *Row
	Begin    func(e **Fault) *Transaction
	History  func(limit int, e **Fault) []ps.Transaction
	Restore  func(commit string, e **Fault)
	Close    func()
}

// TableOpen opens the table stored under name. Passing a nil meta opens an
// existing table with its stored descriptor; a non-nil meta creates the
// table or must match the stored descriptor.
func TableOpen(name string, mode OpenMode, m *Meta, e **Fault) *Table {
	if name == "" {
		throw(e, InvalidArgument, "table name is empty")
		return nil
	}

	var meta *core.Meta
	if m != nil {
		if !metaValid(m, e) {
			return nil
		}
		clone := m.Clone()
		meta = &clone
		if !checkTableMeta(name, mode, meta, e) {
			return nil
		}
	}

	var store *ps.Persistence
	if s, err := rt.memoryStore(name, false); err == nil {
		store = s
	} else if ps.Exists(name) {
		store, err = ps.OpenFilePersistence(name)
		if err != nil {
			raise(e, StorageRead, fmt.Errorf("failed to open table %s: %w", name, err))
			return nil
		}
	}

	existing := store != nil && store.HasDescriptor()
	if !existing && (mode == RDONLY || meta == nil) {
		throw(e, TableNotFound, "table %s does not exist", name)
		return nil
	}

	defaults, _ := rt.settings()
	if existing {
		text, err := store.Descriptor()
		if err != nil {
			raise(e, StorageRead, fmt.Errorf("failed to read descriptor of %s: %w", name, err))
			return nil
		}
		stored, err := sql.ParseCreateTable(string(text))
		if err != nil {
			throw(e, Corrupt, "invalid descriptor for table %s: %v", name, err)
			return nil
		}
		if meta != nil {
			if err := meta.Compatible(&stored); err != nil {
				raise(e, Incompatible, fmt.Errorf("table %s: %w", name, err))
				return nil
			}
		}
		meta = &stored
	} else {
		var err error
		if strings.EqualFold(meta.Storage, "memory") {
			store, err = rt.memoryStore(name, true)
		} else {
			store, err = ps.NewFilePersistence(name)
		}
		if err != nil {
			raise(e, StorageWrite, fmt.Errorf("failed to create table %s: %w", name, err))
			return nil
		}
		if _, err := store.SaveDescriptor([]byte(sql.FormatCreateTable(meta)), defaults.Identity); err != nil {
			raise(e, StorageWrite, fmt.Errorf("failed to save descriptor of %s: %w", name, err))
			return nil
		}
	}

	t := &Table{
		handle:     newHandle(),
		name:       name,
		mode:       mode,
		meta:       meta,
		store:      store,
		ids:        treeset.NewWith(utils.Int64Comparator),
		indexes:    ps.NewIndexManager(meta),
		identity:   defaults.Identity,
		compressor: meta.Compressor,
	}
	if t.compressor == "" {
		t.compressor = defaults.Compressor
	}
	if _, err := compressorID(t.compressor); err != nil {
		raise(e, InvalidArgument, err)
		return nil
	}
	cacheSize := meta.Cache
	if cacheSize == 0 {
		cacheSize = defaults.Cache
	}
	if cacheSize > 0 {
		t.cache = lru.New(cacheSize)
	}

	if err := t.load(); err != nil {
		raise(e, StorageRead, fmt.Errorf("failed to load table %s: %w", name, err))
		return nil
	}

	t.Rows = t.rows
	t.Meta = t.describe
	t.Find = t.find
	t.One = t.one
	t.Read = t.read
	t.History = t.history
	t.Close = t.close
	if mode == RDWR {
		t.Apply = t.apply
		t.ApplyAt = t.applyAt
		t.DeleteAt = t.deleteAt
		t.Begin = t.begin
		t.Restore = t.restore
	}
	t.tracked = rt.track(t.release)

	rt.log().Debug("table opened", "name", name, "mode", mode, "rows", t.ids.Size(), "memory", store.IsMemory())
	return t
}

func checkTableMeta(name string, mode OpenMode, meta *core.Meta, e **Fault) bool {
	if len(meta.Columns) == 0 {
		throw(e, ColumnMismatch, "meta for table %s has no columns", name)
		return false
	}
	if mode != RDWR {
		return true
	}
	if len(meta.Indexes) == 0 {
		throw(e, NoIndexes, "table %s requires a primary index", name)
		return false
	}
	if meta.Indexes[0].Type != core.PrimaryIndex {
		throw(e, NoIndexes, "first index of table %s must be %s", name, core.PrimaryIndex)
		return false
	}
	return true
}

// TableDrop removes a table. A missing table raises TableNotFound.
func TableDrop(name string, e **Fault) {
	if rt.dropMemory(name) {
		rt.log().Debug("table dropped", "name", name, "memory", true)
		return
	}
	if !ps.Exists(name) {
		throw(e, TableNotFound, "table %s does not exist", name)
		return
	}
	if err := os.RemoveAll(name); err != nil {
		raise(e, StorageDelete, fmt.Errorf("failed to drop table %s: %w", name, err))
		return
	}
	rt.log().Debug("table dropped", "name", name)
}

// load rebuilds row ids and indexes from storage.
func (t *Table) load() error {
	t.ids.Clear()
	t.indexes.Clear()
	if t.cache != nil {
		t.cache.Clear()
	}
	t.nextID = 1

	var err error
	for rowid, data := range t.store.Scan(&err) {
		values, decodeErr := decodeRow(data, t.meta)
		if decodeErr != nil {
			return fmt.Errorf("row %d: %w", rowid, decodeErr)
		}
		if indexErr := t.indexes.Add(rowid, values); indexErr != nil {
			return indexErr
		}
		t.ids.Add(rowid)
		if rowid >= t.nextID {
			t.nextID = rowid + 1
		}
	}
	return err
}

func (t *Table) ok(e **Fault) bool {
	if t == nil {
		throw(e, InvalidArgument, "table is NULL")
		return false
	}
	return t.valid(e, "table")
}

func (t *Table) writable(e **Fault) bool {
	if !t.ok(e) {
		return false
	}
	if t.txn != nil {
		throw(e, TableLocked, "table %s is locked by transaction %d", t.name, t.txn.id)
		return false
	}
	return true
}

func (t *Table) revokeBorrowed() {
	t.borrowed.revoke()
	t.borrowed = nil
}

func (t *Table) uncache(rowid int64) {
	if t.cache != nil {
		t.cache.Remove(rowid)
	}
}

// values returns the stored cells of a row. The slice is shared with the
// cache and must not be modified.
func (t *Table) values(rowid int64) ([]core.Value, bool, error) {
	if t.txn != nil {
		if values, staged := t.txn.pending[rowid]; staged {
			return values, values != nil, nil
		}
	}
	if !t.ids.Contains(rowid) {
		return nil, false, nil
	}
	if t.cache != nil {
		if cached, ok := t.cache.Get(rowid); ok {
			return cached.([]core.Value), true, nil
		}
	}

	data, found := t.store.GetRow(rowid)
	if !found {
		return nil, false, fmt.Errorf("%w: row %d is missing from storage", ErrCorrupt, rowid)
	}
	values, err := decodeRow(data, t.meta)
	if err != nil {
		return nil, false, fmt.Errorf("row %d: %w", rowid, err)
	}
	if t.cache != nil {
		t.cache.Add(rowid, values)
	}
	return values, true, nil
}

// castRow converts the cells of r to the column types of meta and checks
// NOT NULL columns. owner names the table or file in errors.
func castRow(meta *core.Meta, owner string, r *Row, e **Fault) []core.Value {
	if r == nil {
		throw(e, InvalidArgument, "row is NULL")
		return nil
	}
	cells := r.cells(e)
	if cells == nil {
		return nil
	}
	if len(cells) != len(meta.Columns) {
		throw(e, ColumnMismatch, "row has %d columns, %s has %d", len(cells), owner, len(meta.Columns))
		return nil
	}
	values := make([]core.Value, len(cells))
	for i, v := range cells {
		cast, err := core.Cast(v, meta.Columns[i])
		if err != nil {
			raise(e, InvalidDataType, err)
			return nil
		}
		values[i] = cast
	}
	for i, col := range meta.Columns {
		if col.NullSpec == core.NotNull && values[i].IsNil() {
			throw(e, NotNullViolation, "column %s cannot be NULL", col.Name)
			return nil
		}
	}
	return values
}

// put writes values as rowid, replacing old when the row exists.
func (t *Table) put(rowid int64, values, old []core.Value, e **Fault) bool {
	if err := t.indexes.Check(rowid, values); err != nil {
		raise(e, DuplicateKey, err)
		return false
	}
	data, err := encodeRow(values, t.compressor)
	if err != nil {
		raise(e, StorageWrite, err)
		return false
	}

	if t.txn != nil {
		if err := t.txn.builder.AddRow(rowid, data); err != nil {
			raise(e, TransactionFailed, err)
			return false
		}
		t.txn.pending[rowid] = values
	} else if _, err := t.store.SaveRows(map[int64][]byte{rowid: data}, t.identity); err != nil {
		raise(e, StorageWrite, fmt.Errorf("failed to save row %d: %w", rowid, err))
		return false
	}

	if old != nil {
		t.indexes.Remove(rowid, old)
	}
	t.indexes.Add(rowid, values)
	t.ids.Add(rowid)
	if rowid >= t.nextID {
		t.nextID = rowid + 1
	}
	t.uncache(rowid)
	return true
}

func (t *Table) remove(rowid int64, old []core.Value, e **Fault) bool {
	if t.txn != nil {
		if err := t.txn.builder.DeleteRow(rowid); err != nil {
			raise(e, TransactionFailed, err)
			return false
		}
		t.txn.pending[rowid] = nil
	} else if _, err := t.store.DeleteRows([]int64{rowid}, t.identity); err != nil {
		raise(e, StorageDelete, fmt.Errorf("failed to delete row %d: %w", rowid, err))
		return false
	}

	t.indexes.Remove(rowid, old)
	t.ids.Remove(rowid)
	t.uncache(rowid)
	return true
}

func (t *Table) rows(e **Fault) int64 {
	if !t.ok(e) {
		return -1
	}
	return int64(t.ids.Size())
}

func (t *Table) describe(e **Fault) *core.Meta {
	if !t.ok(e) {
		return nil
	}
	return t.meta
}

func (t *Table) apply(r *Row, upsert bool, e **Fault) int64 {
	if !t.writable(e) {
		return -1
	}
	return t.applyRow(r, upsert, e)
}

// applyRow inserts r, or updates the row holding the same primary key when
// upsert is set.
func (t *Table) applyRow(r *Row, upsert bool, e **Fault) int64 {
	values := castRow(t.meta, t.name, r, e)
	if values == nil {
		return -1
	}
	t.revokeBorrowed()

	rowid := t.nextID
	var old []core.Value
	if primary := t.indexes.Primary(); primary != nil {
		key := primary.KeyOf(values)
		if existing := primary.Lookup(key); len(existing) > 0 {
			if !upsert {
				throw(e, DuplicateKey, "%s %s on index %s", ps.ErrDuplicateKey, key, primary.Name)
				return -1
			}
			rowid = existing[0]
			var err error
			if old, _, err = t.values(rowid); err != nil {
				raise(e, StorageRead, err)
				return -1
			}
		}
	}

	if !t.put(rowid, values, old, e) {
		return -1
	}
	return rowid
}

func (t *Table) applyAt(rowid int64, r *Row, e **Fault) int64 {
	if !t.writable(e) {
		return -1
	}
	return t.applyRowAt(rowid, r, e)
}

func (t *Table) applyRowAt(rowid int64, r *Row, e **Fault) int64 {
	if rowid < 1 {
		throw(e, InvalidArgument, "invalid rowid %d", rowid)
		return -1
	}
	values := castRow(t.meta, t.name, r, e)
	if values == nil {
		return -1
	}
	t.revokeBorrowed()

	old, found, err := t.values(rowid)
	if err != nil {
		raise(e, StorageRead, err)
		return -1
	}
	if !found {
		throw(e, RowNotFound, "row %d not found", rowid)
		return -1
	}
	if !t.put(rowid, values, old, e) {
		return -1
	}
	return rowid
}

func (t *Table) deleteAt(rowid int64, e **Fault) int64 {
	if !t.writable(e) {
		return -1
	}
	return t.deleteRowAt(rowid, e)
}

func (t *Table) deleteRowAt(rowid int64, e **Fault) int64 {
	t.revokeBorrowed()
	old, found, err := t.values(rowid)
	if err != nil {
		raise(e, StorageRead, err)
		return -1
	}
	if !found {
		throw(e, RowNotFound, "row %d not found", rowid)
		return -1
	}
	if !t.remove(rowid, old, e) {
		return -1
	}
	return 1
}

func (t *Table) borrow(rowid int64, values []core.Value) *Row {
	row := newRow(t.meta, slices.Clone(values), rowid, true)
	t.borrowed = row
	return row
}

func (t *Table) read(rowid int64, e **Fault) *Row {
	if !t.ok(e) {
		return nil
	}
	t.revokeBorrowed()

	values, found, err := t.values(rowid)
	if err != nil {
		raise(e, StorageRead, err)
		return nil
	}
	if !found {
		throw(e, RowNotFound, "row %d not found", rowid)
		return nil
	}
	return t.borrow(rowid, values)
}

// one finds the first row whose index key equals argv, given in key order
// as text.
func (t *Table) one(index string, argv []string, e **Fault) *Row {
	if !t.ok(e) {
		return nil
	}
	t.revokeBorrowed()

	def, found := t.meta.IndexByName(index)
	idx, built := t.indexes.GetIndex(index)
	if !found || !built {
		throw(e, IndexNotFound, "index %s not found on table %s", index, t.name)
		return nil
	}
	if len(argv) != len(def.Keys) {
		throw(e, InvalidArgument, "index %s has %d keys, got %d values", index, len(def.Keys), len(argv))
		return nil
	}

	key := make(ps.Key, len(argv))
	for i, pos := range idx.Positions {
		v, err := core.ParseValue(argv[i], t.meta.Columns[pos])
		if err != nil {
			raise(e, InvalidDataType, err)
			return nil
		}
		key[i] = v
	}

	for _, rowid := range idx.Lookup(key) {
		values, ok, err := t.values(rowid)
		if err != nil {
			raise(e, StorageRead, err)
			return nil
		}
		if ok {
			return t.borrow(rowid, values)
		}
	}
	throw(e, RowNotFound, "no row matches %s on index %s", key, index)
	return nil
}

func (t *Table) find(where string, e **Fault) *CursorI64 {
	if !t.ok(e) {
		return nil
	}
	t.revokeBorrowed()

	program, err := sql.Compile(where, t.meta)
	if err != nil {
		throw(e, InvalidArgument, "invalid filter %q: %v", where, err)
		return nil
	}
	return newIDCursor(t, program, e)
}

func (t *Table) history(limit int, e **Fault) []ps.Transaction {
	if !t.ok(e) {
		return nil
	}
	return t.store.History(limit)
}

// restore rolls the table back to the rows it held at commit. Row ids
// handed out since then are not reused.
func (t *Table) restore(commit string, e **Fault) {
	if !t.writable(e) {
		return
	}
	t.revokeBorrowed()

	next := t.nextID
	if _, err := t.store.Restore(commit, t.identity); err != nil {
		raise(e, StorageWrite, fmt.Errorf("failed to restore table %s: %w", t.name, err))
		return
	}
	if err := t.load(); err != nil {
		raise(e, StorageRead, fmt.Errorf("failed to reload table %s: %w", t.name, err))
		return
	}
	t.nextID = max(t.nextID, next)
	rt.log().Debug("table restored", "name", t.name, "commit", commit, "rows", t.ids.Size())
}

// release drops transient state. Cleanup calls it for tables that are
// still open.
func (t *Table) release() {
	t.revokeBorrowed()
	if t.txn != nil {
		t.txn.builder.Rollback()
		t.txn.revoked = true
		t.txn = nil
	}
}

// close releases the table. Closing twice panics; closing after Cleanup
// is a no-op.
func (t *Table) close() {
	if t.freed {
		panic("flintdb: double close of table")
	}
	t.freed = true
	if t.gen != rt.current() {
		return
	}
	if t.txn != nil {
		rt.log().Warn("discarding open transaction on close", "table", t.name, "transaction", t.txn.id)
	}
	t.release()
	rt.untrack(t.tracked)
	rt.log().Debug("table closed", "name", t.name)
}
