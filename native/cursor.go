package native

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/sql"
)

// CursorI64 yields the row ids matched by Table.Find. Next returns -1 once
// the ids are exhausted and keeps returning it.
type CursorI64 struct {
	handle
	table    *Table
	program  *sql.Program
	ids      []int64
	pos      int
	filtered bool
	skip     int
	limit    int
	emitted  int
	done     bool

	Next  func(e **Fault) int64
	Close func()
}

func newIDCursor(t *Table, program *sql.Program, e **Fault) *CursorI64 {
	c := &CursorI64{
		handle:   newHandle(),
		table:    t,
		program:  program,
		filtered: true,
		skip:     program.Offset(),
		limit:    program.Limit(),
	}

	indexed := false
	if equalities := program.Equalities(); len(equalities) > 0 {
		if idx, key, ok := t.indexes.Best(equalities); ok {
			c.ids = slices.Clone(idx.Lookup(key))
			indexed = true
		}
	}
	if !indexed {
		c.ids = make([]int64, 0, t.ids.Size())
		for _, id := range t.ids.Values() {
			c.ids = append(c.ids, id.(int64))
		}
	}

	if program.Ordered() {
		if !c.sort(e) {
			return nil
		}
	}

	c.Next = c.next
	c.Close = c.close
	return c
}

// sort materialises the matching rows, orders them and applies the
// offset and limit.
func (c *CursorI64) sort(e **Fault) bool {
	type match struct {
		id     int64
		values []core.Value
	}
	var matches []match
	for _, id := range c.ids {
		values, ok, err := c.table.values(id)
		if err != nil {
			raise(e, StorageRead, err)
			return false
		}
		if ok && c.program.Match(values) {
			matches = append(matches, match{id: id, values: values})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return c.program.Less(matches[i].values, matches[j].values)
	})

	matches = matches[min(c.skip, len(matches)):]
	if c.limit >= 0 && c.limit < len(matches) {
		matches = matches[:c.limit]
	}
	c.ids = make([]int64, len(matches))
	for i, m := range matches {
		c.ids[i] = m.id
	}
	c.filtered = false
	c.skip = 0
	c.limit = -1
	return true
}

func (c *CursorI64) next(e **Fault) int64 {
	if c.done {
		return -1
	}
	if !c.valid(e, "cursor") || !c.table.ok(e) {
		return -1
	}

	for c.pos < len(c.ids) {
		if c.limit >= 0 && c.emitted >= c.limit {
			break
		}
		id := c.ids[c.pos]
		c.pos++

		values, ok, err := c.table.values(id)
		if err != nil {
			raise(e, StorageRead, err)
			return -1
		}
		if !ok {
			continue
		}
		if c.filtered {
			if !c.program.Match(values) {
				continue
			}
			if c.skip > 0 {
				c.skip--
				continue
			}
		}
		c.emitted++
		return id
	}

	c.done = true
	return -1
}

func (c *CursorI64) close() {
	if c.freed {
		panic("flintdb: double close of cursor")
	}
	c.freed = true
	c.ids = nil
}

// recordReader streams the records of a generic file.
type recordReader interface {
	// Read returns io.EOF after the last record.
	Read() ([]core.Value, error)
	Close() error
}

// CursorRow yields the rows matched by GenericFile.Find. Each row is
// borrowed and revoked by the next call to Next or by Close. Next returns
// nil once the rows are exhausted.
type CursorRow struct {
	handle
	meta    *core.Meta
	owner   *handle
	source  recordReader
	sorted  [][]core.Value
	pos     int
	program *sql.Program
	skip    int
	limit   int
	emitted int
	current *Row
	tracked uint64
	done    bool

	Next  func(e **Fault) *Row
	Close func()
}

func newRowCursor(meta *core.Meta, owner *handle, source recordReader, program *sql.Program, e **Fault) *CursorRow {
	c := &CursorRow{
		handle:  newHandle(),
		meta:    meta,
		owner:   owner,
		source:  source,
		program: program,
		skip:    program.Offset(),
		limit:   program.Limit(),
	}

	if program.Ordered() {
		var rows [][]core.Value
		for {
			values, err := source.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				source.Close()
				raise(e, StorageRead, err)
				return nil
			}
			if program.Match(values) {
				rows = append(rows, values)
			}
		}
		source.Close()
		c.source = nil

		sort.SliceStable(rows, func(i, j int) bool {
			return program.Less(rows[i], rows[j])
		})
		rows = rows[min(c.skip, len(rows)):]
		if c.limit >= 0 && c.limit < len(rows) {
			rows = rows[:c.limit]
		}
		c.sorted = rows
		c.skip = 0
		c.limit = -1
	}

	c.Next = c.next
	c.Close = c.close
	c.tracked = rt.track(c.release)
	return c
}

func (c *CursorRow) next(e **Fault) *Row {
	if c.done {
		return nil
	}
	if !c.valid(e, "cursor") || !c.owner.valid(e, "file") {
		return nil
	}
	c.current.revoke()
	c.current = nil

	values, err := c.advance()
	if err != nil {
		raise(e, StorageRead, fmt.Errorf("failed to read record: %w", err))
		return nil
	}
	if values == nil {
		c.done = true
		c.release()
		return nil
	}
	c.emitted++
	c.current = newRow(c.meta, values, -1, true)
	return c.current
}

// advance returns the next matching record, or nil at the end.
func (c *CursorRow) advance() ([]core.Value, error) {
	if c.source == nil {
		if c.pos >= len(c.sorted) {
			return nil, nil
		}
		c.pos++
		return c.sorted[c.pos-1], nil
	}

	for {
		if c.limit >= 0 && c.emitted >= c.limit {
			return nil, nil
		}
		values, err := c.source.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !c.program.Match(values) {
			continue
		}
		if c.skip > 0 {
			c.skip--
			continue
		}
		return values, nil
	}
}

// release closes the underlying reader. Cleanup calls it for cursors that
// are still open.
func (c *CursorRow) release() {
	c.current.revoke()
	c.current = nil
	if c.source != nil {
		c.source.Close()
		c.source = nil
	}
	c.sorted = nil
}

func (c *CursorRow) close() {
	if c.freed {
		panic("flintdb: double close of cursor")
	}
	c.freed = true
	if c.gen != rt.current() {
		return
	}
	c.release()
	rt.untrack(c.tracked)
}
