package flintdb

import (
	"iter"

	"github.com/nickyhof/flintdb/core"
	"github.com/nickyhof/flintdb/native"
)

// IdCursor yields the row ids matched by Table.Find.
//
// Next returns ok=false with a nil error once the ids are exhausted, and
// keeps doing so on every further call.
type IdCursor struct {
	inner *native.CursorI64
	done  bool
}

func (c *IdCursor) Next() (id int64, ok bool, err error) {
	if c == nil {
		return -1, false, closed("cursor")
	}
	if c.done {
		return -1, false, nil
	}
	if c.inner == nil {
		return -1, false, closed("cursor")
	}
	if c.inner.Next == nil {
		return -1, false, unavailable("next")
	}
	id, err = call(c.inner.Next)
	if err != nil {
		return -1, false, err
	}
	if id < 0 {
		c.done = true
		return -1, false, nil
	}
	return id, true, nil
}

// All iterates over the remaining ids. Iteration stops after the first
// error, which is yielded with id -1.
func (c *IdCursor) All() iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		for {
			id, ok, err := c.Next()
			if err != nil {
				yield(-1, err)
				return
			}
			if !ok || !yield(id, nil) {
				return
			}
		}
	}
}

// Close releases the cursor. Further calls do nothing.
func (c *IdCursor) Close() {
	if c == nil || c.inner == nil {
		return
	}
	if c.inner.Close != nil {
		c.inner.Close()
	}
	c.inner = nil
}

// RowCursor yields the rows matched by GenericFile.Find. Each row is
// borrowed and becomes invalid on the next call to Next or on Close.
type RowCursor struct {
	inner *native.CursorRow
	meta  *core.Meta
	done  bool
}

func (c *RowCursor) Next() (row *Row, ok bool, err error) {
	if c == nil {
		return nil, false, closed("cursor")
	}
	if c.done {
		return nil, false, nil
	}
	if c.inner == nil {
		return nil, false, closed("cursor")
	}
	if c.inner.Next == nil {
		return nil, false, unavailable("next")
	}
	inner, err := call(c.inner.Next)
	if err != nil {
		return nil, false, err
	}
	if inner == nil {
		c.done = true
		return nil, false, nil
	}
	return borrowedRow(inner, c.meta), true, nil
}

// All iterates over the remaining rows. Each row is only valid inside its
// loop iteration.
func (c *RowCursor) All() iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		for {
			row, ok, err := c.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok || !yield(row, nil) {
				return
			}
		}
	}
}

func (c *RowCursor) Close() {
	if c == nil || c.inner == nil {
		return
	}
	if c.inner.Close != nil {
		c.inner.Close()
	}
	c.inner = nil
}
