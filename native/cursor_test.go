package native

import (
	"slices"
	"testing"
)

func collectIDs(t *testing.T, tbl *Table, where string) []int64 {
	t.Helper()
	var e *Fault
	c := tbl.Find(where, &e)
	if e != nil {
		t.Fatalf("Failed to find %q: %v", where, e)
	}
	defer c.Close()

	var ids []int64
	for {
		id := c.Next(&e)
		if e != nil {
			t.Fatalf("Failed to advance cursor: %v", e)
		}
		if id < 0 {
			return ids
		}
		ids = append(ids, id)
	}
}

func TestCursorI64(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, m *Meta) {
		tbl := openTable(t, name, RDWR, m)
		defer tbl.Close()
		seedCustomers(t, tbl)

		tests := []struct {
			where string
			want  []int64
		}{
			{"", []int64{1, 2, 3}},
			{"WHERE age >= 31", []int64{2, 3}},
			{"age < 31 OR name = 'Carol'", []int64{1, 3}},
			{"WHERE id = 2", []int64{2}},
			{"WHERE name LIKE 'B%'", []int64{2}},
			{"ORDER BY age DESC", []int64{3, 2, 1}},
			{"ORDER BY age DESC LIMIT 2", []int64{3, 2}},
			{"LIMIT 1 OFFSET 1", []int64{2}},
			{"WHERE age > 99", nil},
		}
		for _, tt := range tests {
			if got := collectIDs(t, tbl, tt.where); !slices.Equal(got, tt.want) {
				t.Errorf("Expected %v for %q, got %v", tt.want, tt.where, got)
			}
		}
	})
}

func TestCursorI64Exhausted(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, m *Meta) {
		tbl := openTable(t, name, RDWR, m)
		defer tbl.Close()
		applyCustomer(t, tbl, 1, "Alice", 30)

		var e *Fault
		c := tbl.Find("", &e)
		defer c.Close()
		if id := c.Next(&e); id != 1 {
			t.Fatalf("Expected id 1, got %d", id)
		}
		for i := 0; i < 3; i++ {
			if id := c.Next(&e); id != -1 || e != nil {
				t.Errorf("Expected sentinel on call %d, got %d %v", i, id, e)
			}
		}
	})
}

func TestCursorI64SkipsDeletedRows(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, m *Meta) {
		tbl := openTable(t, name, RDWR, m)
		defer tbl.Close()
		seedCustomers(t, tbl)

		var e *Fault
		c := tbl.Find("", &e)
		defer c.Close()
		c.Next(&e)
		tbl.DeleteAt(2, &e)

		if id := c.Next(&e); id != 3 {
			t.Errorf("Expected deleted row to be skipped, got %d", id)
		}
	})
}

func TestCursorI64Errors(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, m *Meta) {
		tbl := openTable(t, name, RDWR, m)
		seedCustomers(t, tbl)

		var e *Fault
		if c := tbl.Find("WHERE missing = 1", &e); c != nil || e == nil || e.Code != InvalidArgument {
			t.Errorf("Expected InvalidArgument for unknown column, got %v", e)
		}

		e = nil
		c := tbl.Find("", &e)
		tbl.Close()
		c.Next(&e)
		if e == nil || e.Code != InvalidHandle {
			t.Errorf("Expected InvalidHandle once the table is closed, got %v", e)
		}
		c.Close()

		defer func() {
			if recover() == nil {
				t.Error("Expected panic on double close")
			}
		}()
		c.Close()
	})
}
