package flintdb

import (
	"errors"
	"slices"
	"testing"
)

func collectIDs(t *testing.T, table *Table, where string) []int64 {
	t.Helper()
	cursor, err := table.Find(where)
	if err != nil {
		t.Fatalf("Failed to find %q: %v", where, err)
	}
	defer cursor.Close()

	var ids []int64
	for {
		id, ok, err := cursor.Next()
		if err != nil {
			t.Fatalf("Failed to advance cursor: %v", err)
		}
		if !ok {
			return ids
		}
		ids = append(ids, id)
	}
}

func TestIdCursorFilters(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, meta *Meta) {
		table := openTable(t, name, ReadWrite, meta)
		seedCustomers(t, table)

		tests := []struct {
			where string
			want  []int64
		}{
			{"", []int64{1, 2, 3}},
			{"WHERE age >= 31", []int64{2, 3}},
			{"age >= 31", []int64{2, 3}},
			{"WHERE name = 'Customer 1'", []int64{1}},
			{"WHERE age IN (30, 32)", []int64{1, 3}},
			{"ORDER BY age DESC LIMIT 2", []int64{3, 2}},
			{"WHERE age > 99", nil},
		}
		for _, tt := range tests {
			if got := collectIDs(t, table, tt.where); !slices.Equal(got, tt.want) {
				t.Errorf("Expected %v for %q, got %v", tt.want, tt.where, got)
			}
		}

		if _, err := table.Find("WHERE missing = 1"); !errors.Is(err, ErrValidation) {
			t.Errorf("Expected validation error for an unknown column, got %v", err)
		}
	})
}

func TestIdCursorSentinel(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, meta *Meta) {
		table := openTable(t, name, ReadWrite, meta)
		applyCustomer(t, table, 1, "Alice", 30)

		cursor, err := table.Find("")
		if err != nil {
			t.Fatalf("Failed to find rows: %v", err)
		}
		if id, ok, err := cursor.Next(); id != 1 || !ok || err != nil {
			t.Fatalf("Expected id 1, got %d %v %v", id, ok, err)
		}
		for i := 0; i < 3; i++ {
			if id, ok, err := cursor.Next(); ok || err != nil || id != -1 {
				t.Errorf("Expected the sentinel on call %d, got %d %v %v", i, id, ok, err)
			}
		}

		cursor.Close()
		cursor.Close()
		if _, ok, err := cursor.Next(); ok || err != nil {
			t.Errorf("Expected an exhausted cursor to keep the sentinel after close, got %v %v", ok, err)
		}
	})
}

func TestIdCursorAll(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, meta *Meta) {
		table := openTable(t, name, ReadWrite, meta)
		seedCustomers(t, table)

		cursor, err := table.Find("WHERE age >= 31")
		if err != nil {
			t.Fatalf("Failed to find rows: %v", err)
		}
		defer cursor.Close()

		var ids []int64
		for id, err := range cursor.All() {
			if err != nil {
				t.Fatalf("Failed to iterate: %v", err)
			}
			ids = append(ids, id)
			break
		}
		for id, err := range cursor.All() {
			if err != nil {
				t.Fatalf("Failed to iterate: %v", err)
			}
			ids = append(ids, id)
		}
		if !slices.Equal(ids, []int64{2, 3}) {
			t.Errorf("Expected All to resume where it stopped, got %v", ids)
		}
	})
}

func TestIdCursorClosed(t *testing.T) {
	runWithBothStorages(t, func(t *testing.T, name string, meta *Meta) {
		table := openTable(t, name, ReadWrite, meta)
		seedCustomers(t, table)

		cursor, err := table.Find("")
		if err != nil {
			t.Fatalf("Failed to find rows: %v", err)
		}
		cursor.Close()
		if _, _, err := cursor.Next(); !errors.Is(err, ErrClosed) {
			t.Errorf("Expected closed error after close, got %v", err)
		}

		cursor, err = table.Find("")
		if err != nil {
			t.Fatalf("Failed to find rows: %v", err)
		}
		defer cursor.Close()
		table.Close()
		if _, _, err := cursor.Next(); !errors.Is(err, ErrClosed) {
			t.Errorf("Expected closed error once the table is closed, got %v", err)
		}

		var missing *IdCursor
		missing.Close()
		if _, _, err := missing.Next(); !errors.Is(err, ErrClosed) {
			t.Errorf("Expected closed error for a nil cursor, got %v", err)
		}
	})
}
