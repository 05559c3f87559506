package native

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nickyhof/flintdb/core"
)

func TestRowNewDefaults(t *testing.T) {
	var e *Fault
	m := MetaNew("defaults", &e)
	ColumnsAdd(m, "id", core.Int64, 0, 0, core.NotNull, "", "", &e)
	ColumnsAdd(m, "status", core.String, 8, 0, core.Nullable, "new", "", &e)
	ColumnsAdd(m, "score", core.Int32, 0, 0, core.Nullable, "7", "", &e)
	if e != nil {
		t.Fatalf("Failed to build meta: %v", e)
	}

	r := RowNew(m, &e)
	if e != nil {
		t.Fatalf("Failed to create row: %v", e)
	}
	defer r.Free()

	if r.Len() != 3 {
		t.Errorf("Expected 3 columns, got %d", r.Len())
	}
	if !r.IsNil(0, &e) {
		t.Error("Expected id to start NULL")
	}
	if got := r.Get(1, &e).Format(); got != "new" {
		t.Errorf("Expected default 'new', got %q", got)
	}
	if got, _ := r.Get(2, &e).Int64(); got != 7 {
		t.Errorf("Expected default 7, got %d", got)
	}
	if r.Borrowed() {
		t.Error("Expected RowNew to return an owned row")
	}
}

func TestRowSetters(t *testing.T) {
	m := customerMeta(t, "customer")
	var e *Fault
	r := RowNew(m, &e)
	defer r.Free()

	r.I64Set(0, 1, &e)
	r.StringSet(1, "Alice", &e)
	r.I32Set(2, 30, &e)
	if e != nil {
		t.Fatalf("Failed to set values: %v", e)
	}
	if got := r.Format(&e); got != "id=1, name=Alice, age=30" {
		t.Errorf("Expected formatted row, got %q", got)
	}

	r.StringSet(2, "31", &e)
	if e != nil {
		t.Fatalf("Failed to set numeric text: %v", e)
	}
	if got, _ := r.Get(2, &e).Int64(); got != 31 {
		t.Errorf("Expected text to cast to 31, got %d", got)
	}
}

func TestRowSetErrors(t *testing.T) {
	m := customerMeta(t, "customer")
	var e *Fault
	r := RowNew(m, &e)
	defer r.Free()

	r.I32Set(3, 1, &e)
	if e == nil || e.Code != ColumnMismatch {
		t.Errorf("Expected ColumnMismatch for column 3, got %v", e)
	}

	e = nil
	r.StringSet(2, "abc", &e)
	if e == nil || e.Code != InvalidDataType {
		t.Errorf("Expected InvalidDataType for 'abc' into INT32, got %v", e)
	}

	e = nil
	r.StringSet(1, strings.Repeat("n", 33), &e)
	if e == nil || e.Code != RowBytesExceeded {
		t.Errorf("Expected RowBytesExceeded for 33 bytes into STRING(32), got %v", e)
	}

	e = nil
	r.UUIDSet(2, uuid.New(), &e)
	if e == nil {
		t.Error("Expected error for UUID into INT32")
	}
}

func TestRowValidate(t *testing.T) {
	m := customerMeta(t, "customer")
	var e *Fault
	r := RowNew(m, &e)
	defer r.Free()

	if r.Validate(&e) {
		t.Error("Expected validation to fail with NULL id")
	}
	if e == nil || e.Code != NotNullViolation {
		t.Errorf("Expected NotNullViolation, got %v", e)
	}

	e = nil
	r.I64Set(0, 1, &e)
	r.StringSet(1, "Alice", &e)
	if !r.Validate(&e) {
		t.Errorf("Expected validation to pass, got %v", e)
	}
}

func TestRowCopy(t *testing.T) {
	m := customerMeta(t, "customer")
	var e *Fault
	r := RowNew(m, &e)
	r.I64Set(0, 1, &e)

	c := r.Copy(&e)
	if e != nil {
		t.Fatalf("Failed to copy row: %v", e)
	}
	r.I64Set(0, 2, &e)
	if got, _ := c.Get(0, &e).Int64(); got != 1 {
		t.Errorf("Expected copy to keep 1, got %d", got)
	}

	r.Free()
	if c.IsNil(0, &e) || e != nil {
		t.Errorf("Expected copy to survive the original, got %v", e)
	}
	c.Free()
}

func TestRowFree(t *testing.T) {
	m := customerMeta(t, "customer")
	var e *Fault
	r := RowNew(m, &e)
	r.Free()

	r.I64Set(0, 1, &e)
	if e == nil || e.Code != InvalidHandle {
		t.Errorf("Expected InvalidHandle after free, got %v", e)
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on double free")
		}
	}()
	r.Free()
}

func TestBorrowedRowFreePanics(t *testing.T) {
	meta := core.Meta{Columns: []core.Column{{Name: "a", Type: core.Int32}}}
	r := newRow(&meta, []core.Value{core.Int32Value(1)}, 1, true)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic when freeing a borrowed row")
		}
	}()
	r.Free()
}
