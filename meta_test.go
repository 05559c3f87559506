package flintdb

import (
	"errors"
	"strings"
	"testing"
)

// customerMeta builds id INT64 primary key, name STRING(50), age INT32 with
// an index on age.
func customerMeta(t *testing.T, name string) *Meta {
	t.Helper()
	meta, err := NewMeta(name)
	if err != nil {
		t.Fatalf("Failed to create meta: %v", err)
	}
	t.Cleanup(meta.Close)

	columns := []struct {
		name     string
		typ      Type
		size     int
		nullSpec NullSpec
		def      string
		comment  string
	}{
		{"id", Int64, 0, NotNull, "0", "PRIMARY KEY"},
		{"name", String, 50, NotNull, "", ""},
		{"age", Int32, 0, NotNull, "0", ""},
	}
	for _, c := range columns {
		if err := meta.AddColumn(c.name, c.typ, c.size, 0, c.nullSpec, c.def, c.comment); err != nil {
			t.Fatalf("Failed to add column %s: %v", c.name, err)
		}
	}
	if err := meta.AddIndex(PrimaryIndex, "id"); err != nil {
		t.Fatalf("Failed to add primary index: %v", err)
	}
	if err := meta.AddIndex("ix_age", "age"); err != nil {
		t.Fatalf("Failed to add age index: %v", err)
	}
	return meta
}

func TestMetaColumnOrder(t *testing.T) {
	meta := customerMeta(t, "customer")

	for i, name := range []string{"id", "name", "age"} {
		if got := meta.ColumnAt(name); got != i {
			t.Errorf("Expected %s at %d, got %d", name, i, got)
		}
	}
	if got := meta.ColumnAt("AGE"); got != 2 {
		t.Errorf("Expected case-insensitive lookup, got %d", got)
	}
	if got := meta.ColumnAt("missing"); got != -1 {
		t.Errorf("Expected -1 for a missing column, got %d", got)
	}
	if cols := meta.Columns(); len(cols) != 3 || cols[1].Bytes != 50 {
		t.Errorf("Expected 3 columns with name STRING(50), got %+v", cols)
	}
}

func TestMetaToSQL(t *testing.T) {
	meta := customerMeta(t, "customer")

	text, err := meta.ToSQL()
	if err != nil {
		t.Fatalf("Failed to render meta: %v", err)
	}
	if strings.IndexByte(text, 0) >= 0 {
		t.Error("Expected no terminator in the rendered text")
	}

	last := -1
	for _, part := range []string{"CREATE TABLE customer", "id INT64", "name STRING(50)", "age INT", "PRIMARY KEY (id)", "KEY ix_age (age)"} {
		pos := strings.Index(text, part)
		if pos < 0 {
			t.Fatalf("Expected %q in %q", part, text)
		}
		if pos < last {
			t.Errorf("Expected %q after the previous part in %q", part, text)
		}
		last = pos
	}

	parsed, err := ParseMeta(text)
	if err != nil {
		t.Fatalf("Failed to parse rendered meta: %v", err)
	}
	defer parsed.Close()
	again, err := parsed.ToSQL()
	if err != nil {
		t.Fatalf("Failed to render parsed meta: %v", err)
	}
	if again != text {
		t.Errorf("Expected round trip to keep the text, got %q", again)
	}
}

func TestMetaToSQLTruncation(t *testing.T) {
	meta := customerMeta(t, "customer")

	_, err := meta.ToSQLBuffer(16)
	if !errors.Is(err, ErrTruncation) {
		t.Errorf("Expected truncation error, got %v", err)
	}

	text, err := meta.ToSQL()
	if err != nil {
		t.Fatalf("Failed to render meta: %v", err)
	}
	if _, err := meta.ToSQLBuffer(len(text)); !errors.Is(err, ErrTruncation) {
		t.Errorf("Expected truncation without room for the terminator, got %v", err)
	}
	if got, err := meta.ToSQLBuffer(len(text) + 1); err != nil || got != text {
		t.Errorf("Expected exact fit to succeed, got %q %v", got, err)
	}
}

func TestMetaValidation(t *testing.T) {
	meta := customerMeta(t, "customer")

	tests := []struct {
		name string
		add  func() error
	}{
		{"duplicate column", func() error { return meta.AddColumn("ID", Int32, 0, 0, Nullable, "", "") }},
		{"long column name", func() error { return meta.AddColumn(strings.Repeat("c", 40), Int32, 0, 0, Nullable, "", "") }},
		{"bad default", func() error { return meta.AddColumn("score", Int32, 0, 0, Nullable, "abc", "") }},
		{"unknown key", func() error { return meta.AddIndex("ix_missing", "missing") }},
		{"long key", func() error { return meta.AddIndex("ix_long", strings.Repeat("k", 40)) }},
		{"duplicate index", func() error { return meta.AddIndex("ix_age", "age") }},
		{"no keys", func() error { return meta.AddIndex("ix_empty") }},
	}
	for _, tt := range tests {
		if err := tt.add(); !errors.Is(err, ErrValidation) {
			t.Errorf("Expected validation error for %s, got %v", tt.name, err)
		}
	}
	if n := len(meta.Columns()); n != 3 {
		t.Errorf("Expected failed additions to leave 3 columns, got %d", n)
	}

	if _, err := NewMeta(strings.Repeat("x", 64)); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error for a long name, got %v", err)
	}
}

func TestMetaOptions(t *testing.T) {
	meta := customerMeta(t, "customer")

	if err := meta.SetFormatTSV(); err != nil {
		t.Fatalf("Failed to set format: %v", err)
	}
	if err := meta.SetCompressor("zstd"); err != nil {
		t.Fatalf("Failed to set compressor: %v", err)
	}
	if err := meta.SetCompressor("snappy"); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error for an unknown compressor, got %v", err)
	}
	if err := meta.SetOption("COLOR", "red"); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error for an unknown option, got %v", err)
	}

	text, err := meta.ToSQL()
	if err != nil {
		t.Fatalf("Failed to render meta: %v", err)
	}
	if !strings.Contains(strings.ToUpper(text), "ZSTD") {
		t.Errorf("Expected compressor in %q", text)
	}
}

func TestMetaClose(t *testing.T) {
	meta, err := NewMeta("customer")
	if err != nil {
		t.Fatalf("Failed to create meta: %v", err)
	}
	meta.Close()
	meta.Close()

	if err := meta.AddColumn("id", Int64, 0, 0, NotNull, "", ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected closed error, got %v", err)
	}
	if _, err := meta.ToSQL(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected closed error, got %v", err)
	}
	if got := meta.ColumnAt("id"); got != -1 {
		t.Errorf("Expected -1 on a closed meta, got %d", got)
	}
	if _, err := NewRow(meta); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected closed error creating a row, got %v", err)
	}
	if _, err := OpenTable("x.flintdb", ReadWrite, meta); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected closed error opening a table, got %v", err)
	}
}
