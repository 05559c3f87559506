//go:build duckdb

package native

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/nickyhof/flintdb/core"
)

func TestParquetRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "customers.parquet")
	m := customerMeta(t, "customers")

	f := openFile(t, name, RDWR, m)
	writeCustomers(t, f, m, "Alice", "Bob")
	f.Close()

	f = openFile(t, name, RDWR, m)
	writeCustomers(t, f, m, "Carol")
	if got := collectNames(t, f, ""); !slices.Equal(got, []string{"Alice", "Bob", "Carol"}) {
		t.Errorf("Expected rewritten parquet to keep earlier rows, got %v", got)
	}
	f.Close()

	meta, err := inferParquetMeta(name)
	if err != nil {
		t.Fatalf("Failed to describe parquet: %v", err)
	}
	if len(meta.Columns) != 3 || meta.Columns[0].Type != core.Int64 || meta.Columns[2].Type != core.Int32 {
		t.Errorf("Expected BIGINT/VARCHAR/INTEGER columns, got %+v", meta.Columns)
	}
}
