package flintdb

import (
	"fmt"
	"path/filepath"
	"strconv"
	"testing"
)

// setupBenchmarkTable creates a memory table holding 1000 users.
func setupBenchmarkTable(b *testing.B) *Table {
	meta, err := NewMeta("bench_users")
	if err != nil {
		b.Fatalf("Failed to create meta: %v", err)
	}
	defer meta.Close()
	for _, c := range []struct {
		name string
		typ  Type
		size int
	}{
		{"id", Int64, 0},
		{"name", String, 32},
		{"age", Int32, 0},
		{"city", String, 32},
	} {
		if err := meta.AddColumn(c.name, c.typ, c.size, 0, NotNull, "", ""); err != nil {
			b.Fatalf("Failed to add column: %v", err)
		}
	}
	if err := meta.AddIndex(PrimaryIndex, "id"); err != nil {
		b.Fatalf("Failed to add index: %v", err)
	}
	if err := meta.AddIndex("ix_city", "city"); err != nil {
		b.Fatalf("Failed to add index: %v", err)
	}
	if err := meta.SetStorage("memory"); err != nil {
		b.Fatalf("Failed to set storage: %v", err)
	}

	name := "memory:" + b.Name()
	table, err := OpenTable(name, ReadWrite, meta)
	if err != nil {
		b.Fatalf("Failed to open table: %v", err)
	}
	b.Cleanup(func() {
		table.Close()
		DropTable(name)
	})

	txn, err := table.Begin()
	if err != nil {
		b.Fatalf("Failed to begin: %v", err)
	}
	for i := 1; i <= 1000; i++ {
		row := benchmarkRow(b, table, int64(i))
		if _, err := txn.Apply(row); err != nil {
			b.Fatalf("Failed to apply: %v", err)
		}
		row.Close()
	}
	if err := txn.Commit(); err != nil {
		b.Fatalf("Failed to commit: %v", err)
	}
	txn.Close()
	return table
}

func benchmarkRow(b *testing.B, table *Table, id int64) *Row {
	row, err := table.CreateRow()
	if err != nil {
		b.Fatalf("Failed to create row: %v", err)
	}
	row.SetInt64(0, id)
	row.SetString(1, "User"+strconv.FormatInt(id, 10))
	row.SetInt32(2, int32(20+id%50))
	row.SetString(3, "City"+strconv.FormatInt(id%10, 10))
	return row
}

func drain(b *testing.B, cursor *IdCursor) int {
	defer cursor.Close()
	n := 0
	for _, err := range cursor.All() {
		if err != nil {
			b.Fatalf("Cursor error: %v", err)
		}
		n++
	}
	return n
}

// BenchmarkFind measures filter compilation plus a full scan.
func BenchmarkFind(b *testing.B) {
	table := setupBenchmarkTable(b)

	filters := []struct {
		name   string
		filter string
	}{
		{"All", ""},
		{"Where", "WHERE age > 30"},
		{"OrderBy", "ORDER BY age DESC"},
		{"In", "WHERE city IN ('City1', 'City2', 'City3')"},
		{"Complex", "WHERE age > 25 AND city = 'City5' ORDER BY name ASC LIMIT 10"},
		{"PrimaryKey", "WHERE id = 500"},
	}

	for _, f := range filters {
		b.Run(f.name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				cursor, err := table.Find(f.filter)
				if err != nil {
					b.Fatalf("Find error: %v", err)
				}
				drain(b, cursor)
			}
		})
	}
}

func BenchmarkRead(b *testing.B) {
	table := setupBenchmarkTable(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := table.Read(int64(i%1000) + 1); err != nil {
			b.Fatalf("Read error: %v", err)
		}
	}
}

func BenchmarkOne(b *testing.B) {
	table := setupBenchmarkTable(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := table.One(PrimaryIndex, strconv.Itoa(i%1000+1)); err != nil {
			b.Fatalf("One error: %v", err)
		}
	}
}

// BenchmarkApply measures single-row commits.
func BenchmarkApply(b *testing.B) {
	table := setupBenchmarkTable(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		row := benchmarkRow(b, table, int64(1001+i))
		if _, err := table.Apply(row); err != nil {
			b.Fatalf("Apply error: %v", err)
		}
		row.Close()
	}
}

// BenchmarkTransaction measures batches of 100 rows per commit.
func BenchmarkTransaction(b *testing.B) {
	table := setupBenchmarkTable(b)
	b.ResetTimer()

	next := int64(1001)
	for i := 0; i < b.N; i++ {
		txn, err := table.Begin()
		if err != nil {
			b.Fatalf("Begin error: %v", err)
		}
		for j := 0; j < 100; j++ {
			row := benchmarkRow(b, table, next)
			next++
			if _, err := txn.Apply(row); err != nil {
				b.Fatalf("Apply error: %v", err)
			}
			row.Close()
		}
		if err := txn.Commit(); err != nil {
			b.Fatalf("Commit error: %v", err)
		}
		txn.Close()
	}
}

func BenchmarkRowFormat(b *testing.B) {
	table := setupBenchmarkTable(b)
	row := benchmarkRow(b, table, 1)
	defer row.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := row.Format(); err != nil {
			b.Fatalf("Format error: %v", err)
		}
	}
}

func BenchmarkMetaToSQL(b *testing.B) {
	table := setupBenchmarkTable(b)
	meta, err := table.Meta()
	if err != nil {
		b.Fatalf("Meta error: %v", err)
	}
	defer meta.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := meta.ToSQL(); err != nil {
			b.Fatalf("ToSQL error: %v", err)
		}
	}
}

// BenchmarkGenericFile measures writing and scanning 1000 rows per format.
func BenchmarkGenericFile(b *testing.B) {
	for _, ext := range []string{".tsv", ".csv", ".jsonl", ".tsv.gz"} {
		b.Run(ext, func(b *testing.B) {
			dir := b.TempDir()
			for i := 0; i < b.N; i++ {
				name := filepath.Join(dir, fmt.Sprintf("bench%d%s", i, ext))
				meta, err := NewMeta("bench")
				if err != nil {
					b.Fatalf("Failed to create meta: %v", err)
				}
				meta.AddColumn("id", Int32, 0, 0, NotNull, "", "")
				meta.AddColumn("name", String, 32, 0, Nullable, "", "")

				f, err := OpenGenericFile(name, ReadWrite, meta)
				meta.Close()
				if err != nil {
					b.Fatalf("Failed to open file: %v", err)
				}
				row, err := f.CreateRow()
				if err != nil {
					b.Fatalf("Failed to create row: %v", err)
				}
				for j := 0; j < 1000; j++ {
					row.SetInt32(0, int32(j))
					row.SetString(1, "Name"+strconv.Itoa(j))
					if err := f.Write(row); err != nil {
						b.Fatalf("Write error: %v", err)
					}
				}
				row.Close()

				cursor, err := f.Find("WHERE id >= 500")
				if err != nil {
					b.Fatalf("Find error: %v", err)
				}
				n := 0
				for _, err := range cursor.All() {
					if err != nil {
						b.Fatalf("Cursor error: %v", err)
					}
					n++
				}
				cursor.Close()
				if n != 500 {
					b.Fatalf("Expected 500 rows, got %d", n)
				}
				if err := f.Close(); err != nil {
					b.Fatalf("Close error: %v", err)
				}
			}
		})
	}
}
