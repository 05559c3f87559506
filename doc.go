// Package flintdb provides resource-safe access to the FlintDB table engine.
//
// The engine hands out raw handles with manual lifetimes and reports
// failures through an error slot. This package gives every handle a single
// owner and turns every failure into an *Error.
//
// # Quick Start
//
// Create a table, insert a row and scan it:
//
//	meta, _ := flintdb.NewMeta("customer.flintdb")
//	defer meta.Close()
//	meta.AddColumn("id", flintdb.Int64, 0, 0, flintdb.NotNull, "0", "PRIMARY KEY")
//	meta.AddColumn("name", flintdb.String, 50, 0, flintdb.NotNull, "", "")
//	meta.AddColumn("age", flintdb.Int32, 0, 0, flintdb.NotNull, "0", "")
//	meta.AddIndex(flintdb.PrimaryIndex, "id")
//
//	table, _ := flintdb.OpenTable("customer.flintdb", flintdb.ReadWrite, meta)
//	defer table.Close()
//
//	row, _ := flintdb.NewRow(meta)
//	row.SetInt64(0, 1)
//	row.SetString(1, "Alice")
//	row.SetInt32(2, 30)
//	table.Apply(row)
//	row.Close()
//
//	cursor, _ := table.Find("WHERE age >= 30")
//	defer cursor.Close()
//	for id, err := range cursor.All() {
//		...
//	}
//
// # Ownership
//
// Meta, owned rows, tables, files, cursors and transactions are released
// with Close, which is safe to call more than once. Rows returned by
// Table.Read, Table.One and RowCursor.Next are borrowed from their producer
// and become invalid on the producer's next operation; closing them does
// nothing. Using an invalidated handle reports ErrClosed.
//
// # Generic files
//
// OpenGenericFile reads and appends TSV, CSV, JSONL and parquet files,
// optionally gzip compressed, locally or over s3:// and http(s)://. The
// format follows the file suffix unless the descriptor sets FORMAT.
//
// # Filters
//
// Find accepts
//
//	[WHERE cond {AND|OR cond}] [ORDER BY col [ASC|DESC], ...] [LIMIT n [OFFSET m]]
//
// where cond compares a column with a literal (= != <> < > <= >=), tests
// IS [NOT] NULL, IN (...) or LIKE 'pattern'.
//
// # Cleanup
//
// Cleanup releases the engine's global state at process end. Handles
// still held afterwards report ErrClosed.
package flintdb
