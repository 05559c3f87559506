//go:build duckdb

package native

import (
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/nickyhof/flintdb/core"
)

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func duckType(col core.Column) string {
	switch col.Type {
	case core.Int8:
		return "TINYINT"
	case core.Uint8:
		return "UTINYINT"
	case core.Int16:
		return "SMALLINT"
	case core.Uint16:
		return "USMALLINT"
	case core.Int32:
		return "INTEGER"
	case core.Uint32:
		return "UINTEGER"
	case core.Int64:
		return "BIGINT"
	case core.Double:
		return "DOUBLE"
	case core.Float:
		return "FLOAT"
	case core.Decimal:
		width := col.Bytes
		if width <= 0 || width > 38 {
			width = 38
		}
		return fmt.Sprintf("DECIMAL(%d,%d)", width, min(col.Precision, width))
	case core.Bytes, core.Blob:
		return "BLOB"
	case core.Date:
		return "DATE"
	case core.Time:
		return "TIMESTAMP"
	case core.UUID:
		return "UUID"
	}
	return "VARCHAR"
}

func columnFromDuck(name, typ string) core.Column {
	col := core.Column{Name: name, Type: core.String}
	upper := strings.ToUpper(typ)
	switch {
	case upper == "TINYINT" || upper == "BOOLEAN":
		col.Type = core.Int8
	case upper == "UTINYINT":
		col.Type = core.Uint8
	case upper == "SMALLINT":
		col.Type = core.Int16
	case upper == "USMALLINT":
		col.Type = core.Uint16
	case upper == "INTEGER":
		col.Type = core.Int32
	case upper == "UINTEGER":
		col.Type = core.Uint32
	case upper == "BIGINT":
		col.Type = core.Int64
	case upper == "DOUBLE":
		col.Type = core.Double
	case upper == "FLOAT":
		col.Type = core.Float
	case strings.HasPrefix(upper, "DECIMAL"):
		col.Type = core.Decimal
		spec := strings.Trim(strings.TrimPrefix(upper, "DECIMAL"), "()")
		if width, scale, ok := strings.Cut(spec, ","); ok {
			col.Bytes, _ = strconv.Atoi(strings.TrimSpace(width))
			col.Precision, _ = strconv.Atoi(strings.TrimSpace(scale))
		}
	case upper == "BLOB":
		col.Type = core.Bytes
	case upper == "DATE":
		col.Type = core.Date
	case strings.HasPrefix(upper, "TIMESTAMP"):
		col.Type = core.Time
	case upper == "UUID":
		col.Type = core.UUID
	}
	return col
}

// selectText renders each column as text that core.ParseValue reads back.
func selectText(col core.Column) string {
	if col.Type == core.Bytes || col.Type == core.Blob {
		return "to_base64(" + quoteIdent(col.Name) + ")"
	}
	return "CAST(" + quoteIdent(col.Name) + " AS VARCHAR)"
}

type parquetReader struct {
	db    *sql.DB
	rows  *sql.Rows
	meta  *core.Meta
	cells []sql.NullString
	dest  []any
}

func openParquetReader(path string, meta *core.Meta) (recordReader, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	columns := make([]string, len(meta.Columns))
	for i, col := range meta.Columns {
		columns[i] = selectText(col)
	}
	query := "SELECT " + strings.Join(columns, ", ") + " FROM read_parquet(" + quoteLiteral(path) + ")"
	rows, err := db.Query(query)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read parquet %s: %w", path, err)
	}

	r := &parquetReader{db: db, rows: rows, meta: meta, cells: make([]sql.NullString, len(meta.Columns))}
	r.dest = make([]any, len(r.cells))
	for i := range r.cells {
		r.dest[i] = &r.cells[i]
	}
	return r, nil
}

func (r *parquetReader) Read() ([]core.Value, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	if err := r.rows.Scan(r.dest...); err != nil {
		return nil, err
	}

	values := make([]core.Value, len(r.cells))
	for i, cell := range r.cells {
		if !cell.Valid {
			values[i] = core.NilValue()
			continue
		}
		v, err := core.ParseValue(cell.String, r.meta.Columns[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (r *parquetReader) Close() error {
	r.rows.Close()
	return r.db.Close()
}

// inferParquetMeta describes a parquet file from its own schema.
func inferParquetMeta(path string) (*core.Meta, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("DESCRIBE SELECT * FROM read_parquet(" + quoteLiteral(path) + ")")
	if err != nil {
		return nil, fmt.Errorf("failed to describe parquet %s: %w", path, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	meta := &core.Meta{Name: filepath.Base(path), Format: "parquet"}
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		meta.Columns = append(meta.Columns, columnFromDuck(cells[0].String, cells[1].String))
	}
	return meta, rows.Err()
}

// parquetWriter buffers rows and rewrites the whole file on Close.
type parquetWriter struct {
	path string
	meta *core.Meta
	rows [][]core.Value
}

func newParquetWriter(path string, meta *core.Meta, existing [][]core.Value) (recordWriter, error) {
	return &parquetWriter{path: path, meta: meta, rows: existing}, nil
}

func (w *parquetWriter) Write(values []core.Value) error {
	w.rows = append(w.rows, values)
	return nil
}

func (w *parquetWriter) Close() error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	definitions := make([]string, len(w.meta.Columns))
	placeholders := make([]string, len(w.meta.Columns))
	for i, col := range w.meta.Columns {
		definitions[i] = quoteIdent(col.Name) + " " + duckType(col)
		if col.Type == core.Bytes || col.Type == core.Blob {
			placeholders[i] = "from_base64(?)"
		} else {
			placeholders[i] = "CAST(? AS " + duckType(col) + ")"
		}
	}
	if _, err := db.Exec("CREATE TABLE records (" + strings.Join(definitions, ", ") + ")"); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO records VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		tx.Rollback()
		return err
	}
	args := make([]any, len(w.meta.Columns))
	for _, values := range w.rows {
		for i, v := range values {
			if v.IsNil() {
				args[i] = nil
			} else {
				args[i] = v.Format()
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to stage parquet row: %w", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return err
	}

	if _, err := db.Exec("COPY records TO " + quoteLiteral(w.path) + " (FORMAT PARQUET)"); err != nil {
		return fmt.Errorf("failed to write parquet %s: %w", w.path, err)
	}
	return nil
}
