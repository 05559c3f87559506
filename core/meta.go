package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MaxColumns         = 200
	MaxIndexes         = 5
	MaxIndexKeys       = 5
	MaxColumnNameLimit = 40
	MaxMetaNameLimit   = 64

	PrimaryIndex = "primary"
	SortIndex    = "sort"

	TableSuffix = ".flintdb"
	DescSuffix  = ".desc"

	DefaultNilStr = "\\N"
)

type NullSpec int

const (
	Nullable NullSpec = iota
	NotNull
)

type Column struct {
	Name      string      `json:"name"`
	Type      VariantType `json:"type"`
	Bytes     int         `json:"bytes,omitempty"`
	Precision int         `json:"precision,omitempty"`
	NullSpec  NullSpec    `json:"nullspec,omitempty"`
	Default   string      `json:"default,omitempty"`
	Comment   string      `json:"comment,omitempty"`
}

type Index struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Algorithm string   `json:"algorithm,omitempty"`
	Keys      []string `json:"keys"`
}

// Meta describes a table or generic file: ordered columns, indexes and
// storage options. Column order defines positional indices.
type Meta struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Indexes []Index  `json:"indexes,omitempty"`

	Storage    string `json:"storage,omitempty"`
	Compressor string `json:"compressor,omitempty"`
	Cache      int    `json:"cache,omitempty"`
	Date       string `json:"date,omitempty"`

	Format       string `json:"format,omitempty"`
	Delimiter    byte   `json:"delimiter,omitempty"`
	Quote        byte   `json:"quote,omitempty"`
	NilStr       string `json:"nil,omitempty"`
	AbsentHeader bool   `json:"absent_header,omitempty"`
}

var ErrIncompatible = errors.New("meta does not match existing")

// ColumnIndex resolves a column name case-insensitively. It returns -1 when
// no column has that name.
func (meta *Meta) ColumnIndex(name string) int {
	for i, col := range meta.Columns {
		if strings.EqualFold(col.Name, name) {
			return i
		}
	}
	return -1
}

// IndexByName resolves an index name case-insensitively.
func (meta *Meta) IndexByName(name string) (Index, bool) {
	for _, idx := range meta.Indexes {
		if strings.EqualFold(idx.Name, name) {
			return idx, true
		}
	}
	return Index{}, false
}

// KeyPositions returns the column positions of an index's keys.
func (meta *Meta) KeyPositions(idx Index) []int {
	positions := make([]int, len(idx.Keys))
	for i, key := range idx.Keys {
		positions[i] = meta.ColumnIndex(key)
	}
	return positions
}

func (meta *Meta) Clone() Meta {
	clone := *meta
	clone.Columns = append([]Column(nil), meta.Columns...)
	clone.Indexes = make([]Index, len(meta.Indexes))
	for i, idx := range meta.Indexes {
		idx.Keys = append([]string(nil), idx.Keys...)
		clone.Indexes[i] = idx
	}
	return clone
}

// DefaultValues returns one value per column, set to the column default or
// NULL when the column has none.
func (meta *Meta) DefaultValues() ([]Value, error) {
	values := make([]Value, len(meta.Columns))
	for i, col := range meta.Columns {
		if col.Default == "" {
			values[i] = NilValue()
			continue
		}
		v, err := ParseValue(col.Default, col)
		if err != nil {
			return nil, fmt.Errorf("invalid default for column %s: %w", col.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

// Compatible reports whether other describes the same layout: column names
// (case-insensitive), types, lengths and precisions, then index names and
// keys, all in order. Options are not compared.
func (meta *Meta) Compatible(other *Meta) error {
	if len(meta.Columns) != len(other.Columns) {
		return fmt.Errorf("%w: %d columns, existing has %d", ErrIncompatible, len(meta.Columns), len(other.Columns))
	}
	for i, col := range meta.Columns {
		existing := other.Columns[i]
		if !strings.EqualFold(col.Name, existing.Name) {
			return fmt.Errorf("%w: column %d is %s, existing is %s", ErrIncompatible, i, col.Name, existing.Name)
		}
		if col.Type != existing.Type || col.Bytes != existing.Bytes || col.Precision != existing.Precision {
			return fmt.Errorf("%w: column %s type differs", ErrIncompatible, col.Name)
		}
	}

	if len(meta.Indexes) != len(other.Indexes) {
		return fmt.Errorf("%w: %d indexes, existing has %d", ErrIncompatible, len(meta.Indexes), len(other.Indexes))
	}
	for i, idx := range meta.Indexes {
		existing := other.Indexes[i]
		if !strings.EqualFold(idx.Name, existing.Name) || len(idx.Keys) != len(existing.Keys) {
			return fmt.Errorf("%w: index %s differs", ErrIncompatible, idx.Name)
		}
		for k := range idx.Keys {
			if !strings.EqualFold(idx.Keys[k], existing.Keys[k]) {
				return fmt.Errorf("%w: index %s keys differ", ErrIncompatible, idx.Name)
			}
		}
	}
	return nil
}

// SetOption applies one descriptor option as written after the column list
// of a CREATE TABLE statement.
func (meta *Meta) SetOption(key, value string) error {
	switch strings.ToUpper(key) {
	case "STORAGE":
		meta.Storage = strings.ToLower(value)
	case "COMPRESSOR":
		switch c := strings.ToLower(value); c {
		case "", "none", "zstd", "lz4":
			if c == "none" {
				c = ""
			}
			meta.Compressor = c
		default:
			return fmt.Errorf("unsupported compressor: %s", value)
		}
	case "CACHE":
		n, err := parseSize(value)
		if err != nil {
			return fmt.Errorf("invalid cache size %q: %w", value, err)
		}
		meta.Cache = n
	case "DATE":
		meta.Date = value
	case "FORMAT":
		meta.Format = strings.ToLower(value)
	case "DELIMITER":
		b, err := singleByte(value)
		if err != nil {
			return fmt.Errorf("invalid delimiter: %w", err)
		}
		meta.Delimiter = b
	case "QUOTE":
		b, err := singleByte(value)
		if err != nil {
			return fmt.Errorf("invalid quote: %w", err)
		}
		meta.Quote = b
	case "NULL":
		meta.NilStr = value
	case "HEADER":
		meta.AbsentHeader = strings.EqualFold(value, "ABSENT")
	default:
		return fmt.Errorf("unknown option: %s", key)
	}
	return nil
}

// EffectiveDelimiter returns the field delimiter for text formats.
func (meta *Meta) EffectiveDelimiter() byte {
	if meta.Delimiter != 0 {
		return meta.Delimiter
	}
	if meta.Format == "csv" {
		return ','
	}
	return '\t'
}

func (meta *Meta) EffectiveNilStr() string {
	if meta.NilStr != "" {
		return meta.NilStr
	}
	return DefaultNilStr
}

func singleByte(value string) (byte, error) {
	switch value {
	case "\\t", "TAB", "tab":
		return '\t', nil
	}
	if len(value) != 1 {
		return 0, fmt.Errorf("expected a single character, got %q", value)
	}
	return value[0], nil
}

// parseSize accepts plain counts and K/M suffixes, e.g. 1M.
func parseSize(value string) (int, error) {
	multiplier := 1
	upper := strings.ToUpper(value)
	switch {
	case strings.HasSuffix(upper, "K"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "K")
	case strings.HasSuffix(upper, "M"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "M")
	}
	n, err := strconv.Atoi(upper)
	if err != nil {
		return 0, err
	}
	return n * multiplier, nil
}

// FormatSize renders a cache size the way parseSize reads it.
func FormatSize(n int) string {
	switch {
	case n >= 1024*1024 && n%(1024*1024) == 0:
		return strconv.Itoa(n/(1024*1024)) + "M"
	case n >= 1024 && n%1024 == 0:
		return strconv.Itoa(n/1024) + "K"
	}
	return strconv.Itoa(n)
}
