package core

import "strings"

type VariantType int

const (
	Nil     VariantType = 0
	Zero    VariantType = 1
	Int32   VariantType = 2
	Uint32  VariantType = 3
	Int8    VariantType = 4
	Uint8   VariantType = 5
	Int16   VariantType = 6
	Uint16  VariantType = 7
	Int64   VariantType = 8
	Double  VariantType = 9
	Float   VariantType = 10
	String  VariantType = 11
	Decimal VariantType = 12
	Bytes   VariantType = 13
	Date    VariantType = 14
	Time    VariantType = 15
	UUID    VariantType = 16
	IPv6    VariantType = 17
	Blob    VariantType = 18
	Object  VariantType = 31
)

var typeNames = map[VariantType]string{
	Nil:     "NIL",
	Zero:    "ZERO",
	Int32:   "INT",
	Uint32:  "UINT",
	Int8:    "INT8",
	Uint8:   "UINT8",
	Int16:   "INT16",
	Uint16:  "UINT16",
	Int64:   "INT64",
	Double:  "DOUBLE",
	Float:   "FLOAT",
	String:  "STRING",
	Decimal: "DECIMAL",
	Bytes:   "BYTES",
	Date:    "DATE",
	Time:    "TIME",
	UUID:    "UUID",
	IPv6:    "IPV6",
	Blob:    "BLOB",
	Object:  "OBJECT",
}

func (t VariantType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseVariantType resolves a type name as written in a CREATE TABLE
// descriptor. Common SQL aliases are accepted.
func ParseVariantType(name string) (VariantType, bool) {
	switch strings.ToUpper(name) {
	case "INT", "INT32", "INTEGER":
		return Int32, true
	case "UINT", "UINT32":
		return Uint32, true
	case "INT8", "TINYINT":
		return Int8, true
	case "UINT8":
		return Uint8, true
	case "INT16", "SMALLINT":
		return Int16, true
	case "UINT16":
		return Uint16, true
	case "INT64", "BIGINT":
		return Int64, true
	case "DOUBLE", "FLOAT64":
		return Double, true
	case "FLOAT", "FLOAT32", "REAL":
		return Float, true
	case "STRING", "VARCHAR", "TEXT":
		return String, true
	case "DECIMAL", "NUMERIC":
		return Decimal, true
	case "BYTES", "VARBINARY":
		return Bytes, true
	case "DATE":
		return Date, true
	case "TIME", "TIMESTAMP", "DATETIME":
		return Time, true
	case "UUID":
		return UUID, true
	case "IPV6":
		return IPv6, true
	case "BLOB":
		return Blob, true
	case "OBJECT":
		return Object, true
	case "NIL", "NULL":
		return Nil, true
	}
	return Nil, false
}

// IsInteger reports whether t is one of the fixed-width integer types.
func (t VariantType) IsInteger() bool {
	switch t {
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64:
		return true
	}
	return false
}

// IsNumeric reports whether values of t compare numerically.
func (t VariantType) IsNumeric() bool {
	return t.IsInteger() || t == Double || t == Float || t == Decimal
}

// IsStorable reports whether t may be used as a column type.
func (t VariantType) IsStorable() bool {
	switch t {
	case Nil, Zero, Blob, Object:
		return false
	}
	_, ok := typeNames[t]
	return ok
}

// HasLength reports whether a column of type t takes a byte length.
func (t VariantType) HasLength() bool {
	return t == String || t == Bytes || t == Decimal
}

// integerRange returns the inclusive bounds for an integer type.
func integerRange(t VariantType) (int64, uint64) {
	switch t {
	case Int8:
		return -1 << 7, 1<<7 - 1
	case Uint8:
		return 0, 1<<8 - 1
	case Int16:
		return -1 << 15, 1<<15 - 1
	case Uint16:
		return 0, 1<<16 - 1
	case Int32:
		return -1 << 31, 1<<31 - 1
	case Uint32:
		return 0, 1<<32 - 1
	default:
		return -1 << 63, 1<<63 - 1
	}
}
