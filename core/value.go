package core

import (
	"bytes"
	"encoding/base64"
	"math/big"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "2006-01-02 15:04:05.999999999"
)

// Value is a tagged variant holding one cell of a row.
type Value struct {
	typ VariantType
	i   int64
	f   float64
	s   string
	b   []byte
	t   time.Time
}

func NilValue() Value {
	return Value{typ: Nil}
}

// IntegerValue builds a value of one of the integer types without range
// checking; use Cast to validate against a column.
func IntegerValue(t VariantType, v int64) Value {
	return Value{typ: t, i: v}
}

func Int32Value(v int32) Value {
	return Value{typ: Int32, i: int64(v)}
}

func Int64Value(v int64) Value {
	return Value{typ: Int64, i: v}
}

func Float64Value(v float64) Value {
	return Value{typ: Double, f: v}
}

func Float32Value(v float32) Value {
	return Value{typ: Float, f: float64(v)}
}

func StringValue(v string) Value {
	return Value{typ: String, s: v}
}

// DecimalValue holds the textual form of a decimal number. It is
// normalised when cast to a DECIMAL column.
func DecimalValue(v string) Value {
	return Value{typ: Decimal, s: v}
}

func BytesValue(v []byte) Value {
	return Value{typ: Bytes, b: bytes.Clone(v)}
}

func DateValue(v time.Time) Value {
	y, m, d := v.Date()
	return Value{typ: Date, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func TimeValue(v time.Time) Value {
	return Value{typ: Time, t: v.UTC()}
}

func UUIDValue(v uuid.UUID) Value {
	return Value{typ: UUID, b: v[:]}
}

func IPv6Value(v netip.Addr) Value {
	a16 := v.As16()
	return Value{typ: IPv6, b: a16[:]}
}

func (v Value) Type() VariantType {
	return v.typ
}

func (v Value) IsNil() bool {
	return v.typ == Nil
}

// Int64 returns the integer payload for integer-typed values.
func (v Value) Int64() (int64, bool) {
	if v.typ.IsInteger() {
		return v.i, true
	}
	return 0, false
}

// Float64 returns the value as a float for any numeric type.
func (v Value) Float64() (float64, bool) {
	switch {
	case v.typ.IsInteger():
		return float64(v.i), true
	case v.typ == Double || v.typ == Float:
		return v.f, true
	case v.typ == Decimal:
		f, err := strconv.ParseFloat(v.s, 64)
		return f, err == nil
	}
	return 0, false
}

func (v Value) Bytes() []byte {
	switch v.typ {
	case Bytes, Blob, UUID, IPv6:
		return v.b
	case String, Decimal:
		return []byte(v.s)
	}
	return nil
}

func (v Value) Time() (time.Time, bool) {
	if v.typ == Date || v.typ == Time {
		return v.t, true
	}
	return time.Time{}, false
}

func (v Value) UUID() (uuid.UUID, bool) {
	if v.typ != UUID || len(v.b) != 16 {
		return uuid.Nil, false
	}
	var id uuid.UUID
	copy(id[:], v.b)
	return id, true
}

func (v Value) Addr() (netip.Addr, bool) {
	if v.typ != IPv6 || len(v.b) != 16 {
		return netip.Addr{}, false
	}
	return netip.AddrFrom16([16]byte(v.b)), true
}

// Format returns the canonical text form used by text formats and
// predicates. NULL formats as the empty string.
func (v Value) Format() string {
	switch v.typ {
	case Nil:
		return ""
	case Zero:
		return "0"
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64:
		return strconv.FormatInt(v.i, 10)
	case Double:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case String, Decimal:
		return v.s
	case Bytes, Blob:
		return base64.StdEncoding.EncodeToString(v.b)
	case Date:
		return v.t.Format(DateLayout)
	case Time:
		return v.t.Format(TimeLayout)
	case UUID:
		id, _ := v.UUID()
		return id.String()
	case IPv6:
		addr, _ := v.Addr()
		return addr.Unmap().String()
	}
	return ""
}

func (v Value) String() string {
	if v.typ == Nil {
		return "NULL"
	}
	return v.Format()
}

// Compare orders two values. NULL sorts before everything else; numeric
// values compare numerically across integer and floating types.
func Compare(a, b Value) int {
	if a.typ == Nil || b.typ == Nil {
		switch {
		case a.typ == b.typ:
			return 0
		case a.typ == Nil:
			return -1
		default:
			return 1
		}
	}

	if a.typ.IsNumeric() && b.typ.IsNumeric() {
		if a.typ.IsInteger() && b.typ.IsInteger() {
			return cmpInt(a.i, b.i)
		}
		if a.typ == Decimal || b.typ == Decimal {
			ra, okA := new(big.Rat).SetString(a.Format())
			rb, okB := new(big.Rat).SetString(b.Format())
			if okA && okB {
				return ra.Cmp(rb)
			}
		}
		fa, _ := a.Float64()
		fb, _ := b.Float64()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}

	if a.typ == b.typ {
		switch a.typ {
		case String:
			return strings.Compare(a.s, b.s)
		case Bytes, Blob, UUID, IPv6:
			return bytes.Compare(a.b, b.b)
		case Date, Time:
			return a.t.Compare(b.t)
		}
	}

	return strings.Compare(a.Format(), b.Format())
}

// Equal reports whether a and b compare equal.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
