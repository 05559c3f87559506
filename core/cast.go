package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTypeMismatch = errors.New("type mismatch")
	ErrOutOfRange   = errors.New("value out of range")
	ErrTooLong      = errors.New("value too long")
)

// Cast converts v to the type of col. NULL casts to NULL for every column;
// nullability is enforced when the row is stored.
func Cast(v Value, col Column) (Value, error) {
	if v.typ == Nil {
		return v, nil
	}

	switch {
	case col.Type.IsInteger():
		return castInteger(v, col)
	case col.Type == Double || col.Type == Float:
		return castFloat(v, col)
	case col.Type == String:
		s := v.Format()
		if col.Bytes > 0 && len(s) > col.Bytes {
			return Value{}, fmt.Errorf("%w: %d bytes for %s(%d) column %s", ErrTooLong, len(s), col.Type, col.Bytes, col.Name)
		}
		return StringValue(s), nil
	case col.Type == Decimal:
		return castDecimal(v, col)
	case col.Type == Bytes || col.Type == Blob:
		return castBytes(v, col)
	case col.Type == Date || col.Type == Time:
		return castTime(v, col)
	case col.Type == UUID:
		return castUUID(v, col)
	case col.Type == IPv6:
		return castIPv6(v, col)
	}

	return Value{}, fmt.Errorf("%w: column %s has unsupported type %s", ErrTypeMismatch, col.Name, col.Type)
}

// ParseValue converts the text form of a value into col's type. The empty
// string is not NULL; callers decide which token means NULL.
func ParseValue(text string, col Column) (Value, error) {
	if col.Type == Bytes || col.Type == Blob {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid base64 for column %s", ErrTypeMismatch, col.Name)
		}
		return Cast(BytesValue(decoded), col)
	}
	return Cast(StringValue(text), col)
}

func mismatch(v Value, col Column) error {
	return fmt.Errorf("%w: cannot convert %s to %s for column %s", ErrTypeMismatch, v.typ, col.Type, col.Name)
}

func castInteger(v Value, col Column) (Value, error) {
	var n int64
	switch {
	case v.typ.IsInteger():
		n = v.i
	case v.typ == Double || v.typ == Float:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) || v.f != math.Trunc(v.f) {
			return Value{}, mismatch(v, col)
		}
		if v.f < math.MinInt64 || v.f >= math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %v for %s column %s", ErrOutOfRange, v.f, col.Type, col.Name)
		}
		n = int64(v.f)
	case v.typ == String || v.typ == Decimal:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return Value{}, fmt.Errorf("%w: %q for %s column %s", ErrOutOfRange, v.s, col.Type, col.Name)
			}
			return Value{}, mismatch(v, col)
		}
		n = parsed
	default:
		return Value{}, mismatch(v, col)
	}

	lo, hi := integerRange(col.Type)
	if n < lo || (n >= 0 && uint64(n) > hi) {
		return Value{}, fmt.Errorf("%w: %d for %s column %s", ErrOutOfRange, n, col.Type, col.Name)
	}
	return IntegerValue(col.Type, n), nil
}

func castFloat(v Value, col Column) (Value, error) {
	var f float64
	switch {
	case v.typ.IsNumeric():
		f, _ = v.Float64()
	case v.typ == String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return Value{}, mismatch(v, col)
		}
		f = parsed
	default:
		return Value{}, mismatch(v, col)
	}

	if col.Type == Float {
		if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return Value{}, fmt.Errorf("%w: %v for FLOAT column %s", ErrOutOfRange, f, col.Name)
		}
		return Float32Value(float32(f)), nil
	}
	return Float64Value(f), nil
}

func castDecimal(v Value, col Column) (Value, error) {
	var r *big.Rat
	switch {
	case v.typ.IsInteger():
		r = new(big.Rat).SetInt64(v.i)
	case v.typ == Double || v.typ == Float:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return Value{}, mismatch(v, col)
		}
		r = new(big.Rat).SetFloat64(v.f)
	case v.typ == String || v.typ == Decimal:
		parsed, ok := new(big.Rat).SetString(strings.TrimSpace(v.s))
		if !ok {
			return Value{}, mismatch(v, col)
		}
		r = parsed
	default:
		return Value{}, mismatch(v, col)
	}

	text := r.FloatString(col.Precision)
	if col.Bytes > 0 {
		digits := strings.TrimLeft(strings.Replace(strings.TrimPrefix(text, "-"), ".", "", 1), "0")
		if len(digits) > col.Bytes {
			return Value{}, fmt.Errorf("%w: %s exceeds DECIMAL(%d,%d) column %s", ErrOutOfRange, text, col.Bytes, col.Precision, col.Name)
		}
	}
	return DecimalValue(text), nil
}

func castBytes(v Value, col Column) (Value, error) {
	var b []byte
	switch v.typ {
	case Bytes, Blob, UUID, IPv6:
		b = v.b
	case String:
		b = []byte(v.s)
	default:
		return Value{}, mismatch(v, col)
	}
	if col.Bytes > 0 && len(b) > col.Bytes {
		return Value{}, fmt.Errorf("%w: %d bytes for %s(%d) column %s", ErrTooLong, len(b), col.Type, col.Bytes, col.Name)
	}
	out := BytesValue(b)
	out.typ = col.Type
	return out, nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	DateLayout,
}

func castTime(v Value, col Column) (Value, error) {
	var t time.Time
	switch v.typ {
	case Date, Time:
		t = v.t
	case Int64, Int32, Uint32:
		t = time.Unix(v.i, 0)
	case String:
		s := strings.TrimSpace(v.s)
		parsed := false
		for _, layout := range timeLayouts {
			if p, err := time.Parse(layout, s); err == nil {
				t, parsed = p, true
				break
			}
		}
		if !parsed {
			return Value{}, mismatch(v, col)
		}
	default:
		return Value{}, mismatch(v, col)
	}
	if col.Type == Date {
		return DateValue(t), nil
	}
	return TimeValue(t), nil
}

func castUUID(v Value, col Column) (Value, error) {
	switch v.typ {
	case UUID:
		return v, nil
	case String:
		id, err := uuid.Parse(strings.TrimSpace(v.s))
		if err != nil {
			return Value{}, mismatch(v, col)
		}
		return UUIDValue(id), nil
	case Bytes:
		id, err := uuid.FromBytes(v.b)
		if err != nil {
			return Value{}, mismatch(v, col)
		}
		return UUIDValue(id), nil
	}
	return Value{}, mismatch(v, col)
}

func castIPv6(v Value, col Column) (Value, error) {
	switch v.typ {
	case IPv6:
		return v, nil
	case String:
		addr, err := netip.ParseAddr(strings.TrimSpace(v.s))
		if err != nil {
			return Value{}, mismatch(v, col)
		}
		return IPv6Value(addr), nil
	case Bytes:
		addr, ok := netip.AddrFromSlice(v.b)
		if !ok {
			return Value{}, mismatch(v, col)
		}
		return IPv6Value(addr), nil
	}
	return Value{}, mismatch(v, col)
}
