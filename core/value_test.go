package core

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCastIntegerRange(t *testing.T) {
	col := Column{Name: "small", Type: Int8}

	if _, err := Cast(Int64Value(300), col); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}

	v, err := Cast(Int64Value(-128), col)
	if err != nil {
		t.Fatalf("Failed to cast: %v", err)
	}
	if n, _ := v.Int64(); n != -128 || v.Type() != Int8 {
		t.Errorf("Expected INT8 -128, got %s %d", v.Type(), n)
	}

	if _, err := Cast(Int64Value(-1), Column{Name: "u", Type: Uint16}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange for negative unsigned, got %v", err)
	}
}

func TestCastStringToNumbers(t *testing.T) {
	v, err := Cast(StringValue(" 42 "), Column{Name: "n", Type: Int32})
	if err != nil {
		t.Fatalf("Failed to cast: %v", err)
	}
	if n, _ := v.Int64(); n != 42 {
		t.Errorf("Expected 42, got %d", n)
	}

	if _, err := Cast(StringValue("abc"), Column{Name: "n", Type: Int32}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch, got %v", err)
	}

	v, err = Cast(StringValue("2.5"), Column{Name: "f", Type: Double})
	if err != nil {
		t.Fatalf("Failed to cast: %v", err)
	}
	if f, _ := v.Float64(); f != 2.5 {
		t.Errorf("Expected 2.5, got %v", f)
	}
}

func TestCastStringLength(t *testing.T) {
	col := Column{Name: "name", Type: String, Bytes: 4}
	if _, err := Cast(StringValue("abcde"), col); !errors.Is(err, ErrTooLong) {
		t.Errorf("Expected ErrTooLong, got %v", err)
	}
	if _, err := Cast(StringValue("abcd"), col); err != nil {
		t.Errorf("Expected fit, got %v", err)
	}
}

func TestCastDecimal(t *testing.T) {
	col := Column{Name: "price", Type: Decimal, Bytes: 10, Precision: 2}
	v, err := Cast(StringValue("12.3456"), col)
	if err != nil {
		t.Fatalf("Failed to cast: %v", err)
	}
	if v.Format() != "12.35" {
		t.Errorf("Expected 12.35, got %s", v.Format())
	}

	if _, err := Cast(StringValue("123456789012"), col); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

func TestCastUUIDRejectsInteger(t *testing.T) {
	col := Column{Name: "id", Type: UUID}
	if _, err := Cast(Int64Value(7), col); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch, got %v", err)
	}

	id := uuid.New()
	v, err := Cast(StringValue(id.String()), col)
	if err != nil {
		t.Fatalf("Failed to cast: %v", err)
	}
	got, ok := v.UUID()
	if !ok || got != id {
		t.Errorf("Expected %s, got %s", id, got)
	}
}

func TestCastIPv6(t *testing.T) {
	col := Column{Name: "addr", Type: IPv6}
	v, err := Cast(StringValue("10.0.0.1"), col)
	if err != nil {
		t.Fatalf("Failed to cast: %v", err)
	}
	if v.Format() != "10.0.0.1" {
		t.Errorf("Expected 10.0.0.1, got %s", v.Format())
	}
}

func TestCastTime(t *testing.T) {
	v, err := Cast(StringValue("2024-03-01 10:20:30"), Column{Name: "ts", Type: Time})
	if err != nil {
		t.Fatalf("Failed to cast: %v", err)
	}
	got, _ := v.Time()
	want := time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	d, err := Cast(StringValue("2024-03-01"), Column{Name: "d", Type: Date})
	if err != nil {
		t.Fatalf("Failed to cast date: %v", err)
	}
	if d.Format() != "2024-03-01" {
		t.Errorf("Expected 2024-03-01, got %s", d.Format())
	}
}

func TestCastNilPassesThrough(t *testing.T) {
	v, err := Cast(NilValue(), Column{Name: "n", Type: Int64, NullSpec: NotNull})
	if err != nil {
		t.Fatalf("Failed to cast nil: %v", err)
	}
	if !v.IsNil() {
		t.Error("Expected nil value")
	}
}

func TestParseValueBytes(t *testing.T) {
	col := Column{Name: "b", Type: Bytes}
	v, err := ParseValue("aGVsbG8=", col)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if string(v.Bytes()) != "hello" {
		t.Errorf("Expected hello, got %q", v.Bytes())
	}
	if v.Format() != "aGVsbG8=" {
		t.Errorf("Expected base64 text, got %s", v.Format())
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Value
		expected int
	}{
		{"ints", Int64Value(1), Int32Value(2), -1},
		{"int vs double", Int64Value(3), Float64Value(2.5), 1},
		{"strings", StringValue("b"), StringValue("a"), 1},
		{"nil first", NilValue(), Int64Value(0), -1},
		{"nil equal", NilValue(), NilValue(), 0},
		{"decimal vs int", DecimalValue("10.50"), Int64Value(10), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}
