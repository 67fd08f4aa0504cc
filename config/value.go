package config

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"fortio.org/safecast"
)

// ErrInvalidCast is returned when a value can't be stored as the requested
// kind.
var ErrInvalidCast = errors.New("invalid cast")

// Value is a config value of one of the fixed set of kinds.
type Value struct {
	kind Kind
	i    int64 // signed kinds, Bool and Char
	u    uint64
	f    float64
	s    string
}

func OfBool(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{kind: Bool, i: i}
}

func OfInt8(v int8) Value { return Value{kind: Int8, i: int64(v)} }
func OfInt16(v int16) Value { return Value{kind: Int16, i: int64(v)} }
func OfInt32(v int32) Value { return Value{kind: Int32, i: int64(v)} }
func OfInt64(v int64) Value { return Value{kind: Int64, i: v} }
func OfUint8(v uint8) Value { return Value{kind: Uint8, u: uint64(v)} }
func OfUint16(v uint16) Value { return Value{kind: Uint16, u: uint64(v)} }
func OfUint32(v uint32) Value { return Value{kind: Uint32, u: uint64(v)} }
func OfUint64(v uint64) Value { return Value{kind: Uint64, u: v} }
func OfFloat32(v float32) Value { return Value{kind: Float32, f: float64(v)} }
func OfFloat64(v float64) Value { return Value{kind: Float64, f: v} }
func OfChar(v rune) Value { return Value{kind: Char, i: int64(v)} }
func OfString(v string) Value { return Value{kind: String, s: v} }

// Kind returns the kind of v. The zero Value is Invalid.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsValid() bool { return v.kind != Invalid }

// Bool returns the value of a Bool.
func (v Value) Bool() bool { return v.kind == Bool && v.i != 0 }

// Int returns the value of a signed integer kind or a Char.
func (v Value) Int() int64 {
	if v.signed() || v.kind == Char {
		return v.i
	}
	return 0
}

// Uint returns the value of an unsigned integer kind.
func (v Value) Uint() uint64 {
	if v.unsigned() {
		return v.u
	}
	return 0
}

// Float returns the value of a Float32 or Float64.
func (v Value) Float() float64 {
	if v.kind == Float32 || v.kind == Float64 {
		return v.f
	}
	return 0
}

// Char returns the value of a Char.
func (v Value) Char() rune {
	if v.kind == Char {
		return rune(v.i)
	}
	return 0
}

// Text returns the value of a String.
func (v Value) Text() string {
	if v.kind == String {
		return v.s
	}
	return ""
}

func (v Value) String() string {
	switch {
	case v.kind == Bool:
		return strconv.FormatBool(v.Bool())
	case v.signed():
		return strconv.FormatInt(v.i, 10)
	case v.unsigned():
		return strconv.FormatUint(v.u, 10)
	case v.kind == Float32:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case v.kind == Float64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case v.kind == Char:
		return strconv.QuoteRune(rune(v.i))
	case v.kind == String:
		return strconv.Quote(v.s)
	}
	return "<invalid>"
}

func (v Value) signed() bool {
	switch v.kind {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

func (v Value) unsigned() bool {
	switch v.kind {
	case Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// Convert returns v as kind to. It fails unless CanCast(v.Kind(), to) and
// the value fits in to.
func (v Value) Convert(to Kind) (Value, error) {
	if !CanCast(v.kind, to) {
		return Value{}, fmt.Errorf("%w: %v to %v", ErrInvalidCast, v.kind, to)
	}
	if v.kind == to {
		return v, nil
	}

	out := Value{kind: to}
	switch to {
	case Int16, Int32, Int64:
		if v.unsigned() {
			out.i = int64(v.u)
		} else {
			out.i = v.i
		}
	case Uint16, Uint32, Uint64:
		if v.unsigned() {
			out.u = v.u
		} else {
			// A Char may hold any rune, which doesn't fit every
			// unsigned kind it widens to.
			return intValue(to, v.i)
		}
	case Float32, Float64:
		switch {
		case v.unsigned():
			out.f = float64(v.u)
		case v.kind == Float32:
			out.f = v.f
		default:
			out.f = float64(v.i)
		}
		if to == Float32 {
			out.f = float64(float32(out.f))
		}
	}
	return out, nil
}

// raw returns v in the form the file encoder writes.
func (v Value) raw() (any, error) {
	switch {
	case v.kind == Bool:
		return v.Bool(), nil
	case v.signed():
		return v.i, nil
	case v.unsigned():
		n, err := safecast.Conv[int64](v.u)
		if err != nil {
			return nil, fmt.Errorf("%v value %d can't be written: %w", v.kind, v.u, err)
		}
		return n, nil
	case v.kind == Float32, v.kind == Float64:
		return v.f, nil
	case v.kind == Char:
		return string(rune(v.i)), nil
	case v.kind == String:
		return v.s, nil
	}
	return nil, errors.New("invalid value")
}

// valueOf converts a decoded file value to kind.
func valueOf(kind Kind, raw any) (Value, error) {
	switch kind {
	case Bool:
		if b, ok := raw.(bool); ok {
			return OfBool(b), nil
		}
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		if n, ok := raw.(int64); ok {
			return intValue(kind, n)
		}
	case Float32:
		if f, ok := number(raw); ok {
			return OfFloat32(float32(f)), nil
		}
	case Float64:
		if f, ok := number(raw); ok {
			return OfFloat64(f), nil
		}
	case Char:
		if s, ok := raw.(string); ok && utf8.RuneCountInString(s) == 1 {
			r, _ := utf8.DecodeRuneInString(s)
			return OfChar(r), nil
		}
	case String:
		if s, ok := raw.(string); ok {
			return OfString(s), nil
		}
	}
	return Value{}, fmt.Errorf("%w: %v (%T) to %v", ErrInvalidCast, raw, raw, kind)
}

func intValue(kind Kind, n int64) (Value, error) {
	var (
		v   Value
		err error
	)
	switch kind {
	case Int8:
		var x int8
		x, err = safecast.Conv[int8](n)
		v = OfInt8(x)
	case Int16:
		var x int16
		x, err = safecast.Conv[int16](n)
		v = OfInt16(x)
	case Int32:
		var x int32
		x, err = safecast.Conv[int32](n)
		v = OfInt32(x)
	case Int64:
		v = OfInt64(n)
	case Uint8:
		var x uint8
		x, err = safecast.Conv[uint8](n)
		v = OfUint8(x)
	case Uint16:
		var x uint16
		x, err = safecast.Conv[uint16](n)
		v = OfUint16(x)
	case Uint32:
		var x uint32
		x, err = safecast.Conv[uint32](n)
		v = OfUint32(x)
	case Uint64:
		var x uint64
		x, err = safecast.Conv[uint64](n)
		v = OfUint64(x)
	}
	if err != nil {
		return Value{}, fmt.Errorf("%w: %d out of range for %v", ErrInvalidCast, n, kind)
	}
	return v, nil
}

func number(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case int64:
		if n > 1<<53 || n < -(1<<53) {
			return 0, false
		}
		return float64(n), true
	}
	return 0, false
}
