package config

import (
	"fmt"
	"slices"
)

// Kind is the type of a config value.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Char
	String
)

var kindNames = [...]string{
	Invalid: "invalid",
	Bool:    "bool",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	Char:    "char",
	String:  "string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if k != int(Invalid) && name == s {
			return Kind(k), nil
		}
	}
	return Invalid, fmt.Errorf("unknown type %q", s)
}

// widenings lists the kinds each kind converts to implicitly without losing
// its value's magnitude.
var widenings = map[Kind][]Kind{
	Int8:    {Int16, Int32, Int64, Float32, Float64},
	Uint8:   {Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64},
	Int16:   {Int32, Int64, Float32, Float64},
	Uint16:  {Int32, Uint32, Int64, Uint64, Float32, Float64},
	Int32:   {Int64, Float32, Float64},
	Uint32:  {Int64, Uint64, Float32, Float64},
	Int64:   {Float32, Float64},
	Uint64:  {Float32, Float64},
	Char:    {Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64},
	Float32: {Float64},
}

// CanCast reports whether a value of kind from may be stored where kind to is
// expected.
func CanCast(from, to Kind) bool {
	if from == Invalid || to == Invalid {
		return false
	}
	return from == to || slices.Contains(widenings[from], to)
}
