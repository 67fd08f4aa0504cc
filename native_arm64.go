package redirect

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
)

const (
	// -----------------------------------
	// | 000101 | ... 26 bit address ... |
	// -----------------------------------
	_B = uint32(5 << 26)

	// -----------------------------------
	// | 100101 | ... 26 bit address ... |
	// -----------------------------------
	_BL = uint32(1<<31 | _B)

	instSize = 4
)

// decodeBody splits code into instructions. resolve maps the absolute target
// of a BL to the function it calls.
//
// Words that don't decode (padding, literal pools) are kept as OpNative.
func decodeBody(code []byte, resolve func(uintptr) (MethodRef, bool)) ([]Instruction, error) {
	pc := codeAddr(code)
	end := len(code) &^ (instSize - 1)

	body := make([]Instruction, 0, len(code)/instSize+1)
	for i := 0; i < end; i += instSize {
		raw := bytes.Clone(code[i : i+instSize])
		in := Native(raw)

		inst, err := arm64asm.Decode(raw)
		if err == nil && inst.Op == arm64asm.BL {
			if rel, ok := inst.Args[0].(arm64asm.PCRel); ok {
				if m, ok := resolve(uintptr(int64(pc) + int64(i) + int64(rel))); ok {
					in = Instruction{Op: OpCall, Method: m, Raw: raw}
				}
			}
		}

		body = append(body, in)
	}

	if end < len(code) {
		body = append(body, Native(bytes.Clone(code[end:])))
	}

	return body, nil
}

// encodeBody is the inverse of decodeBody. The result is exactly len(code)
// bytes long and is meant to be written over code.
func encodeBody(body []Instruction, code []byte, lookup func(MethodRef) (uintptr, bool)) ([]byte, error) {
	base := codeAddr(code)
	buf := make([]byte, 0, len(code))

	if target, ok := forwardTarget(body); ok {
		dest, ok := lookup(target)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, target)
		}
		if len(code) < instSize {
			return nil, errors.New("buffer too small")
		}
		buf, err := appendBranch(buf, _B, base, dest)
		if err != nil {
			return nil, err
		}
		return pad(buf, len(code)), nil
	}

	for _, in := range body {
		switch {
		case in.Raw != nil:
			buf = append(buf, in.Raw...)
		case in.IsCall():
			dest, ok := lookup(in.Method)
			if !ok {
				return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, in.Method)
			}
			var err error
			buf, err = appendBranch(buf, _BL, base+uintptr(len(buf)), dest)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("cannot encode %v", in)
		}

		if len(buf) > len(code) {
			return nil, errNoRoom
		}
	}

	return pad(buf, len(code)), nil
}

// appendBranch appends a B or BL at address pc that targets dest.
func appendBranch(buf []byte, op uint32, pc, dest uintptr) ([]byte, error) {
	offset := int64(dest) - int64(pc)

	// B and BL encode a 26-bit signed instruction offset.
	if offset < -(1<<27) || offset >= (1<<27) {
		return nil, fmt.Errorf("branch target out of range: %d bytes exceeds 128MiB", offset)
	}

	return binary.LittleEndian.AppendUint32(buf, op|(uint32(offset>>2)&(1<<26-1))), nil
}

// pad fills the rest of the function with zeros, as the compiler does.
func pad(buf []byte, n int) []byte {
	for len(buf) < n {
		buf = append(buf, 0)
	}
	return buf
}

func disassemble(code []byte) (string, error) {
	var buf bytes.Buffer

	baseAddr := codeAddr(code)

	for i := 0; i < len(code)&^3; i += 4 {
		var asm string
		instruction, err := arm64asm.Decode(code[i:])
		if err == nil {
			asm = instruction.String()
		} else {
			asm = "?"
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", baseAddr+uintptr(i), hex.EncodeToString(code[i:i+4]), asm)
	}

	return buf.String(), nil
}
