package redirect

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"golang.org/x/arch/x86/x86asm"
)

const (
	opcodeCALLrel = 0xe8 // CALL rel32
	opcodeINT3    = 0xcc
	opcodeJMP     = 0xe9 // JMP rel32

	callSize = 5 // 1 byte opcode + 4 byte address
	jumpSize = 5
)

// decodeBody splits code into instructions. resolve maps the absolute target
// of a direct call to the function it calls.
func decodeBody(code []byte, resolve func(uintptr) (MethodRef, bool)) ([]Instruction, error) {
	base := codeAddr(code)

	end := paddingStart(code)
	body := make([]Instruction, 0, end/4)
	for i := 0; i < end; {
		inst, err := x86asm.Decode(code[i:end], 64)
		if err != nil {
			return nil, fmt.Errorf("decode error at offset %d: %w", i, err)
		}

		raw := bytes.Clone(code[i : i+inst.Len])
		in := Native(raw)

		if inst.Len == callSize && raw[0] == opcodeCALLrel {
			if rel, ok := inst.Args[0].(x86asm.Rel); ok {
				next := base + uintptr(i+inst.Len)
				if m, ok := resolve(uintptr(int64(next) + int64(rel))); ok {
					in = Instruction{Op: OpCall, Method: m, Raw: raw}
				}
			}
		}

		body = append(body, in)
		i += inst.Len
	}

	return body, nil
}

// paddingStart returns the offset of the INT3 padding the compiler puts
// after a function. A 0xcc byte only counts as padding when it starts an
// instruction and everything after it is also padding.
func paddingStart(code []byte) int {
	for i := 0; i < len(code); {
		if code[i] == opcodeINT3 && len(bytes.TrimLeft(code[i:], "\xcc")) == 0 {
			return i
		}
		inst, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return len(code)
		}
		i += inst.Len
	}
	return len(code)
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
		if len(code) < jumpSize {
			return nil, errors.New("buffer too small for jump instruction")
		}
		buf, err := appendRel32(buf, opcodeJMP, base, dest)
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
			buf, err = appendRel32(buf, opcodeCALLrel, base+uintptr(len(buf)), dest)
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

// appendRel32 appends a 5 byte instruction at address pc that transfers
// control to dest.
func appendRel32(buf []byte, opcode byte, pc, dest uintptr) ([]byte, error) {
	rel := int64(dest) - int64(pc+5)
	if rel < math.MinInt32 || rel > math.MaxInt32 {
		return nil, fmt.Errorf("target 0x%x out of range from 0x%x", dest, pc)
	}

	buf = append(buf, opcode)
	return binary.LittleEndian.AppendUint32(buf, uint32(int32(rel))), nil
}

// pad fills the rest of the function with INT3 to match what the compiler
// does.
func pad(buf []byte, n int) []byte {
	for len(buf) < n {
		buf = append(buf, opcodeINT3)
	}
	return buf
}

func disassemble(code []byte) (string, error) {
	var buf bytes.Buffer

	baseAddr := codeAddr(code)

	for i := 0; i < len(code); {
		instruction, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return "", fmt.Errorf("decode error at offset %d: %w", i, err)
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", baseAddr+uintptr(i), hex.EncodeToString(code[i:i+instruction.Len]), instruction.String())

		i += instruction.Len
	}

	return buf.String(), nil
}
