package redirect

import (
	"encoding/hex"
	"fmt"
)

// OpCode is the operation of an Instruction.
type OpCode uint8

const (
	OpNop      OpCode = iota
	OpLoadArg         // push argument Arg
	OpCall            // direct call to Method
	OpCallVirt        // dynamically dispatched call to Method
	OpReturn
	OpNative // opaque machine instruction in Raw
)

var opNames = [...]string{
	OpNop:      "nop",
	OpLoadArg:  "ldarg",
	OpCall:     "call",
	OpCallVirt: "callvirt",
	OpReturn:   "ret",
	OpNative:   "native",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Instruction is one entry of a method body as supplied by the
// instrumentation layer.
type Instruction struct {
	Op OpCode

	// Method is the call target for OpCall and OpCallVirt.
	Method MethodRef

	// Arg is the argument index for OpLoadArg.
	Arg int

	// Raw is the encoded instruction when the body was decoded from machine
	// code. Synthesized and retargeted instructions have no Raw.
	Raw []byte
}

func Nop() Instruction { return Instruction{Op: OpNop} }
func LoadArg(i int) Instruction { return Instruction{Op: OpLoadArg, Arg: i} }
func Call(m MethodRef) Instruction { return Instruction{Op: OpCall, Method: m} }
func CallVirt(m MethodRef) Instruction { return Instruction{Op: OpCallVirt, Method: m} }
func Return() Instruction { return Instruction{Op: OpReturn} }
func Native(raw []byte) Instruction { return Instruction{Op: OpNative, Raw: raw} }

// IsCall reports whether the instruction invokes another method.
func (in Instruction) IsCall() bool {
	return in.Op == OpCall || in.Op == OpCallVirt
}

// Callee returns the call target.
func (in Instruction) Callee() (MethodRef, bool) {
	if !in.IsCall() {
		return MethodRef{}, false
	}
	return in.Method, true
}

// retarget returns a call of the same kind aimed at m.
func (in Instruction) retarget(m MethodRef) Instruction {
	return Instruction{Op: in.Op, Method: m}
}

func (in Instruction) String() string {
	switch in.Op {
	case OpLoadArg:
		return fmt.Sprintf("%v %d", in.Op, in.Arg)
	case OpCall, OpCallVirt:
		return fmt.Sprintf("%v %v", in.Op, in.Method)
	case OpNative:
		return fmt.Sprintf("%v %s", in.Op, hex.EncodeToString(in.Raw))
	}
	return in.Op.String()
}
