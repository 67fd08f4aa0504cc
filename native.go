package redirect

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// NativeHost is a Host for compiled Go functions in the running program. It
// reads and patches machine code in place, so only functions it has been
// told about with Add can be rewritten or used as call targets.
//
// Inlined functions have no call sites to rewrite. If possible, add a
// noinline directive to originals:
//
//	//go:noinline
//	func myfunc() {
//		...
//	}
type NativeHost struct {
	mu      sync.RWMutex
	entries map[methodKey]uintptr
	methods map[uintptr]MethodRef

	// Installs toggle page protection, and neighboring functions share
	// pages.
	writeMu sync.Mutex
}

// NewNativeHost returns a NativeHost that knows no functions.
func NewNativeHost() *NativeHost {
	return &NativeHost{
		entries: map[methodKey]uintptr{},
		methods: map[uintptr]MethodRef{},
	}
}

// Add records fn so that it can be referenced by MethodRef and recognized as
// a call target.
func (h *NativeHost) Add(fn any) (MethodRef, error) {
	m, err := MethodOf(fn)
	if err != nil {
		return MethodRef{}, err
	}
	entry := reflect.ValueOf(fn).Pointer()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[m.key()] = entry
	h.methods[entry] = m
	return m, nil
}

func (h *NativeHost) entry(m MethodRef) (uintptr, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pc, ok := h.entries[m.key()]
	return pc, ok
}

func (h *NativeHost) method(pc uintptr) (MethodRef, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.methods[pc]
	return m, ok
}

func (h *NativeHost) code(m MethodRef) ([]byte, error) {
	pc, ok := h.entry(m)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, m)
	}
	return funcSlice(pc), nil
}

// Body decodes the machine code of method. Direct calls to known functions
// become OpCall, everything else is OpNative.
func (h *NativeHost) Body(method MethodRef) ([]Instruction, error) {
	code, err := h.code(method)
	if err != nil {
		return nil, err
	}
	return decodeBody(code, h.method)
}

// Install encodes body over the machine code of method. body must either be
// the decoded body with calls retargeted, or a forwarding body as produced
// for global redirects.
func (h *NativeHost) Install(method MethodRef, body []Instruction) error {
	code, err := h.code(method)
	if err != nil {
		return err
	}

	buf, err := encodeBody(body, code, h.entry)
	if err != nil {
		return fmt.Errorf("encoding %v: %w", method, err)
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	err = mprotect(code, mprotectRWX)
	if err != nil {
		return err
	}
	defer mprotect(code, mprotectRX)

	copy(code, buf)
	cacheflush(code)
	return nil
}

// Disassemble returns a listing of the machine code of method.
func (h *NativeHost) Disassemble(method MethodRef) (string, error) {
	code, err := h.code(method)
	if err != nil {
		return "", err
	}
	return disassemble(code)
}

// forwardTarget reports whether body is a synthesized forwarding body and
// returns the method it forwards to. Go passes arguments in registers and
// stack slots that the callee reads directly, so when signatures match the
// argument loads need no code.
func forwardTarget(body []Instruction) (MethodRef, bool) {
	n := len(body) - 2
	if n < 0 {
		return MethodRef{}, false
	}
	for i, in := range body[:n] {
		if in.Op != OpLoadArg || in.Arg != i || in.Raw != nil {
			return MethodRef{}, false
		}
	}
	call, ret := body[n], body[n+1]
	if call.Op != OpCall || call.Raw != nil || ret.Op != OpReturn || ret.Raw != nil {
		return MethodRef{}, false
	}
	return call.Method, true
}

var errNoRoom = errors.New("encoded body is larger than the function")

// funcSlice returns the machine code of the function starting at entry,
// including the padding up to the next function.
func funcSlice(entry uintptr) []byte {
	// To find the length, look at the offsets of every function and find
	// the one that comes immediately after this one.
	info := findfunc(entry)
	funcOffset := uint32(entry - info.datap.text)
	length := uint32(info.datap.etext - entry)

	for _, ft := range info.datap.ftab {
		if ft.entryoff <= funcOffset {
			continue
		}

		testLength := ft.entryoff - funcOffset
		if testLength < length {
			length = testLength
		}
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(entry)), length)
}

func codeAddr(code []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(code)))
}
