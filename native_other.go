//go:build !amd64 && !arm64

package redirect

func decodeBody(code []byte, resolve func(uintptr) (MethodRef, bool)) ([]Instruction, error) {
	return nil, ErrUnsupportedArch
}

func encodeBody(body []Instruction, code []byte, lookup func(MethodRef) (uintptr, bool)) ([]byte, error) {
	return nil, ErrUnsupportedArch
}

func disassemble(code []byte) (string, error) {
	return "", ErrUnsupportedArch
}
