//go:build !unix && !windows

package redirect

const (
	mprotectRX  = 0
	mprotectRWX = 0
)

func mprotect(buf []byte, flags int) error {
	return ErrUnsupportedArch
}
