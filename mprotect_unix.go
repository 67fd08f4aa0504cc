//go:build unix

package redirect

import (
	"syscall"
	"unsafe"
)

const (
	mprotectRX  = syscall.PROT_READ | syscall.PROT_EXEC
	mprotectRWX = syscall.PROT_READ | syscall.PROT_WRITE | syscall.PROT_EXEC
)

func mprotect(buf []byte, flags int) error {
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))

	pageSize := syscall.Getpagesize()

	// Round address down to page boundary.
	pageStart := addr &^ (uintptr(pageSize) - 1)

	// Cover complete pages from pageStart through the end of buf.
	regionSize := (int(addr-pageStart) + len(buf) + pageSize - 1) &^ (pageSize - 1)

	region := unsafe.Slice((*byte)(unsafe.Pointer(pageStart)), regionSize)

	return syscall.Mprotect(region, flags)
}
