//go:build unix

package source

import (
	"io"
	"os"
	"syscall"
)

// NewStdin reads frames from standard input. The descriptor is switched to
// non-blocking mode so Close interrupts a pending read.
func NewStdin(width, height int) *Raw {
	if err := syscall.SetNonblock(syscall.Stdin, true); err != nil {
		return NewRaw(io.NopCloser(os.Stdin), width, height)
	}
	return NewRaw(os.NewFile(uintptr(syscall.Stdin), "/dev/stdin"), width, height)
}
