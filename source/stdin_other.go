//go:build !unix

package source

import (
	"io"
	"os"
)

// NewStdin reads frames from standard input.
func NewStdin(width, height int) *Raw {
	return NewRaw(io.NopCloser(os.Stdin), width, height)
}
