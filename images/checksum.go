package images

import (
	"crypto/md5"
	"encoding/hex"
)

// Checksum returns a deterministic hex MD5 of the frame's pixels, used to
// verify that processing a frame twice gives identical output.
//
// Example:
//
// ```go
//
//	before := Checksum(frame)
//	_, _ = p.Process(frame)
//	fmt.Printf("frame %s -> %s\n", before, Checksum(frame))
//
// ```
func Checksum(f *Frame) string {
	if f == nil || len(f.Pix) == 0 {
		return "empty"
	}
	sum := md5.Sum(f.Pix)
	return hex.EncodeToString(sum[:])
}
