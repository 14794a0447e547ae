// Package loader turns a stream of bytes into the word array that becomes
// segment zero when a VM starts. Programs are stored big-endian, four bytes
// per instruction word (spec.md §5).
package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTruncatedWord indicates the input's length is not a multiple of four
// bytes: the final partial word cannot be a complete instruction. The
// reference implementation this was distilled from silently drops the
// trailing bytes; this loader instead treats it as fatal, since a program
// file that isn't a whole number of words is corrupt, not merely short.
var ErrTruncatedWord = errors.New("loader: trailing bytes do not form a complete word")

// Load reads r to completion and returns the big-endian words it contains,
// suitable for passing to vm.New as the initial contents of segment zero.
func Load(r io.Reader) ([]uint32, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, ErrTruncatedWord
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(raw[i*4:])
	}
	return words, nil
}
