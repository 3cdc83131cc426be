// SPDX-License-Identifier: MIT
package audio

import "errors"

// ErrOverflow reports that input was lost before the block just read. The
// block itself is valid.
var ErrOverflow = errors.New("input overflowed")

// Source produces mono 16-bit blocks of a fixed size. Read blocks until buf
// is full and returns io.EOF once a finite source is exhausted.
type Source interface {
	Read(buf []int16) error
	SampleRate() int
	Close() error
}
