// Package phys manages the simulated physical memory: the byte storage and
// the allocator that hands out page frames.
package phys

import "math"

const (
	// PageShift is log2 of the page size.
	PageShift = 12

	// PageSize is the number of bytes in a page frame.
	PageSize = 1 << PageShift
)

// Frame is the index of a physical page frame.
type Frame uint32

// InvalidFrame is returned by the allocator when it fails to reserve a
// frame.
const InvalidFrame = Frame(math.MaxUint32)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte of the frame.
func (f Frame) Address() uint64 {
	return uint64(f) << PageShift
}

// FrameOf returns the frame that contains the physical address.
func FrameOf(addr uint64) Frame {
	return Frame(addr >> PageShift)
}
