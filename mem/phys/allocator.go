package phys

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrNoMem is returned when no free frame is left.
var ErrNoMem = errors.New("out of physical memory")

// An Allocator hands out physical frames and keeps a reference count for
// each of them. A frame returns to the free list when its count drops to
// zero.
type Allocator struct {
	sync.Mutex

	storage *Storage
	refs    []uint16
	free    []Frame
}

// NewAllocator creates an allocator that manages numFrames frames backed by
// a fresh storage.
func NewAllocator(numFrames int) *Allocator {
	a := &Allocator{
		storage: NewStorage(uint64(numFrames) * PageSize),
		refs:    make([]uint16, numFrames),
		free:    make([]Frame, 0, numFrames),
	}

	// Lower frames are handed out first.
	for i := numFrames - 1; i >= 0; i-- {
		a.free = append(a.free, Frame(i))
	}

	return a
}

// Storage returns the byte storage behind the frames.
func (a *Allocator) Storage() *Storage {
	return a.storage
}

// NumFrames returns the number of frames managed by the allocator.
func (a *Allocator) NumFrames() int {
	return len(a.refs)
}

// NumFree returns the number of frames on the free list.
func (a *Allocator) NumFree() int {
	a.Lock()
	defer a.Unlock()

	return len(a.free)
}

// Reserve permanently takes the frame out of the free list, as the boot
// code does for memory the kernel occupies.
func (a *Allocator) Reserve(f Frame) {
	a.Lock()
	defer a.Unlock()

	for i, free := range a.free {
		if free == f {
			a.free = append(a.free[:i], a.free[i+1:]...)
			a.refs[f] = 1

			return
		}
	}

	log.Panicf("frame %d is not free", f)
}

// Alloc takes one frame from the free list. The returned frame has a
// reference count of zero; the caller that maps it increments the count.
// When zero is set, the frame content is cleared.
func (a *Allocator) Alloc(zero bool) (Frame, error) {
	a.Lock()
	defer a.Unlock()

	if len(a.free) == 0 {
		return InvalidFrame, ErrNoMem
	}

	f := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]

	if zero {
		a.storage.Zero(f.Address())
	}

	return f, nil
}

// Free puts a frame with no references back on the free list.
func (a *Allocator) Free(f Frame) {
	a.Lock()
	defer a.Unlock()

	a.free1(f)
}

func (a *Allocator) free1(f Frame) {
	if a.refs[f] != 0 {
		log.Panicf("freeing frame %d with %d references", f, a.refs[f])
	}

	a.free = append(a.free, f)
}

// IncRef adds one reference to the frame.
func (a *Allocator) IncRef(f Frame) {
	a.Lock()
	defer a.Unlock()

	a.mustBeManaged(f)
	a.refs[f]++
}

// DecRef drops one reference to the frame, freeing it if that was the last
// one.
func (a *Allocator) DecRef(f Frame) {
	a.Lock()
	defer a.Unlock()

	a.mustBeManaged(f)

	if a.refs[f] == 0 {
		log.Panicf("frame %d has no reference", f)
	}

	a.refs[f]--
	if a.refs[f] == 0 {
		a.free1(f)
	}
}

// RefCount returns the number of references to the frame.
func (a *Allocator) RefCount(f Frame) int {
	a.Lock()
	defer a.Unlock()

	a.mustBeManaged(f)

	return int(a.refs[f])
}

func (a *Allocator) mustBeManaged(f Frame) {
	if int(f) >= len(a.refs) {
		panic(fmt.Sprintf("frame %d out of range", f))
	}
}

// Copy copies the content of frame src into frame dst.
func (a *Allocator) Copy(dst, src Frame) error {
	return a.storage.Copy(dst.Address(), src.Address())
}
