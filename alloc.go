package coop

import "fmt"

// DefaultStackSize is the size of the stack region reserved for a coroutine
// when no explicit size is given.
const DefaultStackSize = 64 << 10

// Allocator provides the fixed-size byte regions reserved as coroutine
// stacks. Each region is owned by exactly one coroutine from the time New
// returns until Free releases it.
//
// The scheduler never shares a region between coroutines and never releases
// the same region twice.
type Allocator interface {
	// Alloc acquires a contiguous region of the given size.
	Alloc(size int) ([]byte, error)

	// Release returns a region previously obtained from Alloc.
	Release(region []byte)
}

// heapAllocator is the default Allocator, backed by the Go heap.
type heapAllocator struct{}

func (heapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid stack size %d", size)
	}
	return make([]byte, size), nil
}

func (heapAllocator) Release([]byte) {}
