package wasmtest

import (
	"context"
	"fmt"
	"sync"

	wasmsudoku "github.com/wippyai/wasm-sudoku"
)

// Caps selects which memory capabilities a Fake exposes.
type Caps uint8

const (
	CapBulk Caps = 1 << iota
	CapUnsigned
	CapSigned
	CapBuffer

	CapAll = CapBulk | CapUnsigned | CapSigned | CapBuffer
)

// Fake is an in-process Module with configurable capabilities and failure
// injection. It records every call it receives.
type Fake struct {
	// Compute mutates the buffer in place. nil echoes the input.
	Compute func(buf []byte) error

	AllocErr   error
	FreeErr    error
	BulkErr    error
	Mem        []byte
	Calls      []string
	frees      map[uint32]int
	next       uint32
	mu         sync.Mutex
	Caps       Caps
	NullAlloc  bool
	PanicAlloc bool
	PanicCalc  bool
}

// NewFake returns a Fake with one 64KiB page of memory and the given caps.
func NewFake(caps Caps) *Fake {
	return &Fake{
		Mem:   make([]byte, 65536),
		Caps:  caps,
		next:  1024,
		frees: make(map[uint32]int),
	}
}

func (f *Fake) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) Allocate(_ context.Context, size uint32) (uint32, error) {
	f.record("allocate(%d)", size)
	if f.PanicAlloc {
		panic("allocator corrupted")
	}
	if f.AllocErr != nil {
		return 0, f.AllocErr
	}
	if f.NullAlloc {
		return 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	addr := f.next
	f.next += size
	return addr, nil
}

func (f *Fake) Free(_ context.Context, addr uint32) error {
	f.record("free(%d)", addr)
	f.mu.Lock()
	f.frees[addr]++
	f.mu.Unlock()
	return f.FreeErr
}

func (f *Fake) ComputeInPlace(_ context.Context, addr, length uint32) error {
	f.record("compute(%d,%d)", addr, length)
	if f.PanicCalc {
		panic("solver crashed")
	}
	if f.Compute == nil {
		return nil
	}
	return f.Compute(f.Mem[addr : addr+length])
}

func (f *Fake) BulkWrite() (wasmsudoku.WriteFunc, bool) {
	if f.Caps&CapBulk == 0 {
		return nil, false
	}
	f.record("acquire(bulk)")
	return func(src []byte, addr uint32) error {
		if f.BulkErr != nil {
			return f.BulkErr
		}
		if int(addr)+len(src) > len(f.Mem) {
			return fmt.Errorf("write out of bounds: offset=%d, length=%d", addr, len(src))
		}
		copy(f.Mem[addr:], src)
		return nil
	}, true
}

func (f *Fake) UnsignedView() ([]byte, bool) {
	if f.Caps&CapUnsigned == 0 {
		return nil, false
	}
	f.record("acquire(unsigned)")
	return f.Mem, true
}

func (f *Fake) SignedView() ([]int8, bool) {
	if f.Caps&CapSigned == 0 {
		return nil, false
	}
	f.record("acquire(signed)")
	return wasmsudoku.AsSigned(f.Mem), true
}

func (f *Fake) Buffer() ([]byte, bool) {
	if f.Caps&CapBuffer == 0 {
		return nil, false
	}
	f.record("acquire(buffer)")
	return f.Mem, true
}

// Frees returns how many times addr was freed.
func (f *Fake) Frees(addr uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frees[addr]
}

// TotalFrees returns the number of Free calls.
func (f *Fake) TotalFrees() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.frees {
		n += c
	}
	return n
}

// CallCount returns how many calls were recorded.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Called reports whether a recorded call starts with prefix.
func (f *Fake) Called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

var (
	_ wasmsudoku.Module         = (*Fake)(nil)
	_ wasmsudoku.BulkWriter     = (*Fake)(nil)
	_ wasmsudoku.UnsignedViewer = (*Fake)(nil)
	_ wasmsudoku.SignedViewer   = (*Fake)(nil)
	_ wasmsudoku.BufferExposer  = (*Fake)(nil)
)
