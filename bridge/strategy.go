package bridge

import (
	wasmsudoku "github.com/wippyai/wasm-sudoku"
	"github.com/wippyai/wasm-sudoku/errors"
)

// Strategy names, in the order they are probed by default.
const (
	StrategyBulkWrite      = "bulk-write"
	StrategyUnsignedView   = "unsigned-view"
	StrategySignedView     = "signed-view"
	StrategyBufferUnsigned = "buffer-unsigned"
	StrategyBufferSigned   = "buffer-signed"
)

// MemoryView is a byte window over module memory. A view must not outlive
// the operation it was acquired for: module memory may grow in between.
type MemoryView interface {
	Strategy() string
	// Size is the addressable length of the view, 0 when unknown.
	Size() uint32
	Write(addr uint32, src []byte) error
	// Read copies length bytes starting at addr into a fresh slice.
	Read(addr, length uint32) ([]byte, error)
}

// Strategy acquires a MemoryView from a module. ok is false when the module
// does not provide the capability the strategy relies on.
type Strategy interface {
	Name() string
	Acquire(m wasmsudoku.Module) (MemoryView, bool)
}

// DefaultWriteStrategies is the documented write probe order.
func DefaultWriteStrategies() []Strategy {
	return []Strategy{BulkWrite(), UnsignedView(), SignedView(), BufferUnsigned(), BufferSigned()}
}

// DefaultReadStrategies is the documented read probe order. The bulk write
// helper cannot read and is not part of it.
func DefaultReadStrategies() []Strategy {
	return []Strategy{UnsignedView(), BufferUnsigned(), SignedView(), BufferSigned()}
}

type strategyFunc struct {
	name    string
	acquire func(m wasmsudoku.Module) (MemoryView, bool)
}

func (s strategyFunc) Name() string { return s.name }

func (s strategyFunc) Acquire(m wasmsudoku.Module) (MemoryView, bool) {
	return s.acquire(m)
}

// BulkWrite uses the module's bulk write helper. It is write-only.
func BulkWrite() Strategy {
	return strategyFunc{name: StrategyBulkWrite, acquire: func(m wasmsudoku.Module) (MemoryView, bool) {
		bw, ok := m.(wasmsudoku.BulkWriter)
		if !ok {
			return nil, false
		}
		fn, ok := bw.BulkWrite()
		if !ok || fn == nil {
			return nil, false
		}
		return bulkView{write: fn}, true
	}}
}

// UnsignedView uses a named unsigned byte view.
func UnsignedView() Strategy {
	return strategyFunc{name: StrategyUnsignedView, acquire: func(m wasmsudoku.Module) (MemoryView, bool) {
		uv, ok := m.(wasmsudoku.UnsignedViewer)
		if !ok {
			return nil, false
		}
		mem, ok := uv.UnsignedView()
		if !ok {
			return nil, false
		}
		return byteView{name: StrategyUnsignedView, mem: mem}, true
	}}
}

// SignedView uses a named signed byte view; reads mask each value to its
// low 8 bits.
func SignedView() Strategy {
	return strategyFunc{name: StrategySignedView, acquire: func(m wasmsudoku.Module) (MemoryView, bool) {
		sv, ok := m.(wasmsudoku.SignedViewer)
		if !ok {
			return nil, false
		}
		mem, ok := sv.SignedView()
		if !ok {
			return nil, false
		}
		return int8View{name: StrategySignedView, mem: mem}, true
	}}
}

// BufferUnsigned derives an unsigned view from the raw memory buffer.
func BufferUnsigned() Strategy {
	return strategyFunc{name: StrategyBufferUnsigned, acquire: func(m wasmsudoku.Module) (MemoryView, bool) {
		buf, ok := buffer(m)
		if !ok {
			return nil, false
		}
		return byteView{name: StrategyBufferUnsigned, mem: buf}, true
	}}
}

// BufferSigned derives a signed view from the raw memory buffer.
func BufferSigned() Strategy {
	return strategyFunc{name: StrategyBufferSigned, acquire: func(m wasmsudoku.Module) (MemoryView, bool) {
		buf, ok := buffer(m)
		if !ok {
			return nil, false
		}
		return int8View{name: StrategyBufferSigned, mem: wasmsudoku.AsSigned(buf)}, true
	}}
}

func buffer(m wasmsudoku.Module) ([]byte, bool) {
	be, ok := m.(wasmsudoku.BufferExposer)
	if !ok {
		return nil, false
	}
	return be.Buffer()
}

type bulkView struct {
	write wasmsudoku.WriteFunc
}

func (v bulkView) Strategy() string { return StrategyBulkWrite }

func (v bulkView) Size() uint32 { return 0 }

func (v bulkView) Write(addr uint32, src []byte) error {
	if err := v.write(src, addr); err != nil {
		return errors.MemoryAccess(errors.PhaseWrite, StrategyBulkWrite, "bulk write failed", err)
	}
	return nil
}

func (v bulkView) Read(addr, length uint32) ([]byte, error) {
	return nil, errors.MemoryAccess(errors.PhaseRead, StrategyBulkWrite, "strategy is write-only", nil)
}

type byteView struct {
	name string
	mem  []byte
}

func (v byteView) Strategy() string { return v.name }

func (v byteView) Size() uint32 { return uint32(len(v.mem)) }

func (v byteView) Write(addr uint32, src []byte) error {
	if !inBounds(addr, uint32(len(src)), len(v.mem)) {
		return errors.OutOfBounds(errors.PhaseWrite, v.name, addr, uint32(len(src)), v.Size())
	}
	copy(v.mem[addr:], src)
	return nil
}

func (v byteView) Read(addr, length uint32) ([]byte, error) {
	if !inBounds(addr, length, len(v.mem)) {
		return nil, errors.OutOfBounds(errors.PhaseRead, v.name, addr, length, v.Size())
	}
	out := make([]byte, length)
	copy(out, v.mem[addr:])
	return out, nil
}

type int8View struct {
	name string
	mem  []int8
}

func (v int8View) Strategy() string { return v.name }

func (v int8View) Size() uint32 { return uint32(len(v.mem)) }

func (v int8View) Write(addr uint32, src []byte) error {
	if !inBounds(addr, uint32(len(src)), len(v.mem)) {
		return errors.OutOfBounds(errors.PhaseWrite, v.name, addr, uint32(len(src)), v.Size())
	}
	dst := v.mem[addr:]
	for i, b := range src {
		dst[i] = int8(b)
	}
	return nil
}

func (v int8View) Read(addr, length uint32) ([]byte, error) {
	if !inBounds(addr, length, len(v.mem)) {
		return nil, errors.OutOfBounds(errors.PhaseRead, v.name, addr, length, v.Size())
	}
	out := make([]byte, length)
	for i, s := range v.mem[addr : addr+length] {
		out[i] = byte(int(s) & 0xFF)
	}
	return out, nil
}

func inBounds(addr, length uint32, size int) bool {
	return uint64(addr)+uint64(length) <= uint64(size)
}
