package wasmsudoku

import (
	"context"
	"unsafe"
)

// Module is the capability set of a loaded solver module: its allocator and
// its in-place compute entry point. Memory access is exposed through the
// optional interfaces below, which a Module may implement in any combination.
type Module interface {
	// Allocate reserves size bytes in module memory. A zero address means
	// the allocator failed.
	Allocate(ctx context.Context, size uint32) (uint32, error)
	// Free releases a block returned by Allocate. Not idempotent.
	Free(ctx context.Context, addr uint32) error
	// ComputeInPlace runs the module computation over [addr, addr+length).
	ComputeInPlace(ctx context.Context, addr, length uint32) error
}

// WriteFunc copies src into module memory starting at addr.
type WriteFunc func(src []byte, addr uint32) error

// BulkWriter exposes a module-provided bulk write helper.
// ok is false when the module build provides none.
type BulkWriter interface {
	BulkWrite() (WriteFunc, bool)
}

// UnsignedViewer exposes an unsigned byte view over linear memory.
// The view aliases module memory and is stale once memory grows.
type UnsignedViewer interface {
	UnsignedView() ([]byte, bool)
}

// SignedViewer exposes a signed byte view over linear memory.
type SignedViewer interface {
	SignedView() ([]int8, bool)
}

// BufferExposer exposes the raw backing buffer of linear memory, from which
// either byte view can be derived.
type BufferExposer interface {
	Buffer() ([]byte, bool)
}

// Closer is implemented by modules that hold runtime resources.
type Closer interface {
	Close(ctx context.Context) error
}

// AsSigned reinterprets buf as signed bytes without copying.
func AsSigned(buf []byte) []int8 {
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(unsafe.SliceData(buf))), len(buf))
}
