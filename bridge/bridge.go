package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	wasmsudoku "github.com/wippyai/wasm-sudoku"
	"github.com/wippyai/wasm-sudoku/errors"
)

// Region is a block allocated inside module memory. It must be released
// exactly once.
type Region struct {
	Addr     uint32
	Len      uint32
	released atomic.Bool
}

// Released reports whether the region has been handed back to the module.
func (r *Region) Released() bool {
	return r.released.Load()
}

// Bridge marshals bytes in and out of module memory using ordered strategies.
// It holds no module state and is safe for concurrent use; the module it is
// handed is not.
type Bridge struct {
	write []Strategy
	read  []Strategy
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithWriteStrategies replaces the write probe order.
func WithWriteStrategies(s ...Strategy) Option {
	return func(b *Bridge) { b.write = s }
}

// WithReadStrategies replaces the read probe order.
func WithReadStrategies(s ...Strategy) Option {
	return func(b *Bridge) { b.read = s }
}

// New creates a bridge with the default probe orders.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		write: DefaultWriteStrategies(),
		read:  DefaultReadStrategies(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allocate reserves size bytes. A zero address is an allocation failure and
// yields no region.
func (b *Bridge) Allocate(ctx context.Context, m wasmsudoku.Module, size uint32) (*Region, error) {
	var addr uint32
	err := guard(func() error {
		var err error
		addr, err = m.Allocate(ctx, size)
		return err
	})
	if err != nil {
		return nil, errors.AllocationFailed("", size, err)
	}
	if addr == 0 {
		return nil, errors.AllocationFailed("", size, nil)
	}
	return &Region{Addr: addr, Len: size}, nil
}

// Write copies data into r through the first write strategy the module
// supports. It does not release r on failure.
func (b *Bridge) Write(m wasmsudoku.Module, r *Region, data []byte) error {
	if r == nil || r.Addr == 0 {
		return errors.New(errors.PhaseWrite, errors.KindInvalidState).Detail("no allocated region").Build()
	}
	if uint32(len(data)) > r.Len {
		return errors.New(errors.PhaseWrite, errors.KindOutOfBounds).
			Value(len(data)).
			Detail("%d bytes do not fit a %d byte region", len(data), r.Len).
			Build()
	}

	view, err := b.acquire(m, b.write, errors.PhaseWrite)
	if err != nil {
		return err
	}
	return guard(func() error { return view.Write(r.Addr, data) })
}

// WriteBuffer allocates len(data) bytes and writes data into them. On a
// write failure the region is freed before the error is returned.
func (b *Bridge) WriteBuffer(ctx context.Context, m wasmsudoku.Module, data []byte) (*Region, error) {
	r, err := b.Allocate(ctx, m, uint32(len(data)))
	if err != nil {
		return nil, err
	}
	if err := b.Write(m, r, data); err != nil {
		if rerr := b.Release(context.WithoutCancel(ctx), m, r); rerr != nil {
			Logger().Warn("release after write failure failed",
				zap.Uint32("addr", r.Addr),
				zap.NamedError("primary", err),
				zap.Error(rerr))
		}
		return nil, err
	}
	return r, nil
}

// ReadBuffer copies the contents of r out of module memory.
func (b *Bridge) ReadBuffer(m wasmsudoku.Module, r *Region) ([]byte, error) {
	if r == nil || r.Addr == 0 {
		return nil, errors.New(errors.PhaseRead, errors.KindInvalidState).Detail("no allocated region").Build()
	}

	view, err := b.acquire(m, b.read, errors.PhaseRead)
	if err != nil {
		return nil, err
	}

	var out []byte
	err = guard(func() error {
		var err error
		out, err = view.Read(r.Addr, r.Len)
		return err
	})
	return out, err
}

// Invoke runs the module computation over r. The module mutates r in place.
// After a failure the module state is unknown.
func (b *Bridge) Invoke(ctx context.Context, m wasmsudoku.Module, r *Region) error {
	if r == nil || r.Addr == 0 {
		return errors.New(errors.PhaseInvoke, errors.KindInvalidState).Detail("no allocated region").Build()
	}
	if err := guard(func() error { return m.ComputeInPlace(ctx, r.Addr, r.Len) }); err != nil {
		return errors.Invocation("", err)
	}
	return nil
}

// Release hands r back to the module allocator. Only the first call reaches
// the module; later calls fail with a double_free error.
func (b *Bridge) Release(ctx context.Context, m wasmsudoku.Module, r *Region) error {
	if r == nil || r.Addr == 0 {
		return errors.New(errors.PhaseRelease, errors.KindInvalidState).Detail("no allocated region").Build()
	}
	if !r.released.CompareAndSwap(false, true) {
		return errors.New(errors.PhaseRelease, errors.KindDoubleFree).
			Value(r.Addr).
			Detail("region at %d already released", r.Addr).
			Build()
	}
	if err := guard(func() error { return m.Free(ctx, r.Addr) }); err != nil {
		return errors.Wrap(errors.PhaseRelease, errors.KindInvocation, err, fmt.Sprintf("free region at %d", r.Addr))
	}
	return nil
}

func (b *Bridge) acquire(m wasmsudoku.Module, order []Strategy, phase errors.Phase) (MemoryView, error) {
	for _, s := range order {
		if view, ok := s.Acquire(m); ok {
			return view, nil
		}
	}
	names := make([]string, len(order))
	for i, s := range order {
		names[i] = s.Name()
	}
	return nil, errors.MemoryAccess(phase, "", fmt.Sprintf("no memory strategy available (tried %v)", names), nil)
}

// guard converts a panic in module code into an error so that no module
// fault crashes the host.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
