package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	wasmsudoku "github.com/wippyai/wasm-sudoku"
	"github.com/wippyai/wasm-sudoku/bootstrap"
	"github.com/wippyai/wasm-sudoku/errors"
	"github.com/wippyai/wasm-sudoku/registry"
)

// DefaultFactoryName is the name a solver artifact registers its factory
// under.
const DefaultFactoryName = "createModule"

// State is the load lifecycle of the solver module.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is a snapshot of the loader. Module is set only when Ready, Err
// only when Failed. Waiters counts callers blocked on the in-flight attempt.
type Status struct {
	Module  wasmsudoku.Module
	Err     error
	State   State
	Waiters int
}

// attempt is one in-flight instantiation shared by every waiter.
type attempt struct {
	module  wasmsudoku.Module
	err     error
	done    chan struct{}
	waiters int
}

// Loader instantiates the solver module at most once and shares the result.
// Safe for concurrent use.
type Loader struct {
	reg      *registry.Registry
	boot     bootstrap.Bootstrapper
	module   wasmsudoku.Module
	err      error
	inflight *attempt
	name     string
	attempts int
	state    State
	mu       sync.Mutex
}

// Option configures a Loader.
type Option func(*Loader)

// WithFactoryName sets the registry name the loader looks up.
func WithFactoryName(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.name = name
		}
	}
}

// New creates a loader. boot may be nil when the factory is registered by
// other means.
func New(reg *registry.Registry, boot bootstrap.Bootstrapper, opts ...Option) *Loader {
	if reg == nil {
		reg = registry.Default()
	}
	l := &Loader{reg: reg, boot: boot, name: DefaultFactoryName}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the module, instantiating it on first use. Concurrent callers
// share one attempt. A caller whose ctx ends stops waiting, but the attempt
// runs to completion and its result is kept for later callers. After a
// failure the next Load retries.
func (l *Loader) Load(ctx context.Context) (wasmsudoku.Module, error) {
	l.mu.Lock()
	if l.state == StateReady {
		m := l.module
		l.mu.Unlock()
		return m, nil
	}
	if err := ctx.Err(); err != nil {
		l.mu.Unlock()
		return nil, errors.Cancelled(errors.PhaseLoad, err)
	}
	a := l.inflight
	if a == nil {
		a = l.start(ctx)
	}
	a.waiters++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		a.waiters--
		l.mu.Unlock()
	}()

	select {
	case <-a.done:
		return a.module, a.err
	case <-ctx.Done():
		return nil, errors.Cancelled(errors.PhaseLoad, ctx.Err())
	}
}

// start must be called with l.mu held.
func (l *Loader) start(ctx context.Context) *attempt {
	a := &attempt{done: make(chan struct{})}
	l.inflight = a
	l.state = StateLoading
	l.err = nil
	l.attempts++
	n := l.attempts

	go l.run(context.WithoutCancel(ctx), a, n)
	return a
}

func (l *Loader) run(ctx context.Context, a *attempt, n int) {
	start := time.Now()
	m, err := l.instantiate(ctx)

	l.mu.Lock()
	if err != nil {
		l.state = StateFailed
		l.err = err
		l.module = nil
	} else {
		l.state = StateReady
		l.module = m
	}
	l.inflight = nil
	a.module, a.err = m, err
	l.mu.Unlock()
	close(a.done)

	if err != nil {
		Logger().Error("solver module load failed",
			zap.Int("attempt", n),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	Logger().Info("solver module ready",
		zap.Int("attempt", n),
		zap.Duration("elapsed", time.Since(start)))
}

func (l *Loader) instantiate(ctx context.Context) (m wasmsudoku.Module, err error) {
	defer func() {
		if p := recover(); p != nil {
			m, err = nil, errors.Load("module instantiation panicked", fmt.Errorf("panic: %v", p))
		}
	}()

	if f, ok := l.reg.Lookup(l.name); ok {
		return l.create(ctx, f)
	}
	if l.boot == nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindLoad).
			Value(l.name).
			Detail("factory %q not registered and no bootstrap configured", l.name).
			Build()
	}

	detach, err := l.boot.Bootstrap(ctx, l.reg, l.name)
	if detach != nil {
		defer func() {
			if derr := detach(); derr != nil {
				Logger().Warn("bootstrap detach failed", zap.Error(derr))
			}
		}()
	}
	if err != nil {
		return nil, asLoad("bootstrap module", err)
	}

	f, ok := l.reg.Lookup(l.name)
	if !ok {
		return nil, errors.New(errors.PhaseLoad, errors.KindLoad).
			Value(l.name).
			Detail("factory %q not registered after bootstrap", l.name).
			Build()
	}
	return l.create(ctx, f)
}

func (l *Loader) create(ctx context.Context, f registry.Factory) (wasmsudoku.Module, error) {
	m, err := f(ctx)
	if err != nil {
		return nil, asLoad("create module", err)
	}
	if m == nil {
		return nil, errors.Load(fmt.Sprintf("factory %q returned no module", l.name), nil)
	}
	return m, nil
}

// asLoad keeps an existing load error and wraps anything else.
func asLoad(detail string, err error) error {
	if errors.KindOf(err) == errors.KindLoad {
		return err
	}
	return errors.Load(detail, err)
}

// Status returns a snapshot of the loader state.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := Status{State: l.state, Module: l.module, Err: l.err}
	if l.inflight != nil {
		st.Waiters = l.inflight.waiters
	}
	return st
}

// Attempts returns how many instantiation attempts have been started.
func (l *Loader) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// FactoryName returns the registry name the loader looks up.
func (l *Loader) FactoryName() string {
	return l.name
}

// Reset returns the loader to Unloaded, closing a Ready module that holds
// runtime resources. It is refused while a load is in flight. Registered
// factories are kept, so the next Load does not bootstrap again.
func (l *Loader) Reset(ctx context.Context) error {
	l.mu.Lock()
	if l.state == StateLoading {
		l.mu.Unlock()
		return errors.New(errors.PhaseLoad, errors.KindInvalidState).
			Detail("cannot reset while loading").
			Build()
	}
	m := l.module
	l.state = StateUnloaded
	l.module = nil
	l.err = nil
	l.mu.Unlock()

	if c, ok := m.(wasmsudoku.Closer); ok {
		if err := c.Close(ctx); err != nil {
			return errors.Wrap(errors.PhaseLoad, errors.KindInvalidState, err, "close module")
		}
	}
	return nil
}
