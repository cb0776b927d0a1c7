package solver

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	wasmsudoku "github.com/wippyai/wasm-sudoku"
	"github.com/wippyai/wasm-sudoku/board"
	"github.com/wippyai/wasm-sudoku/bridge"
	"github.com/wippyai/wasm-sudoku/errors"
)

const tracerName = "github.com/wippyai/wasm-sudoku/solver"

// State is a step of one orchestration.
type State int

const (
	StateIdle State = iota
	StateModuleReady
	StateAllocated
	StateWritten
	StateInvoked
	StateRead
	StateFreed
	StateDone
	StateError
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateModuleReady: "module_ready",
	StateAllocated:   "allocated",
	StateWritten:     "written",
	StateInvoked:     "invoked",
	StateRead:        "read",
	StateFreed:       "freed",
	StateDone:        "done",
	StateError:       "error",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ModuleSource provides a ready module. *loader.Loader satisfies it.
type ModuleSource interface {
	Load(ctx context.Context) (wasmsudoku.Module, error)
}

// Orchestrator runs one board through the module: load, allocate, write,
// invoke, read, free. It does not serialize runs; see Solver.
type Orchestrator struct {
	src      ModuleSource
	bridge   *bridge.Bridge
	tracer   trace.Tracer
	observer func(State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver calls fn on every state transition, in order.
func WithObserver(fn func(State)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// New creates an orchestrator. br may be nil for the default bridge.
func New(src ModuleSource, br *bridge.Bridge, opts ...Option) *Orchestrator {
	if br == nil {
		br = bridge.New()
	}
	o := &Orchestrator{src: src, bridge: br}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}

// Run computes b in the module and returns the decoded result. Failures are
// *errors.Error values; no partial board is returned.
func (o *Orchestrator) Run(ctx context.Context, b board.Board) (board.Board, error) {
	out, _, err := o.RunTraced(ctx, b)
	return out, err
}

// RunTraced is Run that also returns the visited states.
func (o *Orchestrator) RunTraced(ctx context.Context, b board.Board) (board.Board, []State, error) {
	ctx, span := o.tracer.Start(ctx, "solver.Run")
	defer span.End()

	a := &attempt{o: o, span: span}
	a.to(StateIdle)
	out, err := a.run(ctx, b)
	if err != nil {
		return nil, a.states, err
	}
	return out, a.states, nil
}

// attempt is a single pass through the state machine. It is never reused.
type attempt struct {
	o      *Orchestrator
	span   trace.Span
	module wasmsudoku.Module
	region *bridge.Region
	states []State
}

func (a *attempt) to(s State) {
	a.states = append(a.states, s)
	a.span.AddEvent(s.String())
	if a.o.observer != nil {
		a.o.observer(s)
	}
}

func (a *attempt) run(ctx context.Context, b board.Board) (board.Board, error) {
	data, err := board.Encode(b)
	if err != nil {
		return nil, a.fail(err)
	}
	a.span.SetAttributes(attribute.Int("sudoku.givens", b.Givens()))

	a.module, err = a.o.src.Load(ctx)
	if err != nil {
		return nil, a.fail(err)
	}
	a.to(StateModuleReady)

	// Module calls run to completion once memory is allocated.
	mctx := context.WithoutCancel(ctx)

	a.region, err = a.o.bridge.Allocate(mctx, a.module, uint32(len(data)))
	if err != nil {
		return nil, a.fail(err)
	}
	a.span.SetAttributes(attribute.Int64("sudoku.region.addr", int64(a.region.Addr)))
	a.to(StateAllocated)

	if err := a.o.bridge.Write(a.module, a.region, data); err != nil {
		return nil, a.cleanup(mctx, err)
	}
	a.to(StateWritten)

	if err := a.o.bridge.Invoke(mctx, a.module, a.region); err != nil {
		return nil, a.cleanup(mctx, err)
	}
	a.to(StateInvoked)

	raw, err := a.o.bridge.ReadBuffer(a.module, a.region)
	if err != nil {
		return nil, a.cleanup(mctx, err)
	}
	a.to(StateRead)

	if err := a.o.bridge.Release(mctx, a.module, a.region); err != nil {
		Logger().Warn("release after successful read failed",
			zap.Uint32("addr", a.region.Addr),
			zap.Error(err))
		a.span.AddEvent("release_failed", trace.WithAttributes(attribute.String("error", err.Error())))
	}
	a.to(StateFreed)

	out, err := board.Decode(raw)
	if err != nil {
		return nil, a.fail(err)
	}
	a.to(StateDone)
	return out, nil
}

// cleanup releases the region on a failure path. A release failure is
// logged and never replaces the primary error.
func (a *attempt) cleanup(ctx context.Context, primary error) error {
	if a.region != nil && !a.region.Released() {
		if err := a.o.bridge.Release(ctx, a.module, a.region); err != nil {
			Logger().Warn("release after failure failed",
				zap.Uint32("addr", a.region.Addr),
				zap.NamedError("primary", primary),
				zap.Error(err))
		}
	}
	return a.fail(primary)
}

func (a *attempt) fail(err error) error {
	a.to(StateError)
	kind := errors.KindOf(err)
	a.span.SetAttributes(attribute.String("error.kind", string(kind)))
	a.span.RecordError(err)
	a.span.SetStatus(codes.Error, err.Error())
	Logger().Debug("orchestration failed",
		zap.Stringer("after", a.last()),
		zap.String("kind", string(kind)),
		zap.Error(err))
	return err
}

// last returns the state before Error.
func (a *attempt) last() State {
	if len(a.states) < 2 {
		return StateIdle
	}
	return a.states[len(a.states)-2]
}
