package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmsudoku "github.com/wippyai/wasm-sudoku"
	"github.com/wippyai/wasm-sudoku/errors"
	"github.com/wippyai/wasm-sudoku/registry"
)

const pageSize = 65536

// compilationCache is shared by every engine in the process so a module
// compiled once is not recompiled after a loader reset.
var compilationCache = wazero.NewCompilationCache()

// Engine owns a wazero runtime and its host modules.
type Engine struct {
	runtime      wazero.Runtime
	cfg          Config
	hostInitMu   sync.Mutex
	hostInitDone atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// Exports overrides the export names probed for each role.
	Exports ExportNames

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// Views selects the memory capabilities instances expose. 0 means ViewAll.
	Views Views
}

// New creates an engine. cfg may be nil.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Views == 0 {
		c.Views = ViewAll
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCompilationCache(compilationCache)
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}

	return &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		cfg:     c,
	}, nil
}

// Close releases the runtime and every module instantiated from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// initHostModules instantiates the WASI and env host modules once per
// runtime. Safe for concurrent calls.
func (e *Engine) initHostModules(ctx context.Context) error {
	if e.hostInitDone.Load() {
		return nil
	}

	e.hostInitMu.Lock()
	defer e.hostInitMu.Unlock()

	if e.hostInitDone.Load() {
		return nil
	}

	if e.runtime.Module(wasiModuleName) == nil {
		if _, err := instantiateWASI(ctx, e.runtime); err != nil {
			return fmt.Errorf("instantiate WASI: %w", err)
		}
	}
	if e.runtime.Module(envModuleName) == nil {
		if _, err := instantiateEnv(ctx, e.runtime); err != nil {
			return fmt.Errorf("instantiate env: %w", err)
		}
	}

	e.hostInitDone.Store(true)
	return nil
}

// Compile compiles wasm and resolves its export surface. A module that does
// not satisfy the solver contract fails here, before instantiation.
func (e *Engine) Compile(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	exports, err := discoverExports(compiled, e.cfg.Exports)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Load("discover exports", err)
	}

	Logger().Debug("module compiled",
		zap.String("allocate", exports.Allocate),
		zap.String("free", exports.Free),
		zap.String("compute", exports.Compute),
		zap.String("memory", exports.Memory),
		zap.Bool("initialize", exports.Initialize))

	return &Module{engine: e, compiled: compiled, exports: exports}, nil
}

// Module is a compiled solver module.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	exports  Exports
}

// Exports returns the resolved export names.
func (m *Module) Exports() Exports {
	return m.exports
}

// Factory adapts Instantiate to a registry factory.
func (m *Module) Factory() registry.Factory {
	return func(ctx context.Context) (wasmsudoku.Module, error) {
		return m.Instantiate(ctx)
	}
}

// Close releases the compiled code.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate creates a fresh instance, running the reactor initialiser
// when the module exports one.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	if err := m.engine.initHostModules(ctx); err != nil {
		return nil, errors.Load("host modules", err)
	}

	// anonymous for parallel instantiation; command entry points never run
	modConfig := wazero.NewModuleConfig().WithName("").WithStartFunctions()

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.Load("instantiate module", err)
	}

	inst := &Instance{
		module:  mod,
		views:   m.engine.cfg.Views,
		exports: m.exports,
		alloc:   mod.ExportedFunction(m.exports.Allocate),
		free:    mod.ExportedFunction(m.exports.Free),
		compute: mod.ExportedFunction(m.exports.Compute),
		memory:  mod.ExportedMemory(m.exports.Memory),
	}

	if m.exports.Initialize {
		if _, err := mod.ExportedFunction(initializeExport).Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, errors.Load("initialize module", err)
		}
	}

	return inst, nil
}

// Instance is an instantiated solver module. It implements wasmsudoku.Module
// and the memory capabilities enabled by the engine's Views. Calls must not
// run concurrently.
type Instance struct {
	module  api.Module
	alloc   api.Function
	free    api.Function
	compute api.Function
	memory  api.Memory
	exports Exports
	closed  atomic.Bool
	views   Views
}

// Exports returns the export names this instance calls.
func (i *Instance) Exports() Exports {
	return i.exports
}

// Allocate calls the module allocator.
func (i *Instance) Allocate(ctx context.Context, size uint32) (uint32, error) {
	if i.closed.Load() {
		return 0, errClosed(errors.PhaseAllocate)
	}
	res, err := i.alloc.Call(ctx, api.EncodeU32(size))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", i.exports.Allocate, err)
	}
	return api.DecodeU32(res[0]), nil
}

// Free calls the module deallocator.
func (i *Instance) Free(ctx context.Context, addr uint32) error {
	if i.closed.Load() {
		return errClosed(errors.PhaseRelease)
	}
	if _, err := i.free.Call(ctx, api.EncodeU32(addr)); err != nil {
		return fmt.Errorf("%s: %w", i.exports.Free, err)
	}
	return nil
}

// ComputeInPlace calls the compute export over [addr, addr+length).
func (i *Instance) ComputeInPlace(ctx context.Context, addr, length uint32) error {
	if i.closed.Load() {
		return errClosed(errors.PhaseInvoke)
	}
	if _, err := i.compute.Call(ctx, api.EncodeU32(addr), api.EncodeU32(length)); err != nil {
		return fmt.Errorf("%s: %w", i.exports.Compute, err)
	}
	return nil
}

// BulkWrite exposes api.Memory.Write, which bounds-checks against the
// memory size at call time.
func (i *Instance) BulkWrite() (wasmsudoku.WriteFunc, bool) {
	if !i.views.Has(ViewBulk) || i.closed.Load() {
		return nil, false
	}
	mem := i.memory
	return func(src []byte, addr uint32) error {
		if !mem.Write(addr, src) {
			return fmt.Errorf("write out of bounds: offset=%d, length=%d, size=%d", addr, len(src), mem.Size())
		}
		return nil
	}, true
}

// UnsignedView returns a slice aliasing the whole of linear memory.
func (i *Instance) UnsignedView() ([]byte, bool) {
	if !i.views.Has(ViewUnsigned) {
		return nil, false
	}
	return i.whole()
}

// SignedView returns a signed slice aliasing the whole of linear memory.
func (i *Instance) SignedView() ([]int8, bool) {
	if !i.views.Has(ViewSigned) {
		return nil, false
	}
	buf, ok := i.whole()
	if !ok {
		return nil, false
	}
	return wasmsudoku.AsSigned(buf), true
}

// Buffer returns the raw linear memory.
func (i *Instance) Buffer() ([]byte, bool) {
	if !i.views.Has(ViewBuffer) {
		return nil, false
	}
	return i.whole()
}

func (i *Instance) whole() ([]byte, bool) {
	if i.closed.Load() {
		return nil, false
	}
	return i.memory.Read(0, i.memory.Size())
}

// MemorySize returns the current size of linear memory in bytes.
func (i *Instance) MemorySize() uint32 {
	if i.closed.Load() {
		return 0
	}
	return i.memory.Size()
}

// Global returns the value of an exported global.
func (i *Instance) Global(name string) (uint64, bool) {
	if i.closed.Load() {
		return 0, false
	}
	g := i.module.ExportedGlobal(name)
	if g == nil {
		return 0, false
	}
	return g.Get(), true
}

// Close releases the instance. Later calls are no-ops.
func (i *Instance) Close(ctx context.Context) error {
	if !i.closed.CompareAndSwap(false, true) {
		return nil
	}
	return i.module.Close(ctx)
}

func errClosed(phase errors.Phase) error {
	return errors.New(phase, errors.KindInvalidState).Detail("instance is closed").Build()
}

var (
	_ wasmsudoku.Module         = (*Instance)(nil)
	_ wasmsudoku.BulkWriter     = (*Instance)(nil)
	_ wasmsudoku.UnsignedViewer = (*Instance)(nil)
	_ wasmsudoku.SignedViewer   = (*Instance)(nil)
	_ wasmsudoku.BufferExposer  = (*Instance)(nil)
	_ wasmsudoku.Closer         = (*Instance)(nil)
)
