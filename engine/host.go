package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// Host module names.
const (
	wasiModuleName = wasi_snapshot_preview1.ModuleName
	envModuleName  = "env"
)

// instantiateWASI instantiates WASI preview1, which emscripten standalone
// builds import for fd_write, proc_exit and clock access.
func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(wasiModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}

// instantiateEnv instantiates the "env" imports emitted by emscripten when
// memory growth is allowed.
func instantiateEnv(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	return r.NewHostModuleBuilder(envModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			var pages uint32
			if mem := mod.Memory(); mem != nil {
				pages = mem.Size() / pageSize
			}
			Logger().Debug("module memory grew",
				zap.Uint32("index", api.DecodeU32(stack[0])),
				zap.Uint32("pages", pages))
		}), []api.ValueType{api.ValueTypeI32}, nil).
		Export("emscripten_notify_memory_growth").
		Instantiate(ctx)
}
