// Package wasmsudoku bridges a Go host to a separately compiled WebAssembly
// solver module that exposes a C-style contract (allocate, free,
// computeInPlace) over flat linear memory.
//
// # Architecture Overview
//
//	wasmsudoku/          Root package with the Module and memory capability interfaces
//	├── board/           81-cell board and its byte codec
//	├── bridge/          Strategy-ordered marshalling in and out of module memory
//	├── registry/        Explicit process-wide registry of module factories
//	├── bootstrap/       Fetching and executing the module artifact
//	├── engine/          wazero integration and export discovery
//	├── loader/          Single-flight module loading and its state machine
//	├── solver/          One end-to-end computation and the serialized Solver
//	├── config/          HCL file and environment configuration
//	├── telemetry/       zap logger and OpenTelemetry tracer setup
//	└── errors/          Structured error types
//
// # Quick Start
//
//	eng, err := engine.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	boot := bootstrap.New(eng, bootstrap.FileSource("sudoku_solver.wasm"))
//	ld := loader.New(registry.Default(), boot)
//	s := solver.NewSolver(solver.New(ld, bridge.New()))
//
//	b, _ := board.Parse(puzzle)
//	solved, err := s.Solve(ctx, b)
//
// # Thread Safety
//
// Loader is safe for concurrent use and instantiates at most one module.
// Orchestrator is not: two concurrent runs race on the module allocator.
// Solver serializes runs and is the intended entry point for callers.
//
// # Memory Model
//
// WASM linear memory can only grow. Views over it go stale when it grows, so
// the bridge re-acquires a view immediately before every read and write.
package wasmsudoku
