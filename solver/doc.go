// Package solver sequences one end-to-end computation against the module.
//
// # State Machine
//
//	Idle -> ModuleReady -> Allocated -> Written -> Invoked -> Read -> Freed -> Done
//
// Error is reachable from every step and absorbing. The board is encoded
// before the module is requested, so invalid input never reaches it. Once a
// region is allocated it is released exactly once on every path; on failure
// paths a release error is logged and the original error is returned.
// Module calls after allocation ignore caller cancellation and run to
// completion.
//
// Each run is recorded as a "solver.Run" span with one event per transition.
//
// # Concurrency
//
// Orchestrator does not serialize runs and two concurrent runs race on the
// module allocator. Callers must go through Solver, which admits one run at
// a time.
package solver
