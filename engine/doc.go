// Package engine instantiates solver modules on the wazero runtime.
//
// # Architecture
//
//	Engine   - owns a wazero runtime with the WASI and env host modules
//	Module   - a compiled module whose exports satisfy the solver contract
//	Instance - a running module implementing wasmsudoku.Module
//
// # Export Discovery
//
// Each role is resolved by probing candidate names in order; the first
// match wins:
//
//	allocate  malloc, _malloc, allocate, alloc
//	free      free, _free, deallocate, dealloc
//	compute   solve_sudoku, _solve_sudoku, computeInPlace, compute_in_place
//	memory    memory, wasmMemory
//
// Function roles are checked against WIT contracts flattened to core types:
//
//	allocate: func(size: u32) -> u32;
//	free: func(addr: u32);
//	compute: func(addr: u32, len: u32);
//
// Every missing or mismatched role is reported at once in an
// errors.MissingExportsError wrapped in a load error. A module that exports
// "_initialize" has it called after instantiation.
//
// # Memory Capabilities
//
// An Instance exposes bulk writes through api.Memory.Write and views through
// api.Memory.Read, which aliases linear memory. Views go stale after
// memory.grow, so they are fetched again for every access. Views restricts
// the capabilities an instance reports.
package engine
