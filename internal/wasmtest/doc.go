// Package wasmtest provides test doubles for solver modules: Fake, an
// in-process Module with failure injection, and Solver, which assembles tiny
// core wasm binaries exposing the malloc/free/solve_sudoku contract.
//
// Stub modules use a bump allocator starting at HeapBase and export mutable
// globals counting allocs, frees and computes so tests can assert release
// discipline from inside the module.
package wasmtest
