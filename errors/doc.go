// Package errors provides structured error types for the solver bridge.
//
// Errors are categorized by Phase (which step of a computation failed) and
// Kind (the failure taxonomy). The taxonomy surfaced to callers is:
//
//	load           module bootstrap or instantiation failed
//	allocation     module allocator returned a null address
//	memory_access  no usable memory strategy, or an access out of bounds
//	invocation     the compute call faulted
//	invalid_input  the board failed validation before any module call
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWrite, errors.KindMemoryAccess).
//		Strategy("unsigned-view").
//		Detail("view unavailable").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AllocationFailed("malloc", 81, nil)
//	err := errors.OutOfBounds(errors.PhaseRead, "signed-view", addr, 81, size)
//
// All errors implement the standard error interface and support errors.Is/As.
// KindOf classifies any error into the taxonomy.
package errors
