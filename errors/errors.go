package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in a computation the error occurred
type Phase string

const (
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseLoad     Phase = "load"     // module fetch and instantiation
	PhaseEncode   Phase = "encode"   // board to bytes
	PhaseDecode   Phase = "decode"   // bytes to board
	PhaseAllocate Phase = "allocate" // module allocator
	PhaseWrite    Phase = "write"    // host to module memory
	PhaseInvoke   Phase = "invoke"   // compute entry point
	PhaseRead     Phase = "read"     // module memory to host
	PhaseRelease  Phase = "release"  // module free
)

// Kind categorizes the error
type Kind string

const (
	KindLoad         Kind = "load"
	KindAllocation   Kind = "allocation"
	KindMemoryAccess Kind = "memory_access"
	KindInvocation   Kind = "invocation"
	KindInvalidInput Kind = "invalid_input"
	KindOutOfBounds  Kind = "out_of_bounds"
	KindDoubleFree   Kind = "double_free"
	KindNotFound     Kind = "not_found"
	KindCancelled    Kind = "cancelled"
	KindInvalidState Kind = "invalid_state"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Export   string
	Strategy string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Export != "" || e.Strategy != "" {
		b.WriteString(" (")
		if e.Export != "" {
			b.WriteString("export ")
			b.WriteString(e.Export)
		}
		if e.Strategy != "" {
			if e.Export != "" {
				b.WriteString(", ")
			}
			b.WriteString("strategy ")
			b.WriteString(e.Strategy)
		}
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Export sets the module export involved
func (b *Builder) Export(name string) *Builder {
	b.err.Export = name
	return b
}

// Strategy sets the memory strategy involved
func (b *Builder) Strategy(name string) *Builder {
	b.err.Strategy = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// KindOf returns the taxonomy kind of err. Out-of-bounds accesses are
// reported as memory access failures. Errors that carry no *Error return "".
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	if e.Kind == KindOutOfBounds {
		return KindMemoryAccess
	}
	return e.Kind
}

// Convenience constructors for the failure taxonomy

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoad,
		Detail: detail,
		Cause:  cause,
	}
}

// Cancelled creates an error for a caller that stopped waiting
func Cancelled(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCancelled,
		Detail: "caller stopped waiting",
		Cause:  cause,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(export string, size uint32, cause error) *Error {
	detail := fmt.Sprintf("failed to allocate %d bytes", size)
	if cause == nil {
		detail = fmt.Sprintf("allocator returned null address for %d bytes", size)
	}
	return &Error{
		Phase:  PhaseAllocate,
		Kind:   KindAllocation,
		Export: export,
		Detail: detail,
		Value:  size,
		Cause:  cause,
	}
}

// MemoryAccess creates an error for a missing or failing memory strategy
func MemoryAccess(phase Phase, strategy, detail string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindMemoryAccess,
		Strategy: strategy,
		Detail:   detail,
		Cause:    cause,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, strategy string, addr, length, size uint32) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOutOfBounds,
		Strategy: strategy,
		Detail:   fmt.Sprintf("range [%d, %d) exceeds memory size %d", addr, uint64(addr)+uint64(length), size),
		Value:    addr,
	}
}

// Invocation creates a compute failure error
func Invocation(export string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindInvocation,
		Export: export,
		Detail: "compute call faulted",
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingExport describes a single export the module failed to provide
type MissingExport struct {
	Role       string   // e.g., "allocate"
	Candidates []string // names probed, in order
	Mismatch   string   // signature problem when a candidate exists
}

// MissingExportsError is returned when a module lacks part of the solver contract
type MissingExportsError struct {
	Exports []MissingExport
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[load] not_found: no exports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("module is missing %d export(s):", len(e.Exports)))

	for _, exp := range e.Exports {
		b.WriteString("\n  - ")
		b.WriteString(exp.Role)
		if exp.Mismatch != "" {
			b.WriteString(": ")
			b.WriteString(exp.Mismatch)
			continue
		}
		b.WriteString(" (tried ")
		b.WriteString(strings.Join(exp.Candidates, ", "))
		b.WriteByte(')')
	}

	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingExportsError) Is(target error) bool {
	_, ok := target.(*MissingExportsError)
	return ok
}
