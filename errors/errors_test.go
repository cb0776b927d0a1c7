package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseWrite,
				Kind:     KindMemoryAccess,
				Export:   "malloc",
				Strategy: "unsigned-view",
				Detail:   "view unavailable",
			},
			contains: []string{"[write]", "memory_access", "export malloc", "strategy unsigned-view", "view unavailable"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRead,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[read]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInvoke,
				Kind:   KindInvocation,
				Detail: "compute call faulted",
				Cause:  errors.New("wasm error: unreachable"),
			},
			contains: []string{"[invoke]", "invocation", "compute call faulted", "caused by", "unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindLoad,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseAllocate,
		Kind:   KindAllocation,
		Detail: "null",
	}

	if !err.Is(&Error{Phase: PhaseAllocate, Kind: KindAllocation}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseWrite, Kind: KindAllocation}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseAllocate, Kind: KindInvocation}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("solve: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseAllocate, Kind: KindAllocation}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseWrite, KindMemoryAccess).
		Export("malloc").
		Strategy("bulk-write").
		Value(81).
		Cause(cause).
		Detail("wrote %d of %d bytes", 10, 81).
		Build()

	if err.Phase != PhaseWrite {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseWrite)
	}
	if err.Kind != KindMemoryAccess {
		t.Errorf("Kind = %v, want %v", err.Kind, KindMemoryAccess)
	}
	if err.Export != "malloc" || err.Strategy != "bulk-write" {
		t.Errorf("Export=%q Strategy=%q", err.Export, err.Strategy)
	}
	if err.Value != 81 {
		t.Errorf("Value = %v, want 81", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "wrote 10 of 81 bytes" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), ""},
		{"allocation", AllocationFailed("malloc", 81, nil), KindAllocation},
		{"out of bounds folds into memory access", OutOfBounds(PhaseRead, "unsigned-view", 65530, 81, 65536), KindMemoryAccess},
		{"wrapped invocation", fmt.Errorf("x: %w", Invocation("solve_sudoku", errors.New("trap"))), KindInvocation},
		{"load", Load("fetch artifact", nil), KindLoad},
		{"invalid input", InvalidInput(PhaseEncode, "bad"), KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("AllocationFailed null", func(t *testing.T) {
		err := AllocationFailed("malloc", 81, nil)
		if err.Phase != PhaseAllocate || err.Kind != KindAllocation {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "null address") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("AllocationFailed cause", func(t *testing.T) {
		err := AllocationFailed("malloc", 81, errors.New("trap"))
		if !strings.Contains(err.Detail, "failed to allocate 81 bytes") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseWrite, "bulk-write", 65500, 81, 65536)
		if !strings.Contains(err.Detail, "[65500, 65581)") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseLoad, "factory", "createModule")
		if !strings.Contains(err.Error(), `factory "createModule" not found`) {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		err := Cancelled(PhaseLoad, errors.New("context canceled"))
		if err.Kind != KindCancelled {
			t.Errorf("Kind = %v", err.Kind)
		}
	})
}

func TestMissingExportsError(t *testing.T) {
	err := &MissingExportsError{Exports: []MissingExport{
		{Role: "allocate", Candidates: []string{"malloc", "_malloc"}},
		{Role: "compute", Mismatch: "solve_sudoku has params [i32], want [i32 i32]"},
	}}

	msg := err.Error()
	for _, s := range []string{"missing 2 export(s)", "allocate (tried malloc, _malloc)", "compute: solve_sudoku has params"} {
		if !strings.Contains(msg, s) {
			t.Errorf("message %q does not contain %q", msg, s)
		}
	}

	wrapped := Load("discover exports", err)
	if !errors.Is(wrapped, &MissingExportsError{}) {
		t.Error("errors.Is should find MissingExportsError through Load")
	}

	empty := &MissingExportsError{}
	if !strings.Contains(empty.Error(), "no exports specified") {
		t.Errorf("empty message = %q", empty.Error())
	}
}
