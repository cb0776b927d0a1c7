package solver

import (
	"context"

	"github.com/wippyai/wasm-sudoku/board"
	"github.com/wippyai/wasm-sudoku/errors"
)

// Solver serializes orchestrations so only one computation uses the module
// at a time. It is safe for concurrent use.
type Solver struct {
	orch *Orchestrator
	turn chan struct{}
}

// NewSolver wraps o.
func NewSolver(o *Orchestrator) *Solver {
	return &Solver{orch: o, turn: make(chan struct{}, 1)}
}

// Solve runs b through the module. Concurrent calls wait their turn; a call
// whose ctx ends while waiting returns without touching the module.
func (s *Solver) Solve(ctx context.Context, b board.Board) (board.Board, error) {
	select {
	case s.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.Cancelled(errors.PhaseLoad, ctx.Err())
	}
	defer func() { <-s.turn }()

	if err := ctx.Err(); err != nil {
		return nil, errors.Cancelled(errors.PhaseLoad, err)
	}
	return s.orch.Run(ctx, b)
}
