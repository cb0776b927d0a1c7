package board

import (
	"strings"

	"github.com/wippyai/wasm-sudoku/errors"
)

// Size is the number of cells in a board and the length of its encoding.
const Size = 81

// Side is the number of cells per row, column and box side.
const Side = 9

// Cell is a single board cell. Its value is the ASCII byte the module sees.
type Cell byte

const (
	// Empty marks a cell without a digit.
	Empty Cell = '.'
	// Unknown marks a decoded byte outside the board alphabet.
	Unknown Cell = '?'
)

// Digit returns the cell for d in 1..9.
func Digit(d int) Cell {
	return Cell('0' + d)
}

// IsDigit reports whether c holds one of '1'..'9'.
func (c Cell) IsDigit() bool {
	return c >= '1' && c <= '9'
}

// Valid reports whether c can be encoded.
func (c Cell) Valid() bool {
	return c == Empty || c.IsDigit()
}

// Board is the editable representation: an ordered sequence of cells, row
// major. Only boards of exactly Size cells can be encoded.
type Board []Cell

// New returns an all-empty board.
func New() Board {
	b := make(Board, Size)
	for i := range b {
		b[i] = Empty
	}
	return b
}

// Parse reads a board from text. Whitespace and the grid separators
// '|', '-' and '+' are ignored; '0' and '.' both denote an empty cell.
func Parse(text string) (Board, error) {
	b := make(Board, 0, Size)
	for i, r := range text {
		switch {
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '|', r == '-', r == '+':
			continue
		case r == '.', r == '0':
			b = append(b, Empty)
		case r >= '1' && r <= '9':
			b = append(b, Cell(r))
		default:
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Value(string(r)).
				Detail("unexpected character %q at offset %d", r, i).
				Build()
		}
	}
	if len(b) != Size {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Value(len(b)).
			Detail("board has %d cells, want %d", len(b), Size).
			Build()
	}
	return b, nil
}

// Clone returns a copy of b.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	copy(out, b)
	return out
}

// Equal reports whether both boards hold the same cells.
func (b Board) Equal(other Board) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// Complete reports whether every cell holds a digit.
func (b Board) Complete() bool {
	if len(b) != Size {
		return false
	}
	for _, c := range b {
		if !c.IsDigit() {
			return false
		}
	}
	return true
}

// Givens counts the filled cells.
func (b Board) Givens() int {
	n := 0
	for _, c := range b {
		if c.IsDigit() {
			n++
		}
	}
	return n
}

// String returns the cells as a single line.
func (b Board) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteByte(byte(c))
	}
	return sb.String()
}

// Format renders the board as a 9x9 grid with box separators.
func (b Board) Format() string {
	if len(b) != Size {
		return b.String()
	}
	var sb strings.Builder
	for row := 0; row < Side; row++ {
		if row > 0 && row%3 == 0 {
			sb.WriteString("------+-------+------\n")
		}
		for col := 0; col < Side; col++ {
			if col > 0 && col%3 == 0 {
				sb.WriteString("| ")
			}
			sb.WriteByte(byte(b[row*Side+col]))
			if col < Side-1 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
