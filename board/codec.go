package board

import (
	"github.com/wippyai/wasm-sudoku/errors"
)

// Encode converts b into the 81-byte buffer the module consumes: the ASCII
// code of each digit, or '.' for an empty cell.
func Encode(b Board) ([]byte, error) {
	if len(b) != Size {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Value(len(b)).
			Detail("board has %d cells, want %d", len(b), Size).
			Build()
	}

	buf := make([]byte, Size)
	for i, c := range b {
		if !c.Valid() {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Value(i).
				Detail("cell %d holds %q, want '.' or '1'-'9'", i, byte(c)).
				Build()
		}
		buf[i] = byte(c)
	}
	return buf, nil
}

// Decode converts a module buffer back into a board. Bytes outside the board
// alphabet become Unknown rather than failing.
func Decode(buf []byte) (Board, error) {
	if len(buf) != Size {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Value(len(buf)).
			Detail("buffer has %d bytes, want %d", len(buf), Size).
			Build()
	}

	b := make(Board, Size)
	for i, v := range buf {
		c := Cell(v)
		if !c.Valid() {
			c = Unknown
		}
		b[i] = c
	}
	return b, nil
}
