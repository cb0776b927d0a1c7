// Package board holds the 81-cell Sudoku board and its byte codec.
//
// The module consumes exactly 81 bytes: the ASCII code of '.' for an empty
// cell or of '1'..'9' for a filled one. Encode rejects anything else before
// the module is touched; Decode tolerates unexpected module output by mapping
// unrecognized bytes to Unknown.
//
//	b, err := board.Parse("53..7....6..195....98....6.8...6...34..8.3..17...2...6.6....28....419..5....8..79")
//	buf, err := board.Encode(b)
//	out, err := board.Decode(buf)
//
// For every valid board, Decode(Encode(b)) equals b.
package board
