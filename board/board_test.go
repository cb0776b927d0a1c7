package board

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	werrors "github.com/wippyai/wasm-sudoku/errors"
)

const puzzle = "53..7....6..195....98....6.8...6...34..8.3..17...2...6.6....28....419..5....8..79"

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(81))
	alphabet := []Cell{Empty, '1', '2', '3', '4', '5', '6', '7', '8', '9'}

	boards := []Board{New()}
	full := New()
	for i := range full {
		full[i] = Digit(i%9 + 1)
	}
	boards = append(boards, full)
	for n := 0; n < 200; n++ {
		b := make(Board, Size)
		for i := range b {
			b[i] = alphabet[rng.Intn(len(alphabet))]
		}
		boards = append(boards, b)
	}

	for _, b := range boards {
		buf, err := Encode(b)
		if err != nil {
			t.Fatalf("Encode(%s): %v", b, err)
		}
		got, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !got.Equal(b) {
			t.Fatalf("round trip = %s, want %s", got, b)
		}
	}
}

func TestEncode_Bytes(t *testing.T) {
	b := New()
	b[0] = '5'
	b[80] = '9'

	buf, err := Encode(b)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != Size {
		t.Fatalf("len = %d, want %d", len(buf), Size)
	}
	if buf[0] != '5' || buf[80] != '9' || buf[1] != '.' {
		t.Errorf("buf = %q", buf)
	}
}

func TestEncode_InvalidInput(t *testing.T) {
	short := New()[:80]
	long := append(New(), Empty)
	bad := New()
	bad[40] = 'x'
	zero := New()
	zero[3] = '0'
	unknown := New()
	unknown[7] = Unknown

	tests := []struct {
		name   string
		board  Board
		detail string
	}{
		{"80 cells", short, "80 cells"},
		{"82 cells", long, "82 cells"},
		{"nil", nil, "0 cells"},
		{"letter", bad, "cell 40"},
		{"zero byte digit", zero, "cell 3"},
		{"unknown marker", unknown, "cell 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.board)
			if err == nil {
				t.Fatal("expected error")
			}
			if werrors.KindOf(err) != werrors.KindInvalidInput {
				t.Errorf("kind = %q, want invalid_input", werrors.KindOf(err))
			}
			var e *werrors.Error
			if !errors.As(err, &e) || e.Phase != werrors.PhaseEncode {
				t.Errorf("err = %v, want encode phase", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("err = %q, want it to mention %q", err, tt.detail)
			}
		})
	}
}

func TestDecode_UnknownBytes(t *testing.T) {
	buf := bytes.Repeat([]byte{'.'}, Size)
	buf[0] = 0
	buf[1] = 0xFF
	buf[2] = '0'
	buf[3] = '7'

	b, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, want := range []Cell{Unknown, Unknown, Unknown, '7', Empty} {
		if b[i] != want {
			t.Errorf("cell %d = %q, want %q", i, b[i], want)
		}
	}

	if _, err := Encode(b); err == nil {
		t.Error("Encode should reject a board with unknown cells")
	}
}

func TestDecode_WrongLength(t *testing.T) {
	_, err := Decode(make([]byte, 80))
	if werrors.KindOf(err) != werrors.KindInvalidInput {
		t.Fatalf("err = %v, want invalid_input", err)
	}
}

func TestParse(t *testing.T) {
	grid := `
5 3 . | . 7 . | . . .
6 . . | 1 9 5 | . . .
. 9 8 | . . . | . 6 .
------+-------+------
8 . . | . 6 . | . . 3
4 . . | 8 . 3 | . . 1
7 . . | . 2 . | . . 6
------+-------+------
. 6 . | . . . | 2 8 .
. . . | 4 1 9 | . . 5
. . . | . 8 . | . 7 9
`
	b, err := Parse(grid)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.String() != puzzle {
		t.Errorf("Parse = %s, want %s", b, puzzle)
	}

	again, err := Parse(b.Format())
	if err != nil {
		t.Fatalf("Parse(Format): %v", err)
	}
	if !again.Equal(b) {
		t.Error("Format output does not parse back to the same board")
	}

	zeros, err := Parse(strings.ReplaceAll(puzzle, ".", "0"))
	if err != nil {
		t.Fatalf("Parse zeros: %v", err)
	}
	if !zeros.Equal(b) {
		t.Error("'0' should parse as empty")
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse(puzzle[:80]); werrors.KindOf(err) != werrors.KindInvalidInput {
		t.Errorf("short input: err = %v", err)
	}
	_, err := Parse("x" + puzzle[1:])
	if err == nil || !strings.Contains(err.Error(), "unexpected character") {
		t.Fatalf("bad character: err = %v", err)
	}
	var e *werrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("err = %T, want *errors.Error", err)
	}
	if e.Value != "x" {
		t.Errorf("Value = %#v, want the offending character", e.Value)
	}
}

func TestBoard_Helpers(t *testing.T) {
	b, err := Parse(puzzle)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Givens(); got != 30 {
		t.Errorf("Givens = %d, want 30", got)
	}
	if b.Complete() {
		t.Error("puzzle should not be complete")
	}

	c := b.Clone()
	c[2] = '4'
	if b[2] != Empty {
		t.Error("Clone shares storage with the original")
	}
	if b.Equal(c) {
		t.Error("Equal should detect the changed cell")
	}

	full := New()
	for i := range full {
		full[i] = '1'
	}
	if !full.Complete() {
		t.Error("all-digit board should be complete")
	}
	if New()[:80].Complete() {
		t.Error("short board cannot be complete")
	}

	if lines := strings.Count(New().Format(), "\n"); lines != 11 {
		t.Errorf("Format lines = %d, want 11", lines)
	}
}
