package board

import (
	"fmt"

	"github.com/gosuda/pixelboard/internal/domain"
)

// PackedLen is the snapshot size in bytes for a board of the given dimension.
func PackedLen(dimension int) int {
	return (dimension*dimension + 1) / 2
}

// DecodeSnapshot replaces every cell from a nibble-packed payload: the high
// nibble of each byte is the first cell, the low nibble the second. When the
// cell count is odd the final low nibble is padding.
//
// The payload is validated in full before anything is written, so a failed
// decode leaves the previous state intact. It returns the number of cells
// whose code changed.
func (b *Board) DecodeSnapshot(data []byte) (int, error) {
	n := len(b.cells)
	if want := PackedLen(b.dimension); len(data) != want {
		return 0, fmt.Errorf("board.Board.DecodeSnapshot: %w: got %d bytes, want %d",
			domain.ErrSnapshotLengthMismatch, len(data), want)
	}

	next := make([]domain.Code, n)
	for i, v := range data {
		hi, lo := domain.Code(v>>4), domain.Code(v&0x0F)
		idx := 2 * i
		if !b.palette.Valid(hi) {
			return 0, fmt.Errorf("board.Board.DecodeSnapshot: %w: %d at cell %d", domain.ErrUnknownColorCode, hi, idx)
		}
		next[idx] = hi
		if idx+1 == n {
			break
		}
		if !b.palette.Valid(lo) {
			return 0, fmt.Errorf("board.Board.DecodeSnapshot: %w: %d at cell %d", domain.ErrUnknownColorCode, lo, idx+1)
		}
		next[idx+1] = lo
	}

	changed := 0
	for i := range next {
		if next[i] != b.cells[i] {
			changed++
		}
	}
	b.cells = next
	return changed, nil
}

// Encode packs the cells two per byte in the snapshot format.
func (b *Board) Encode() []byte {
	return Pack(b.cells)
}

// Pack encodes codes two per byte, high nibble first. An odd trailing cell
// gets a zero low nibble.
func Pack(cells []domain.Code) []byte {
	out := make([]byte, (len(cells)+1)/2)
	for i, c := range cells {
		if i%2 == 0 {
			out[i/2] = byte(c&0x0F) << 4
		} else {
			out[i/2] |= byte(c & 0x0F)
		}
	}
	return out
}
