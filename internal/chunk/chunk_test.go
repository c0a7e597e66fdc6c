package chunk

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestChunked(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 0},
		{16, 0},
		{31, 0},
		{32, 1},
		{33, 1},
		{63, 1},
		{64, 2},
		{-1, -1},
		{-31, -1},
		{-32, -1},
		{-33, -2},
		{-64, -2},
		{-65, -3},
	}
	for _, tt := range tests {
		assert.Equal(t, Chunked(tt.in), tt.want)
	}
}

func TestAt(t *testing.T) {
	p, q := At(32, -1)
	assert.Equal(t, p, 1)
	assert.Equal(t, q, -1)
}

func TestGhostOffsetsInterior(t *testing.T) {
	// Not adjacent to any seam: no ghosts.
	assert.Equal(t, len(GhostOffsets(16, 16)), 0)
	assert.Equal(t, len(GhostOffsets(1, 30)), 0)
}

func TestGhostOffsetsLowSeamX(t *testing.T) {
	// x = 32 is the first column of chunk 1; only x-1 crosses.
	offs := GhostOffsets(32, 16)
	assert.DeepEqual(t, offs, []Offset{{DX: -1, DZ: 0}})
}

func TestGhostOffsetsHighSeamZ(t *testing.T) {
	// z = 31 is the last column of chunk 0; only z+1 crosses.
	offs := GhostOffsets(16, 31)
	assert.DeepEqual(t, offs, []Offset{{DX: 0, DZ: 1}})
}

func TestGhostOffsetsCorner(t *testing.T) {
	// Both x-1 and z-1 cross: two cardinal ghosts plus the diagonal.
	offs := GhostOffsets(32, 32)
	assert.DeepEqual(t, offs, []Offset{
		{DX: -1, DZ: -1},
		{DX: -1, DZ: 0},
		{DX: 0, DZ: -1},
	})
}

func TestGhostOffsetsNoDiagonalOffSeam(t *testing.T) {
	// Seam along x only: the diagonals require a seam on both axes.
	offs := GhostOffsets(0, 16)
	assert.DeepEqual(t, offs, []Offset{{DX: -1, DZ: 0}})
}

func TestGhostOffsetsNegativeCoords(t *testing.T) {
	// x = -33 is the last column of chunk -2 moving down; x+1 is in -1.
	offs := GhostOffsets(-33, 5)
	assert.DeepEqual(t, offs, []Offset{{DX: 1, DZ: 0}})
}
