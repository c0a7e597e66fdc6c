// Package chunk holds the world partitioning math: mapping block
// coordinates to chunk columns and deciding which neighboring chunks
// need a ghost replica of a seam block.
package chunk

const (
	// Size is the edge length of a chunk along x and z, in blocks.
	Size = 32

	// MaxKind is the largest valid block kind a client may place.
	MaxKind = 15

	// MinY and MaxY bound the editable world height.
	MinY = 1
	MaxY = 255
)

// Chunked maps a world coordinate to its chunk coordinate using
// mathematical floor division: Chunked(-1) == -1, Chunked(-32) == -1,
// Chunked(-33) == -2.
func Chunked(n int) int {
	if n >= 0 {
		return n / Size
	}
	return -((Size - 1 - n) / Size)
}

// At returns the chunk column containing the block at (x, z).
func At(x, z int) (p, q int) {
	return Chunked(x), Chunked(z)
}

// Offset is a neighbor chunk offset relative to a block's own chunk.
type Offset struct {
	DX, DZ int
}

// GhostOffsets returns the neighbor offsets whose chunks need a ghost
// replica of the block at (x, z): the offsets among the eight
// neighbors where the block sits on the chunk seam along every
// nonzero axis of the offset.
func GhostOffsets(x, z int) []Offset {
	p, q := At(x, z)
	var offs []Offset
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			if dx != 0 && Chunked(x+dx) == p {
				continue
			}
			if dz != 0 && Chunked(z+dz) == q {
				continue
			}
			offs = append(offs, Offset{DX: dx, DZ: dz})
		}
	}
	return offs
}
