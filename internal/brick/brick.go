// Package brick implements the fixed-dimension dense voxel block that is
// the atomic unit moved through the octree and TSP builders.
package brick

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Real is the single scalar voxel type used throughout the pipeline.
type Real = float32

// RealSize is sizeof(Real) in bytes, recorded in the TSP header.
const RealSize = 4

// Brick is a dense cubic (or rectangular) block of Real values, stored
// x-fastest, then-y, then-z.
type Brick struct {
	Bx, By, Bz int
	Data       []Real
}

// New allocates a brick of the given dimensions filled with a constant value.
func New(bx, by, bz int, fill Real) *Brick {
	data := make([]Real, bx*by*bz)
	if fill != 0 {
		for i := range data {
			data[i] = fill
		}
	}
	return &Brick{Bx: bx, By: by, Bz: bz, Data: data}
}

// SizeVoxels returns Bx*By*Bz.
func (b *Brick) SizeVoxels() int { return b.Bx * b.By * b.Bz }

// SizeBytes returns SizeVoxels * RealSize.
func (b *Brick) SizeBytes() int { return b.SizeVoxels() * RealSize }

func (b *Brick) index(x, y, z int) (int, error) {
	if x < 0 || x >= b.Bx || y < 0 || y >= b.By || z < 0 || z >= b.Bz {
		return 0, fmt.Errorf("brick: coordinate (%d,%d,%d) out of range (%d,%d,%d)", x, y, z, b.Bx, b.By, b.Bz)
	}
	return x + y*b.Bx + z*b.Bx*b.By, nil
}

// Set writes a single voxel at local coordinates.
func (b *Brick) Set(x, y, z int, v Real) error {
	i, err := b.index(x, y, z)
	if err != nil {
		return err
	}
	b.Data[i] = v
	return nil
}

// Get reads a single voxel at local coordinates.
func (b *Brick) Get(x, y, z int) (Real, error) {
	i, err := b.index(x, y, z)
	if err != nil {
		return 0, err
	}
	return b.Data[i], nil
}

// sameDims reports whether a and b share dimensions.
func sameDims(a, b *Brick) bool {
	return a.Bx == b.Bx && a.By == b.By && a.Bz == b.Bz
}

// Filter produces a brick of the same dimensions as b whose voxel at local
// (x,y,z) equals the average of the 2x2x2 block at (2x,2y,2z) of b, padded
// into the lower octant of the result. The remaining seven octants are left
// zeroed; callers only ever consume a filtered brick through Combine, which
// reads exclusively from the lower octant.
func Filter(b *Brick) (*Brick, error) {
	if b.Bx%2 != 0 || b.By%2 != 0 || b.Bz%2 != 0 {
		return nil, fmt.Errorf("brick: Filter requires even dimensions, got (%d,%d,%d)", b.Bx, b.By, b.Bz)
	}
	out := New(b.Bx, b.By, b.Bz, 0)
	hx, hy, hz := b.Bx/2, b.By/2, b.Bz/2
	for z := 0; z < hz; z++ {
		for y := 0; y < hy; y++ {
			for x := 0; x < hx; x++ {
				var sum Real
				for dz := 0; dz < 2; dz++ {
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							v, err := b.Get(2*x+dx, 2*y+dy, 2*z+dz)
							if err != nil {
								return nil, err
							}
							sum += v
						}
					}
				}
				if err := out.Set(x, y, z, sum/8); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

// Combine assembles eight filtered children (indexed by Z-order, child i
// occupying the sub-octant whose 3-bit signature equals i under bit order
// (z,y,x)) into a fresh brick of the same dimensions but 2x the linear
// extent. Each child's lower-octant block is copied into the corresponding
// octant of the result.
func Combine(children [8]*Brick) (*Brick, error) {
	dims := children[0]
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("brick: Combine child %d is nil", i)
		}
		if !sameDims(dims, c) {
			return nil, fmt.Errorf("brick: Combine dimension mismatch at child %d", i)
		}
	}
	out := New(dims.Bx, dims.By, dims.Bz, 0)
	hx, hy, hz := dims.Bx/2, dims.By/2, dims.Bz/2
	for octant := 0; octant < 8; octant++ {
		ox := octant & 1
		oy := (octant >> 1) & 1
		oz := (octant >> 2) & 1
		child := children[octant]
		for z := 0; z < hz; z++ {
			for y := 0; y < hy; y++ {
				for x := 0; x < hx; x++ {
					v, err := child.Get(x, y, z)
					if err != nil {
						return nil, err
					}
					if err := out.Set(ox*hx+x, oy*hy+y, oz*hz+z, v); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return out, nil
}

// Average computes the elementwise mean of two same-dimension bricks.
func Average(a, b *Brick) (*Brick, error) {
	if !sameDims(a, b) {
		return nil, fmt.Errorf("brick: Average dimension mismatch (%d,%d,%d) vs (%d,%d,%d)", a.Bx, a.By, a.Bz, b.Bx, b.By, b.Bz)
	}
	out := New(a.Bx, a.By, a.Bz, 0)
	for i := range out.Data {
		out.Data[i] = (a.Data[i] + b.Data[i]) / 2
	}
	return out, nil
}

// WriteTo writes the brick's voxel data as contiguous little-endian bytes,
// with no per-brick header.
func (b *Brick) WriteTo(w io.Writer) error {
	buf := make([]byte, b.SizeBytes())
	for i, v := range b.Data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	_, err := w.Write(buf)
	return err
}

// ReadFrom reads SizeVoxels Real values into a freshly allocated brick of
// the given dimensions.
func ReadFrom(r io.Reader, bx, by, bz int) (*Brick, error) {
	out := New(bx, by, bz, 0)
	buf := make([]byte, out.SizeBytes())
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("brick: read: %w", err)
	}
	for i := range out.Data {
		out.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}
