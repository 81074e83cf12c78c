// Package header populates and validates the in-memory dataset geometry
// descriptor, and codes the 44-byte fixed TSP header to and from disk.
package header

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/voxelsplace/tspforge/internal/brick"
	"github.com/voxelsplace/tspforge/internal/forgeerr"
)

// InputPrefixSize is the byte size of the five-uint32 input file prefix,
// the fixed offset at which timestep payloads begin.
const InputPrefixSize = 5 * 4

// Size is the byte size of the fixed TSP header (11 uint32 fields).
const Size = 11 * 4

// InputPrefix is the five-field little-endian prefix of the input file.
type InputPrefix struct {
	DataDimensionality uint32
	T                  uint32
	Vx, Vy, Vz         uint32
}

// ReadInputPrefix reads the five-uint32 input prefix in order
// dataDimensionality, T, Vx, Vy, Vz.
func ReadInputPrefix(r io.Reader) (InputPrefix, error) {
	var p InputPrefix
	fields := []*uint32{&p.DataDimensionality, &p.T, &p.Vx, &p.Vy, &p.Vz}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return InputPrefix{}, fmt.Errorf("%w: %v", forgeerr.ErrInputUnreadable, err)
		}
	}
	return p, nil
}

// Header is the immutable-after-population descriptor of dataset geometry
// and brick layout, recognized fields: structure, dataDimensionality, Bx,
// By, Bz, Nx, Ny, Nz, T, paddingWidth, dataSize.
type Header struct {
	Structure          uint32
	DataDimensionality uint32
	Bx, By, Bz         uint32
	Nx, Ny, Nz         uint32
	T                  uint32
	PaddingWidth       uint32
	DataSize           uint32
}

// Build populates a Header from an input prefix and the requested brick
// dimensions, deriving Nx/Ny/Nz, and validates the result. It fails loudly
// (a wrapped forgeerr sentinel) when any invariant is broken.
func Build(prefix InputPrefix, structure, bx, by, bz, paddingWidth uint32) (Header, error) {
	h := Header{
		Structure:          structure,
		DataDimensionality: prefix.DataDimensionality,
		Bx:                 bx,
		By:                 by,
		Bz:                 bz,
		T:                  prefix.T,
		PaddingWidth:       paddingWidth,
		DataSize:           brick.RealSize,
	}
	if bx == 0 || by == 0 || bz == 0 {
		return Header{}, fmt.Errorf("%w: brick dimensions must be nonzero", forgeerr.ErrGeometryMismatch)
	}
	if prefix.Vx%bx != 0 || prefix.Vy%by != 0 || prefix.Vz%bz != 0 {
		return Header{}, fmt.Errorf("%w: volume (%d,%d,%d) not a multiple of brick (%d,%d,%d)",
			forgeerr.ErrGeometryMismatch, prefix.Vx, prefix.Vy, prefix.Vz, bx, by, bz)
	}
	h.Nx = prefix.Vx / bx
	h.Ny = prefix.Vy / by
	h.Nz = prefix.Vz / bz

	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Validate checks that the brick grid is a cube and that both the brick
// count per axis and the timestep count are powers of two.
func (h Header) Validate() error {
	if h.Nx != h.Ny || h.Ny != h.Nz {
		return fmt.Errorf("%w: Nx=%d, Ny=%d, Nz=%d must be equal", forgeerr.ErrGeometryMismatch, h.Nx, h.Ny, h.Nz)
	}
	if !isPowerOfTwo(h.Nx) {
		return fmt.Errorf("%w: brick-count %d is not a power of two", forgeerr.ErrGeometryMismatch, h.Nx)
	}
	if !isPowerOfTwo(h.T) {
		return fmt.Errorf("%w: T=%d is not a power of two", forgeerr.ErrTimestepCount, h.T)
	}
	return nil
}

func isPowerOfTwo(v uint32) bool {
	return v > 0 && v&(v-1) == 0
}

// Level returns L such that Nx = Ny = Nz = 2^L (the octree has L+1 levels).
func (h Header) Level() int {
	l := 0
	for n := h.Nx; n > 1; n >>= 1 {
		l++
	}
	return l
}

// NumOctreeBricks returns (8^(L+1) - 1) / 7, the full octree's brick count.
func (h Header) NumOctreeBricks() int {
	l := h.Level()
	total := 0
	pow := 1
	for i := 0; i <= l; i++ {
		total += pow
		pow *= 8
	}
	return total
}

// NumBSTNodes returns 2T - 1, the time-BST node count.
func (h Header) NumBSTNodes() int {
	return int(2*h.T - 1)
}

// BrickSizeVoxels returns Bx*By*Bz.
func (h Header) BrickSizeVoxels() int {
	return int(h.Bx * h.By * h.Bz)
}

// BrickSizeBytes returns BrickSizeVoxels * DataSize.
func (h Header) BrickSizeBytes() int {
	return h.BrickSizeVoxels() * int(h.DataSize)
}

// ScratchSize returns the exact expected scratch-file byte size:
// T * N_octree * size_bytes.
func (h Header) ScratchSize() int64 {
	return int64(h.T) * int64(h.NumOctreeBricks()) * int64(h.BrickSizeBytes())
}

// TSPSize returns the exact expected TSP-file byte size:
// H + N_octree * (2T-1) * size_bytes.
func (h Header) TSPSize() int64 {
	return int64(Size) + int64(h.NumOctreeBricks())*int64(h.NumBSTNodes())*int64(h.BrickSizeBytes())
}

// WriteTSP writes the 44-byte fixed header in field order: structure,
// dataDimensionality, Bx, By, Bz, Nx, Ny, Nz, T, paddingWidth, dataSize.
func (h Header) WriteTSP(w io.Writer) error {
	fields := []uint32{
		h.Structure, h.DataDimensionality,
		h.Bx, h.By, h.Bz,
		h.Nx, h.Ny, h.Nz,
		h.T, h.PaddingWidth, h.DataSize,
	}
	buf := make([]byte, Size)
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], f)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrTSPIO, err)
	}
	return nil
}

// ReadTSP parses the 44-byte fixed header back into a Header and validates
// it.
func ReadTSP(r io.Reader) (Header, error) {
	buf := make([]byte, Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, fmt.Errorf("%w: %v", forgeerr.ErrInputUnreadable, err)
	}
	fields := make([]uint32, 11)
	for i := range fields {
		fields[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	h := Header{
		Structure:          fields[0],
		DataDimensionality: fields[1],
		Bx:                 fields[2],
		By:                 fields[3],
		Bz:                 fields[4],
		Nx:                 fields[5],
		Ny:                 fields[6],
		Nz:                 fields[7],
		T:                  fields[8],
		PaddingWidth:       fields[9],
		DataSize:           fields[10],
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}
