// Package volsource reads the little-endian input file: a five-uint32
// prefix (dataDimensionality, T, Vx, Vy, Vz) followed by T contiguous
// blocks of Vx*Vy*Vz little-endian float32 voxels, x-fastest, then-y,
// then-z. It never keeps a stale handle across the header read and
// subsequent payload reads: every read reopens or re-seeks explicitly.
package volsource

import (
	"fmt"
	"os"

	"github.com/voxelsplace/tspforge/internal/brick"
	"github.com/voxelsplace/tspforge/internal/forgeerr"
	"github.com/voxelsplace/tspforge/internal/header"
)

// Source reads timestep payloads from an input file by path, reopening a
// fresh handle for every operation.
type Source struct {
	path string
}

// Open returns a Source bound to path, verifying the file exists and is
// readable.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", forgeerr.ErrInputUnreadable, err)
	}
	defer f.Close()
	return &Source{path: path}, nil
}

// ReadPrefix reads the five-uint32 header prefix from the start of the
// file.
func (s *Source) ReadPrefix() (header.InputPrefix, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return header.InputPrefix{}, fmt.Errorf("%w: %v", forgeerr.ErrInputUnreadable, err)
	}
	defer f.Close()
	return header.ReadInputPrefix(f)
}

// ReadTimestep reads the Vx*Vy*Vz voxels of timestep t into a flat buffer,
// seeking to headerOffset + t*Vx*Vy*Vz*sizeof(Real).
func (s *Source) ReadTimestep(h header.Header, t uint32, vx, vy, vz uint32) ([]brick.Real, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", forgeerr.ErrInputUnreadable, err)
	}
	defer f.Close()

	voxelCount := int64(vx) * int64(vy) * int64(vz)
	timestepSize := voxelCount * int64(brick.RealSize)
	offset := int64(header.InputPrefixSize) + int64(t)*timestepSize

	if _, err := f.Seek(offset, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", forgeerr.ErrInputUnreadable, err)
	}

	b, err := brick.ReadFrom(f, int(voxelCount), 1, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", forgeerr.ErrInputUnreadable, err)
	}
	return b.Data, nil
}
