// Package gentest synthesizes a power-of-two input volume for exercising
// the forge pipeline end to end: a five-uint32 prefix followed by T
// blocks of Vx*Vy*Vz float32 voxels.
package gentest

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"os"
)

// Config describes the synthetic volume to generate. Dim must be a power
// of two to satisfy header.Build's geometry invariant downstream.
type Config struct {
	OutPath   string
	Dim       uint32
	Timesteps uint32
	Seed      int64
}

// Generate writes a synthetic input file at cfg.OutPath: a sinusoidal
// scalar field that drifts smoothly over both space and time, so that
// filtered/averaged levels of the resulting octree and BST remain
// visually coherent rather than pure noise.
func Generate(cfg Config) error {
	if cfg.Dim == 0 || (cfg.Dim&(cfg.Dim-1)) != 0 {
		return fmt.Errorf("gentest: dim %d is not a power of two", cfg.Dim)
	}
	if cfg.Timesteps == 0 || (cfg.Timesteps&(cfg.Timesteps-1)) != 0 {
		return fmt.Errorf("gentest: timesteps %d is not a power of two", cfg.Timesteps)
	}

	f, err := os.Create(cfg.OutPath)
	if err != nil {
		return fmt.Errorf("gentest: create %s: %w", cfg.OutPath, err)
	}
	defer f.Close()

	r := rand.New(rand.NewSource(cfg.Seed))
	phaseX := r.Float64() * math.Pi * 2
	phaseY := r.Float64() * math.Pi * 2
	phaseZ := r.Float64() * math.Pi * 2

	prefix := [5]uint32{1, cfg.Timesteps, cfg.Dim, cfg.Dim, cfg.Dim}
	for _, v := range prefix {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("gentest: write prefix: %w", err)
		}
	}

	dim := int(cfg.Dim)
	buf := make([]byte, 4*dim*dim*dim)
	for t := uint32(0); t < cfg.Timesteps; t++ {
		timePhase := float64(t) / float64(cfg.Timesteps) * math.Pi * 2
		i := 0
		for z := 0; z < dim; z++ {
			for y := 0; y < dim; y++ {
				for x := 0; x < dim; x++ {
					v := sampleField(x, y, z, dim, timePhase, phaseX, phaseY, phaseZ)
					binary.LittleEndian.PutUint32(buf[i:i+4], math.Float32bits(float32(v)))
					i += 4
				}
			}
		}
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("gentest: write timestep %d: %w", t, err)
		}
	}
	return nil
}

// sampleField returns a smoothly varying scalar in [0,1] so downstream
// Filter/Average passes produce a visibly blurred, not flattened, pyramid.
func sampleField(x, y, z, dim int, timePhase, phaseX, phaseY, phaseZ float64) float64 {
	nx := float64(x) / float64(dim) * math.Pi * 2
	ny := float64(y) / float64(dim) * math.Pi * 2
	nz := float64(z) / float64(dim) * math.Pi * 2
	s := math.Sin(nx+phaseX+timePhase) + math.Sin(ny+phaseY) + math.Sin(nz+phaseZ)
	return (s/3 + 1) / 2
}
