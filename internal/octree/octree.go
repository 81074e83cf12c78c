// Package octree builds, per timestep, a full octree of bricks in Z-order
// with bottom-up filtered+combined interiors, and appends it to the
// scratch file.
package octree

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/voxelsplace/tspforge/internal/brick"
	"github.com/voxelsplace/tspforge/internal/forgeerr"
	"github.com/voxelsplace/tspforge/internal/header"
	"github.com/voxelsplace/tspforge/internal/morton"
	"github.com/voxelsplace/tspforge/internal/volsource"
)

// Builder assembles one octree per timestep and writes them to a
// scratch-file writer in timestep order.
type Builder struct {
	Header header.Header
	Source *volsource.Source
	// NumWorkers bounds how many timesteps are built concurrently. Values
	// <= 1 build sequentially. Each timestep's octree is still written to
	// its pre-reserved file region via WriteAt, so concurrency never
	// changes the emitted byte order.
	NumWorkers int
	Logger     *logAdapter
}

// logAdapter is the minimal logging surface octree needs: a Printf-shaped
// function (internal/forge passes its own logf through NewLogAdapter).
type logAdapter struct {
	Printf func(format string, v ...any)
}

// NewLogAdapter wraps a Printf-shaped function for injection from the
// pipeline driver.
func NewLogAdapter(printf func(format string, v ...any)) *logAdapter {
	return &logAdapter{Printf: printf}
}

func (b *Builder) logf(format string, v ...any) {
	if b.Logger != nil && b.Logger.Printf != nil {
		b.Logger.Printf(format, v...)
	}
}

// Build constructs the octree for every timestep and writes it to out, a
// handle opened for writing that supports WriteAt (e.g. *os.File).
func (b *Builder) Build(out io.WriterAt) error {
	h := b.Header
	octreeBytes := int64(h.NumOctreeBricks()) * int64(h.BrickSizeBytes())

	workers := b.NumWorkers
	if workers < 1 {
		workers = 1
	}

	type job struct{ t uint32 }
	jobs := make(chan job)
	errs := make(chan error, int(h.T))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for j := range jobs {
			b.logf("building octree for timestep %d", j.t)
			buf, err := b.buildTimestepOctree(j.t)
			if err != nil {
				errs <- fmt.Errorf("timestep %d: %w", j.t, err)
				continue
			}
			offset := int64(j.t) * octreeBytes
			if _, err := out.WriteAt(buf, offset); err != nil {
				errs <- fmt.Errorf("%w: timestep %d: %v", forgeerr.ErrScratchIO, j.t, err)
				continue
			}
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}
	for t := uint32(0); t < h.T; t++ {
		jobs <- job{t: t}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// buildTimestepOctree carves base bricks, permutes them into Z-order,
// bottom-up fills interiors, and serializes the resulting octree buffer to
// bytes in children-before-parents order.
func (b *Builder) buildTimestepOctree(t uint32) ([]byte, error) {
	h := b.Header
	vx, vy, vz := h.Bx*h.Nx, h.By*h.Ny, h.Bz*h.Nz

	voxels, err := b.Source.ReadTimestep(h, t, vx, vy, vz)
	if err != nil {
		return nil, err
	}

	nx, ny, nz := int(h.Nx), int(h.Ny), int(h.Nz)
	bx, by, bz := int(h.Bx), int(h.By), int(h.Bz)
	numBase := nx * ny * nz

	// Carve base bricks in natural (row-major) order.
	baseBricks := make([]*brick.Brick, numBase)
	for zb := 0; zb < nz; zb++ {
		for yb := 0; yb < ny; yb++ {
			for xb := 0; xb < nx; xb++ {
				br := brick.New(bx, by, bz, 0)
				for zs := 0; zs < bz; zs++ {
					for ys := 0; ys < by; ys++ {
						for xs := 0; xs < bx; xs++ {
							gx := xb*bx + xs
							gy := yb*by + ys
							gz := zb*bz + zs
							globalIdx := gx + gy*int(vx) + gz*int(vx)*int(vy)
							if err := br.Set(xs, ys, zs, voxels[globalIdx]); err != nil {
								return nil, fmt.Errorf("%w: %v", forgeerr.ErrInvariant, err)
							}
						}
					}
				}
				idxNat := xb + yb*nx + zb*nx*ny
				baseBricks[idxNat] = br
			}
		}
	}

	numOctree := h.NumOctreeBricks()
	octreeBuf := make([]*brick.Brick, numOctree)

	// Z-order permutation: the eight children of any interior node
	// become consecutive.
	for zb := 0; zb < nz; zb++ {
		for yb := 0; yb < ny; yb++ {
			for xb := 0; xb < nx; xb++ {
				zIdx := morton.Encode(uint32(xb), uint32(yb), uint32(zb))
				if int(zIdx) >= numBase {
					return nil, fmt.Errorf("%w: z-order index %d out of range [0,%d)", forgeerr.ErrInvariant, zIdx, numBase)
				}
				idxNat := xb + yb*nx + zb*nx*ny
				octreeBuf[zIdx] = baseBricks[idxNat]
			}
		}
	}

	// Bottom-up fill: children come before parents.
	brickPos := numBase
	childPos := 0
	for brickPos < numOctree {
		if bx == 1 && by == 1 && bz == 1 {
			// A single-voxel brick has no lower octant to filter into; the
			// parent's one voxel is the mean of its eight children.
			var sum brick.Real
			for i := 0; i < 8; i++ {
				sum += octreeBuf[childPos+i].Data[0]
			}
			octreeBuf[brickPos] = brick.New(1, 1, 1, sum/8)
			brickPos++
			childPos += 8
			continue
		}
		var children [8]*brick.Brick
		for i := 0; i < 8; i++ {
			filtered, err := brick.Filter(octreeBuf[childPos+i])
			if err != nil {
				return nil, err
			}
			children[i] = filtered
		}
		parent, err := brick.Combine(children)
		if err != nil {
			return nil, err
		}
		octreeBuf[brickPos] = parent
		brickPos++
		childPos += 8
	}

	buf := bytes.NewBuffer(make([]byte, 0, numOctree*h.BrickSizeBytes()))
	for _, br := range octreeBuf {
		if err := br.WriteTo(buf); err != nil {
			return nil, fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
		}
	}
	return buf.Bytes(), nil
}
