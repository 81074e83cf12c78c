// Package tsp streams the scratch octree file level-by-level and, for each
// spatial octree node, assembles a time binary search tree (BST) and writes
// it to the final TSP file.
package tsp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/voxelsplace/tspforge/internal/brick"
	"github.com/voxelsplace/tspforge/internal/forgeerr"
	"github.com/voxelsplace/tspforge/internal/header"
)

// Builder reads a scratch file and writes the TSP payload (the 44-byte
// header must already have been written by the caller; Build writes only
// the BST-block payload that follows it).
type Builder struct {
	Header     header.Header
	ScratchR   io.ReaderAt
	NumWorkers int
	Logger     *logAdapter
}

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

// Build walks octree levels from root to leaves, assembling and writing
// one BST block per spatial node, to out — a *os.File positioned
// immediately after the 44-byte header.
func (b *Builder) Build(out *os.File) error {
	h := b.Header
	numOctree := h.NumOctreeBricks()
	brickSize := h.BrickSizeBytes()
	l := h.Level()

	bw := bufio.NewWriter(out)
	defer bw.Flush()

	// Per-level starting brick position within a timestep block: pos starts
	// one brick past the end of the block (the root was the last brick
	// written during octree construction) and decreases by 8^level for
	// each level processed. The first level computed this way is the root
	// (count 1, pos = numOctree-1); the last is the leaves (count 8^L,
	// pos 0) — this is already root-first, so levels are emitted in the
	// order they're computed.
	type levelInfo struct {
		level    int
		startPos int
		count    int
	}
	levels := make([]levelInfo, 0, l+1)
	pos := numOctree
	for level := 0; level <= l; level++ {
		count := 1
		for i := 0; i < level; i++ {
			count *= 8
		}
		pos -= count
		levels = append(levels, levelInfo{level: level, startPos: pos, count: count})
	}

	for _, lvl := range levels {
		b.logf("TSP level %d, starting octree pos %d, %d spatial nodes", lvl.level, lvl.startPos, lvl.count)
		if err := b.buildLevel(bw, lvl.startPos, lvl.count, brickSize); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrTSPIO, err)
	}
	return nil
}

// buildLevel assembles and writes a BST block for every spatial node at one
// octree level, in scratch-file spatial order.
func (b *Builder) buildLevel(w io.Writer, startPos, count, brickSize int) error {
	h := b.Header
	numOctree := h.NumOctreeBricks()
	t := int(h.T)

	workers := b.NumWorkers
	if workers < 1 {
		workers = 1
	}
	if workers == 1 {
		for i := 0; i < count; i++ {
			blk, err := b.buildBSTBlock(startPos+i, numOctree, brickSize, t)
			if err != nil {
				return err
			}
			if _, err := w.Write(blk); err != nil {
				return fmt.Errorf("%w: %v", forgeerr.ErrTSPIO, err)
			}
		}
		return nil
	}

	// Parallel path: compute each node's BST block independently, then
	// write in spatial-index order to preserve byte order.
	results := make([][]byte, count)
	errs := make([]error, count)
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := 0; i < count; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			blk, err := b.buildBSTBlock(startPos+i, numOctree, brickSize, t)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = blk
		}(i)
	}
	wg.Wait()
	for i := 0; i < count; i++ {
		if errs[i] != nil {
			return errs[i]
		}
		if _, err := w.Write(results[i]); err != nil {
			return fmt.Errorf("%w: %v", forgeerr.ErrTSPIO, err)
		}
	}
	return nil
}

// buildBSTBlock collects the T timestep bricks for spatial node i, averages
// them bottom-up into a full time BST, and serializes the BST in root-first
// index order.
func (b *Builder) buildBSTBlock(nodePos, numOctree, brickSize, t int) ([]byte, error) {
	h := b.Header
	numBSTNodes := h.NumBSTNodes()
	bstBricks := make([]*brick.Brick, numBSTNodes)

	leafStart := t - 1
	for ts := 0; ts < t; ts++ {
		byteOffset := int64(nodePos+ts*numOctree) * int64(brickSize)
		br, err := readBrickAt(b.ScratchR, byteOffset, int(h.Bx), int(h.By), int(h.Bz))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
		}
		bstBricks[leafStart+ts] = br
	}

	// Bottom-up average: BST level ell = 1..K, n_ell = T/2^ell nodes.
	parentBase := leafStart
	for ell := 1; ; ell++ {
		nAtLevel := t
		for i := 0; i < ell; i++ {
			nAtLevel /= 2
		}
		if nAtLevel == 0 {
			break
		}
		newParentBase := parentBase - nAtLevel
		for j := 0; j < nAtLevel; j++ {
			left := bstBricks[parentBase+2*j]
			right := bstBricks[parentBase+2*j+1]
			avg, err := brick.Average(left, right)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", forgeerr.ErrInvariant, err)
			}
			bstBricks[newParentBase+j] = avg
		}
		parentBase = newParentBase
		if parentBase == 0 {
			break
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, numBSTNodes*brickSize))
	for _, br := range bstBricks {
		if err := br.WriteTo(buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func readBrickAt(r io.ReaderAt, offset int64, bx, by, bz int) (*brick.Brick, error) {
	size := bx * by * bz * brick.RealSize
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return brick.ReadFrom(bytes.NewReader(buf), bx, by, bz)
}
