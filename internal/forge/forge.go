// Package forge sequences the pipeline driver: header -> octree -> TSP,
// owning the scratch-file lifecycle.
package forge

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/voxelsplace/tspforge/internal/brick"
	"github.com/voxelsplace/tspforge/internal/forgeerr"
	"github.com/voxelsplace/tspforge/internal/header"
	"github.com/voxelsplace/tspforge/internal/integrity"
	"github.com/voxelsplace/tspforge/internal/octree"
	"github.com/voxelsplace/tspforge/internal/preview"
	"github.com/voxelsplace/tspforge/internal/scratch"
	"github.com/voxelsplace/tspforge/internal/tsp"
	"github.com/voxelsplace/tspforge/internal/volsource"
)

// Config is the flat set of parameters a collaborator (the CLI) provides
// to drive one build.
type Config struct {
	InFilename   string
	OutFilename  string
	ScratchPath  string
	BrickDim     uint32
	PaddingWidth uint32
	Structure    uint32
	NumWorkers   int
	Checksum     bool
	PreviewPath  string

	// ScratchCompression wraps the scratch file in zstd (internal/scratch)
	// to bound disk usage on large datasets; it forces sequential octree
	// construction (NumWorkers is ignored for the octree phase only; the
	// TSP phase reads a decompressed copy of the scratch file written by
	// inflateScratch through a plain *os.File and keeps its own worker pool).
	ScratchCompression bool

	// ScalingSidecar, when set, scans the finished TSP payload for its
	// scalar min/max and writes a "<out>.json" sidecar (sidecar.go).
	ScalingSidecar bool
}

// Pipeline drives the construction of a TSP tree from a Config.
type Pipeline struct {
	Config Config
	Logger *log.Logger

	header header.Header
	source *volsource.Source
}

// New returns a Pipeline whose Logger writes to os.Stderr. A nil Logger
// disables progress logging.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		Config: cfg,
		Logger: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (p *Pipeline) logf(format string, v ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, v...)
	}
}

// Construct sequences buildHeader -> writeScratch(octree) -> writeTsp ->
// deleteScratch, deleting the scratch file (and any partial TSP output) on
// both success and failure paths.
func (p *Pipeline) Construct(ctx context.Context) error {
	scratchPath := p.Config.ScratchPath
	if scratchPath == "" {
		scratchPath = p.Config.OutFilename + ".scratch"
	}
	defer p.deleteScratch(scratchPath)
	rawScratchPath := scratchPath + ".raw"
	defer p.deleteScratch(rawScratchPath)

	if err := p.buildHeader(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := p.writeScratch(scratchPath); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	readScratchPath := scratchPath
	if p.Config.ScratchCompression {
		if err := p.inflateScratch(scratchPath, rawScratchPath); err != nil {
			return err
		}
		readScratchPath = rawScratchPath
	}

	if err := p.writeTSP(readScratchPath); err != nil {
		_ = os.Remove(p.Config.OutFilename)
		return err
	}

	if p.Config.Checksum {
		if err := p.writeChecksum(); err != nil {
			return err
		}
	}
	if p.Config.ScalingSidecar {
		if err := p.writeScalingSidecar(); err != nil {
			return err
		}
	}
	if p.Config.PreviewPath != "" {
		if err := p.writePreview(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) buildHeader() error {
	p.logf("reading header from %s", p.Config.InFilename)
	src, err := volsource.Open(p.Config.InFilename)
	if err != nil {
		return err
	}
	p.source = src

	prefix, err := src.ReadPrefix()
	if err != nil {
		return err
	}

	h, err := header.Build(prefix, p.Config.Structure, p.Config.BrickDim, p.Config.BrickDim, p.Config.BrickDim, p.Config.PaddingWidth)
	if err != nil {
		return err
	}
	p.header = h

	p.logf("data dimensionality: %d", h.DataDimensionality)
	p.logf("number of timesteps: %d", h.T)
	p.logf("brick dimensions: %d x %d x %d", h.Bx, h.By, h.Bz)
	p.logf("number of bricks: %d x %d x %d", h.Nx, h.Ny, h.Nz)
	p.logf("structure: %d, data size (bytes): %d", h.Structure, h.DataSize)
	p.logf("number of bricks in base octree level: %d", pow(int(h.Nx), 3))
	p.logf("number of levels in octree: %d", h.Level()+1)
	p.logf("number of bricks in octree: %d", h.NumOctreeBricks())
	return nil
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

func (p *Pipeline) writeScratch(scratchPath string) error {
	b := &octree.Builder{
		Header: p.header,
		Source: p.source,
		Logger: octree.NewLogAdapter(p.logf),
	}

	if p.Config.ScratchCompression {
		p.logf("writing zstd-compressed scratch file %s", scratchPath)
		cw, err := scratch.NewCompressedWriter(scratchPath)
		if err != nil {
			return fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
		}
		defer cw.Close()

		b.NumWorkers = 1 // compressed scratch cannot accept out-of-order writes
		if err := b.Build(&scratch.SequentialWriterAt{W: cw}); err != nil {
			return fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
		}
		return nil
	}

	out, err := os.Create(scratchPath)
	if err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
	}
	defer out.Close()

	b.NumWorkers = p.Config.NumWorkers
	if err := b.Build(out); err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
	}
	return nil
}

// inflateScratch decompresses a zstd scratch file to rawPath so the TSP
// phase can random-access it via io.ReaderAt; zstd streams only support
// sequential reads.
func (p *Pipeline) inflateScratch(compressedPath, rawPath string) error {
	p.logf("inflating scratch file for random access")
	cr, err := scratch.NewCompressedReader(compressedPath)
	if err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
	}
	defer cr.Close()

	out, err := os.Create(rawPath)
	if err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, cr); err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
	}
	return nil
}

func (p *Pipeline) writeTSP(scratchPath string) error {
	in, err := os.Open(scratchPath)
	if err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrScratchIO, err)
	}
	defer in.Close()

	out, err := os.Create(p.Config.OutFilename)
	if err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrTSPIO, err)
	}
	defer out.Close()

	p.logf("writing TSP header")
	if err := p.header.WriteTSP(out); err != nil {
		return err
	}

	b := &tsp.Builder{
		Header:     p.header,
		ScratchR:   in,
		NumWorkers: p.Config.NumWorkers,
		Logger:     tsp.NewLogAdapter(p.logf),
	}
	return b.Build(out)
}

func (p *Pipeline) deleteScratch(scratchPath string) {
	if _, err := os.Stat(scratchPath); err == nil {
		if rmErr := os.Remove(scratchPath); rmErr != nil {
			p.logf("warning: failed to remove scratch file %s: %v", scratchPath, rmErr)
		}
	}
}

func (p *Pipeline) writeChecksum() error {
	sum, err := integrity.ChecksumFile(p.Config.OutFilename)
	if err != nil {
		return err
	}
	sidecarPath := p.Config.OutFilename + ".xxh64"
	if err := os.WriteFile(sidecarPath, []byte(sum), 0o644); err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrTSPIO, err)
	}
	p.logf("wrote checksum sidecar %s: %s", sidecarPath, sum)
	return nil
}

// writeScalingSidecar streams every brick in the finished TSP payload to
// find the dataset's scalar min/max, then writes a "<out>.json" sidecar
// (sidecar.go) a downstream renderer can use to pick a color ramp without
// rescanning the whole file itself.
func (p *Pipeline) writeScalingSidecar() error {
	f, err := os.Open(p.Config.OutFilename)
	if err != nil {
		return fmt.Errorf("%w: %v", forgeerr.ErrTSPIO, err)
	}
	defer f.Close()

	if _, err := header.ReadTSP(f); err != nil {
		return err
	}

	bx, by, bz := int(p.header.Bx), int(p.header.By), int(p.header.Bz)
	totalBricks := p.header.NumOctreeBricks() * p.header.NumBSTNodes()

	min, max := 0.0, 0.0
	first := true
	for i := 0; i < totalBricks; i++ {
		br, err := brick.ReadFrom(f, bx, by, bz)
		if err != nil {
			return fmt.Errorf("%w: %v", forgeerr.ErrTSPIO, err)
		}
		for _, v := range br.Data {
			f64 := float64(v)
			if first {
				min, max, first = f64, f64, false
				continue
			}
			if f64 < min {
				min = f64
			}
			if f64 > max {
				max = f64
			}
		}
	}

	p.logf("scaling range: [%g, %g]", min, max)
	return WriteScalingSidecar(p.Config.OutFilename, ScalingMetadata{Min: min, Max: max})
}

func (p *Pipeline) writePreview() error {
	p.logf("exporting preview to %s", p.Config.PreviewPath)
	return preview.ExportRootBrick(p.Config.OutFilename, p.Config.PreviewPath)
}
