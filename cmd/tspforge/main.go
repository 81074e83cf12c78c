// Command tspforge builds a Time-Space Partitioning tree from a
// time-varying scalar volume, inspects a finished TSP file, or
// synthesizes a test input volume. Each subcommand gets its own
// flag.FlagSet.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/voxelsplace/tspforge/internal/forge"
	"github.com/voxelsplace/tspforge/internal/gentest"
	"github.com/voxelsplace/tspforge/internal/header"
)

func usage() {
	fmt.Println("Usage: tspforge <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  build -in <path> -out <path> -brick <N> [-padding <N>] [-structure <N>]")
	fmt.Println("        [-scratch <path>] [-scratchcompress] [-checksum] [-scaling]")
	fmt.Println("        [-preview <path.glb>] [-workers <N>]")
	fmt.Println("        build a TSP file from an input volume")
	fmt.Println("  inspect -in <path.tsp>")
	fmt.Println("        print the header of a finished TSP file")
	fmt.Println("  gentest -out <path> -dims <N> -timesteps <N> [-seed <N>]")
	fmt.Println("        synthesize a test input volume")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "gentest":
		err = runGentest(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Println("Operation completed!")
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	in := fs.String("in", "", "input volume path")
	out := fs.String("out", "", "output TSP path")
	brickDim := fs.Uint("brick", 0, "brick dimension (cube edge, voxels)")
	padding := fs.Uint("padding", 0, "padding width")
	structure := fs.Uint("structure", 0, "structure identifier")
	scratch := fs.String("scratch", "", "scratch file path (default: <out>.scratch)")
	scratchCompress := fs.Bool("scratchcompress", false, "zstd-compress the scratch file")
	checksum := fs.Bool("checksum", false, "write an xxh64 checksum sidecar")
	scaling := fs.Bool("scaling", false, "write a scalar min/max JSON sidecar")
	preview := fs.String("preview", "", "export a glTF preview to this path")
	workers := fs.Int("workers", 0, "bounded worker pool size (0 or 1: sequential)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" || *brickDim == 0 {
		fs.Usage()
		return fmt.Errorf("build: -in, -out, and -brick are required")
	}

	p := forge.New(forge.Config{
		InFilename:         *in,
		OutFilename:        *out,
		ScratchPath:        *scratch,
		BrickDim:           uint32(*brickDim),
		PaddingWidth:       uint32(*padding),
		Structure:          uint32(*structure),
		NumWorkers:         *workers,
		Checksum:           *checksum,
		PreviewPath:        *preview,
		ScratchCompression: *scratchCompress,
		ScalingSidecar:     *scaling,
	})
	return p.Construct(context.Background())
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	in := fs.String("in", "", "TSP file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return fmt.Errorf("inspect: -in is required")
	}

	f, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := header.ReadTSP(f)
	if err != nil {
		return err
	}

	fmt.Printf("structure:            %d\n", h.Structure)
	fmt.Printf("data dimensionality:  %d\n", h.DataDimensionality)
	fmt.Printf("brick dimensions:     %d x %d x %d\n", h.Bx, h.By, h.Bz)
	fmt.Printf("brick grid:           %d x %d x %d\n", h.Nx, h.Ny, h.Nz)
	fmt.Printf("timesteps:            %d\n", h.T)
	fmt.Printf("padding width:        %d\n", h.PaddingWidth)
	fmt.Printf("data size (bytes):    %d\n", h.DataSize)
	fmt.Printf("octree levels:        %d\n", h.Level()+1)
	fmt.Printf("octree nodes:         %d\n", h.NumOctreeBricks())
	fmt.Printf("BST nodes per octree: %d\n", h.NumBSTNodes())
	fmt.Printf("expected file size:   %d\n", h.TSPSize())
	return nil
}

func runGentest(args []string) error {
	fs := flag.NewFlagSet("gentest", flag.ExitOnError)
	out := fs.String("out", "", "output volume path")
	dims := fs.Uint("dims", 0, "per-axis voxel count (power of two)")
	timesteps := fs.Uint("timesteps", 0, "timestep count (power of two)")
	seed := fs.Int64("seed", 1, "deterministic RNG seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" || *dims == 0 || *timesteps == 0 {
		fs.Usage()
		return fmt.Errorf("gentest: -out, -dims, and -timesteps are required")
	}

	return gentest.Generate(gentest.Config{
		OutPath:   *out,
		Dim:       uint32(*dims),
		Timesteps: uint32(*timesteps),
		Seed:      *seed,
	})
}
