package octree

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxelsplace/tspforge/internal/brick"
	"github.com/voxelsplace/tspforge/internal/header"
	"github.com/voxelsplace/tspforge/internal/volsource"
)

func writeInput(t *testing.T, dir string, prefix header.InputPrefix, voxels [][]brick.Real) string {
	t.Helper()
	path := filepath.Join(dir, "in.vdf")
	var buf bytes.Buffer
	for _, f := range []uint32{prefix.DataDimensionality, prefix.T, prefix.Vx, prefix.Vy, prefix.Vz} {
		if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
			t.Fatalf("write prefix: %v", err)
		}
	}
	for _, ts := range voxels {
		for _, v := range ts {
			if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
				t.Fatalf("write voxel: %v", err)
			}
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

// TestBuildSingleOctreeLevel checks a single timestep, Bx=By=Bz=1,
// Nx=Ny=Nz=2, voxels 0..7 in x-fastest order: the 8 leaf bricks must be
// written in Z-order followed by their combined root.
func TestBuildSingleOctreeLevel(t *testing.T) {
	dir := t.TempDir()
	prefix := header.InputPrefix{DataDimensionality: 1, T: 1, Vx: 2, Vy: 2, Vz: 2}
	voxels := [][]brick.Real{{0, 1, 2, 3, 4, 5, 6, 7}}
	inPath := writeInput(t, dir, prefix, voxels)

	h, err := header.Build(prefix, 0, 1, 1, 1, 0)
	if err != nil {
		t.Fatalf("header.Build: %v", err)
	}
	src, err := volsource.Open(inPath)
	if err != nil {
		t.Fatalf("volsource.Open: %v", err)
	}

	outPath := filepath.Join(dir, "scratch.bin")
	out, err := os.Create(outPath)
	if err != nil {
		t.Fatalf("create scratch: %v", err)
	}
	defer out.Close()

	b := &Builder{Header: h, Source: src}
	if err := b.Build(out); err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	if int64(len(data)) != h.ScratchSize() {
		t.Fatalf("scratch size = %d, want %d", len(data), h.ScratchSize())
	}

	// N_octree = 9, root is the last brick (single voxel) = mean(0..7) = 3.5.
	rootOffset := 8 * 4
	root := bytesToFloat32(data[rootOffset : rootOffset+4])
	if root != 3.5 {
		t.Fatalf("root = %v, want 3.5", root)
	}
	// Leaves 0..7 appear in Z-order.
	wantLeaves := []brick.Real{0, 1, 2, 3, 4, 5, 6, 7}
	for i, want := range wantLeaves {
		got := bytesToFloat32(data[i*4 : i*4+4])
		if got != want {
			t.Fatalf("leaf %d = %v, want %v", i, got, want)
		}
	}
}

func bytesToFloat32(b []byte) brick.Real {
	return brick.Real(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}
