package header

import (
	"bytes"
	"errors"
	"testing"

	"github.com/voxelsplace/tspforge/internal/forgeerr"
)

func TestBuildValid(t *testing.T) {
	prefix := InputPrefix{DataDimensionality: 1, T: 4, Vx: 8, Vy: 8, Vz: 8}
	h, err := Build(prefix, 0, 2, 2, 2, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h.Nx != 4 || h.Ny != 4 || h.Nz != 4 {
		t.Fatalf("got Nx=%d Ny=%d Nz=%d, want 4,4,4", h.Nx, h.Ny, h.Nz)
	}
	if h.Level() != 2 {
		t.Fatalf("Level() = %d, want 2", h.Level())
	}
	if h.NumOctreeBricks() != 73 {
		t.Fatalf("NumOctreeBricks() = %d, want 73", h.NumOctreeBricks())
	}
	if h.NumBSTNodes() != 7 {
		t.Fatalf("NumBSTNodes() = %d, want 7", h.NumBSTNodes())
	}
}

func TestBuildGeometryMismatch(t *testing.T) {
	// Vx=6 is not a multiple of Bx=4.
	prefix := InputPrefix{DataDimensionality: 1, T: 1, Vx: 6, Vy: 8, Vz: 8}
	_, err := Build(prefix, 0, 4, 2, 2, 1)
	if !errors.Is(err, forgeerr.ErrGeometryMismatch) {
		t.Fatalf("got %v, want ErrGeometryMismatch", err)
	}
}

func TestBuildTimestepCountViolation(t *testing.T) {
	// T=3 is not a power of two.
	prefix := InputPrefix{DataDimensionality: 1, T: 3, Vx: 8, Vy: 8, Vz: 8}
	_, err := Build(prefix, 0, 2, 2, 2, 1)
	if !errors.Is(err, forgeerr.ErrTimestepCount) {
		t.Fatalf("got %v, want ErrTimestepCount", err)
	}
}

func TestBuildUnequalBrickCounts(t *testing.T) {
	prefix := InputPrefix{DataDimensionality: 1, T: 1, Vx: 8, Vy: 16, Vz: 8}
	_, err := Build(prefix, 0, 2, 2, 2, 1)
	if !errors.Is(err, forgeerr.ErrGeometryMismatch) {
		t.Fatalf("got %v, want ErrGeometryMismatch", err)
	}
}

func TestWriteReadTSPRoundTrip(t *testing.T) {
	prefix := InputPrefix{DataDimensionality: 1, T: 4, Vx: 8, Vy: 8, Vz: 8}
	h, err := Build(prefix, 3, 2, 2, 2, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	if err := h.WriteTSP(&buf); err != nil {
		t.Fatalf("WriteTSP: %v", err)
	}
	if buf.Len() != Size {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), Size)
	}
	got, err := ReadTSP(&buf)
	if err != nil {
		t.Fatalf("ReadTSP: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestSizesMatchConstantFillTwoTimesteps(t *testing.T) {
	// Bx=By=Bz=2, Nx=Ny=Nz=2, T=2.
	prefix := InputPrefix{DataDimensionality: 1, T: 2, Vx: 4, Vy: 4, Vz: 4}
	h, err := Build(prefix, 0, 2, 2, 2, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h.NumOctreeBricks() != 9 {
		t.Fatalf("NumOctreeBricks() = %d, want 9", h.NumOctreeBricks())
	}
	wantPayload := int64(9 * 3 * 8 * 4)
	if h.TSPSize()-Size != wantPayload {
		t.Fatalf("payload size = %d, want %d", h.TSPSize()-Size, wantPayload)
	}
}
