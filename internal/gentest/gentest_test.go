package gentest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/voxelsplace/tspforge/internal/header"
)

func TestGenerateProducesReadablePrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.vdf")

	cfg := Config{OutPath: path, Dim: 4, Timesteps: 2, Seed: 1}
	if err := Generate(cfg); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	prefix, err := header.ReadInputPrefix(f)
	if err != nil {
		t.Fatalf("ReadInputPrefix: %v", err)
	}
	if prefix.T != cfg.Timesteps || prefix.Vx != cfg.Dim || prefix.Vy != cfg.Dim || prefix.Vz != cfg.Dim {
		t.Fatalf("prefix = %+v, want T=%d Vx=Vy=Vz=%d", prefix, cfg.Timesteps, cfg.Dim)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	wantSize := int64(header.InputPrefixSize) + int64(cfg.Timesteps)*int64(cfg.Dim*cfg.Dim*cfg.Dim)*4
	if info.Size() != wantSize {
		t.Fatalf("file size = %d, want %d", info.Size(), wantSize)
	}
}

func TestGenerateRejectsNonPowerOfTwo(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{OutPath: filepath.Join(dir, "in.vdf"), Dim: 3, Timesteps: 2, Seed: 1}
	if err := Generate(cfg); err == nil {
		t.Fatalf("expected error for non-power-of-two dim")
	}
}

func TestSampleFieldBounded(t *testing.T) {
	v := sampleField(1, 2, 3, 8, 0.5, 0.1, 0.2, 0.3)
	if v < 0 || v > 1 {
		t.Fatalf("sampleField = %v, want in [0,1]", v)
	}
}
