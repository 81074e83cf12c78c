// Package scratch optionally wraps the intermediate per-timestep octree
// dump in zstd compression to bound scratch-file disk usage on large
// datasets. Off by default; the final TSP output is never compressed,
// since the scratch file is purely an internal collaborator deleted once
// the TSP file is built.
package scratch

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// CompressedWriter wraps an *os.File with a zstd encoder behind a plain
// io.Writer/io.Closer surface. It cannot seek, so the octree builder
// reaches it through SequentialWriterAt with NumWorkers forced to 1 (see
// forge.Pipeline.writeScratch).
type CompressedWriter struct {
	file *os.File
	enc  *zstd.Encoder
}

// NewCompressedWriter truncates and opens path for zstd-compressed writing.
func NewCompressedWriter(path string) (*CompressedWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("scratch: create %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("scratch: new zstd writer: %w", err)
	}
	return &CompressedWriter{file: f, enc: enc}, nil
}

func (w *CompressedWriter) Write(p []byte) (int, error) { return w.enc.Write(p) }

// Close flushes the zstd stream and closes the underlying file.
func (w *CompressedWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("scratch: close zstd writer: %w", err)
	}
	return w.file.Close()
}

// CompressedReader wraps an *os.File with a zstd decoder for sequential
// reads of a compressed scratch file.
type CompressedReader struct {
	file *os.File
	dec  *zstd.Decoder
}

// NewCompressedReader opens path for zstd-compressed reading.
func NewCompressedReader(path string) (*CompressedReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scratch: open %s: %w", path, err)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("scratch: new zstd reader: %w", err)
	}
	return &CompressedReader{file: f, dec: dec}, nil
}

func (r *CompressedReader) Read(p []byte) (int, error) { return r.dec.Read(p) }

// Close releases the zstd decoder and the underlying file.
func (r *CompressedReader) Close() error {
	r.dec.Close()
	return r.file.Close()
}

var _ io.WriteCloser = (*CompressedWriter)(nil)
var _ io.ReadCloser = (*CompressedReader)(nil)

// SequentialWriterAt adapts a plain io.Writer (such as a CompressedWriter,
// which cannot seek) to the io.WriterAt octree.Builder.Build requires,
// accepting only strictly sequential, contiguous offsets. Pair with
// NumWorkers<=1 so the octree builder never attempts an out-of-order
// write.
type SequentialWriterAt struct {
	W   io.Writer
	pos int64
}

// WriteAt writes p if off matches the current sequential position,
// otherwise it reports an error rather than silently reordering bytes.
func (s *SequentialWriterAt) WriteAt(p []byte, off int64) (int, error) {
	if off != s.pos {
		return 0, fmt.Errorf("scratch: non-sequential write at offset %d, expected %d (compressed scratch requires NumWorkers<=1)", off, s.pos)
	}
	n, err := s.W.Write(p)
	s.pos += int64(n)
	return n, err
}
