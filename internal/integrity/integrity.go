// Package integrity computes a content digest of the emitted TSP file
// (header and payload) for a cheap downstream corruption check.
package integrity

import (
	"fmt"
	"io"
	"os"

	xxhash "github.com/cespare/xxhash/v2"
)

// ChecksumFile streams path through xxhash64 and returns the hex digest.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("integrity: open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("integrity: hash %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
