// Package forgeerr defines the terminal error kinds the pipeline can raise.
// All are terminal: none are retried, and every exit path cleans up
// partial output (see internal/forge).
package forgeerr

import "errors"

var (
	// ErrInputUnreadable covers a missing, unreadable, or truncated input file.
	ErrInputUnreadable = errors.New("forge: input unreadable or truncated")
	// ErrGeometryMismatch covers Vd % Bd != 0, or Nx,Ny,Nz not all equal
	// and power-of-two.
	ErrGeometryMismatch = errors.New("forge: geometry mismatch")
	// ErrTimestepCount covers a timestep count that is not a power of two.
	ErrTimestepCount = errors.New("forge: timestep count not a power of two")
	// ErrScratchIO covers a scratch-file read or write failure.
	ErrScratchIO = errors.New("forge: scratch file I/O failure")
	// ErrTSPIO covers a TSP-file write failure.
	ErrTSPIO = errors.New("forge: TSP file I/O failure")
	// ErrInvariant covers an internal invariant breach: brick-dimension
	// mismatch on Combine/Average, a Z-order index out of range, or a
	// buffer under/overflow.
	ErrInvariant = errors.New("forge: internal invariant breach")
)
