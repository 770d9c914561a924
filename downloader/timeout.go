package downloader

import (
	"errors"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	ErrInitiationTimeout = errors.New("download initiation timeout")
	ErrTransferTimeout   = errors.New("download timeout")
)

// Timeouts bounds a single transfer attempt. All clocks start when the
// transfer is requested.
type Timeouts struct {
	// Initiation cancels an attempt that has not received a single byte.
	Initiation time.Duration
	// Duration is the absolute ceiling of an attempt.
	Duration time.Duration
	// PerMegabyte scales the ceiling down for small files.
	PerMegabyte time.Duration
}

// Limit returns the wall-time allowed for a file of the given size:
// proportional to its size, capped by (not added to) the absolute ceiling.
// Undeclared sizes get the ceiling.
func (timeouts Timeouts) Limit(size int64) time.Duration {
	if timeouts.PerMegabyte <= 0 || size <= 0 {
		return timeouts.Duration
	}
	limit := time.Duration(float64(size) / float64(humanize.MByte) * float64(timeouts.PerMegabyte))
	if limit > timeouts.Duration {
		return timeouts.Duration
	}
	return limit
}

// Check tells whether an attempt running for elapsed, that received
// transferred bytes out of size, has to be cancelled and why.
func (timeouts Timeouts) Check(elapsed time.Duration, transferred, size int64) error {
	if transferred == 0 && elapsed > timeouts.Initiation {
		return ErrInitiationTimeout
	}
	if elapsed > timeouts.Limit(size) {
		return ErrTransferTimeout
	}
	return nil
}
