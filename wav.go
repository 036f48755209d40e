package wave64

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrMalformedContainer indicates a bad magic, an unknown RIFF variant or
	// a truncated or misplaced chunk.
	ErrMalformedContainer = errors.New("malformed container")
	// ErrSizeMismatch indicates that redundant size fields disagree with each
	// other or with the actual length of the source.
	ErrSizeMismatch = errors.New("size mismatch")
	// ErrUnsupportedEncoding indicates a format tag / bit depth pair outside
	// the supported set.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	// ErrOutOfBounds is returned when a seek, skip, rewind or read would move
	// the cursor outside the data region.
	ErrOutOfBounds = errors.New("position out of bounds")
	// ErrIO wraps failures of the underlying source or sink.
	ErrIO = errors.New("i/o failure")
	// ErrMissingChunk is returned when a file has no fmt or no data chunk.
	ErrMissingChunk = fmt.Errorf("%w: missing chunk", ErrMalformedContainer)
	// ErrClosed is returned by writer operations after Close.
	ErrClosed = errors.New("writer closed")

	errInvalidFormat = errors.New("invalid file format")
)

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

func framesDuration(frames int64, sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}

	return time.Duration(math.Round(float64(frames) * float64(time.Second) / float64(sampleRate)))
}
