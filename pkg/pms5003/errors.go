package pms5003

import (
	"errors"
	"fmt"
)

var (
	// ErrChecksumMismatch indicates a frame failed the integrity check.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrFrameLength indicates the declared or actual payload length
	// disagrees with the expected frame shape.
	ErrFrameLength = errors.New("frame length mismatch")
	// ErrReadTimeout indicates no start of frame was found in time, or the
	// device never signaled readiness after a reset.
	ErrReadTimeout = errors.New("read timeout")
	// ErrSerialTimeout indicates a single read returned fewer bytes than
	// requested.
	ErrSerialTimeout = errors.New("serial timeout")
	// ErrMalformedCommand indicates a command payload of the wrong size.
	ErrMalformedCommand = errors.New("malformed command frame")
	// ErrUnsupportedSize indicates a particle size the sensor doesn't report.
	ErrUnsupportedSize = errors.New("unsupported particle size")
	// ErrNoPin indicates the operation requires a pin that isn't configured.
	ErrNoPin = errors.New("pin not configured")
)

// ChecksumError carries both sides of a failed checksum comparison.
type ChecksumError struct {
	Computed uint16
	Embedded uint16
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("PMS5003 checksum mismatch %d != %d", e.Computed, e.Embedded)
}

// Is matches ErrChecksumMismatch.
func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// LengthError reports a length disagreeing with a frame shape.
type LengthError struct {
	Desc string
	Got  int
	Want int
}

// Error implements error.
func (e *LengthError) Error() string {
	rel := "long"
	if e.Got < e.Want {
		rel = "short"
	}
	return fmt.Sprintf("%s too %s %d bytes", e.Desc, rel, e.Got)
}

// Is matches ErrFrameLength.
func (e *LengthError) Is(target error) bool {
	return target == ErrFrameLength
}

// ErrorKind returns a short label of the failure class, used for metrics
// and log lines.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, ErrFrameLength):
		return "length"
	case errors.Is(err, ErrReadTimeout):
		return "read_timeout"
	case errors.Is(err, ErrSerialTimeout):
		return "serial_timeout"
	case errors.Is(err, ErrMalformedCommand):
		return "malformed_command"
	case errors.Is(err, ErrUnsupportedSize):
		return "unsupported_size"
	}
	return "io"
}
