package entity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrCannotOpen         = errors.New("cannot open video source")
	ErrDecode             = errors.New("decode error")
	ErrStreamExhausted    = errors.New("stream exhausted")
	ErrSeekFailed         = errors.New("seek failed")
	ErrSegmentationFailed = errors.New("segmentation failed")
	ErrBufferSizeMismatch = errors.New("buffer size mismatch")
	ErrEncode             = errors.New("encode or io error")
	ErrInvalidPattern     = errors.New("invalid pattern")
	ErrIO                 = errors.New("io error")
)

// SegmentationError carries the exit code of the external segmenting process.
// ExitCode is -1 when the process could not be started or was killed.
type SegmentationError struct {
	ExitCode int
	Err      error
}

func (e *SegmentationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("segmentation failed with exit code %d: %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("segmentation failed with exit code %d", e.ExitCode)
}

func (e *SegmentationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSegmentationFailed}
	}
	return []error{ErrSegmentationFailed, e.Err}
}
