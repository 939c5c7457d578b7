package entity

import (
	"time"

	"github.com/google/uuid"
)

type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategySeek       Strategy = "seek"
	StrategySegmented  Strategy = "segmented"
)

// SamplingReport summarises one sampling pass. Per-frame failures are counted,
// never returned as errors.
type SamplingReport struct {
	Prefix        string
	FramesDecoded int
	FramesWritten int
	DecodeErrors  int
	SeekErrors    int
	WriteErrors   int
	Elapsed       time.Duration
}

func (r SamplingReport) Failures() int {
	return r.DecodeErrors + r.SeekErrors + r.WriteErrors
}

// Add folds another report's counters into r. Elapsed is not summed.
func (r *SamplingReport) Add(o SamplingReport) {
	r.FramesDecoded += o.FramesDecoded
	r.FramesWritten += o.FramesWritten
	r.DecodeErrors += o.DecodeErrors
	r.SeekErrors += o.SeekErrors
	r.WriteErrors += o.WriteErrors
}

// SegmentResult is the outcome of sampling a single segment.
type SegmentResult struct {
	Segment Segment
	Report  SamplingReport
	Err     error
}

// RunSummary is the outcome of one invocation of the run controller.
type RunSummary struct {
	ID              uuid.UUID     `json:"run_id"`
	Strategy        Strategy      `json:"strategy"`
	Source          string        `json:"source"`
	FramesWritten   int           `json:"frames_written"`
	FrameFailures   int           `json:"frame_failures"`
	Segments        int           `json:"segments,omitempty"`
	SegmentFailures int           `json:"segment_failures,omitempty"`
	CleanupFailures int           `json:"cleanup_failures"`
	ArchiveKey      string        `json:"archive_key,omitempty"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	StartedAt       time.Time     `json:"started_at"`
}
