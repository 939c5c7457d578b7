package usecase

import (
	"context"
	"runtime"
	"time"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type FrameSampler interface {
	Sample(ctx context.Context, prefix, videoPath, framesDir string) (entity.SamplingReport, error)
}

// SegmentOrchestrator samples every segment concurrently, each with its own
// decoder session and a "segment-<i>" prefix derived from the segment's
// position in the list. Prefixes are therefore pairwise distinct and no two
// samplers ever write the same file.
type SegmentOrchestrator struct {
	sampler FrameSampler
	workers int
	logger  *zap.Logger
	onDone  func(entity.SegmentResult)
}

type SegmentOrchestratorConfig struct {
	Workers int
	// OnSegmentDone, if set, is called from the worker goroutine after each segment finishes.
	OnSegmentDone func(entity.SegmentResult)
}

func NewSegmentOrchestrator(sampler FrameSampler, logger *zap.Logger, cfg SegmentOrchestratorConfig) *SegmentOrchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &SegmentOrchestrator{
		sampler: sampler,
		workers: workers,
		logger:  logger,
		onDone:  cfg.OnSegmentDone,
	}
}

// Run blocks until every segment has been sampled. A failing segment is logged
// and recorded in its result; it never stops its siblings.
func (o *SegmentOrchestrator) Run(ctx context.Context, segments []entity.Segment, framesDir string) []entity.SegmentResult {
	ctx, span := otel.Tracer("usecase").Start(ctx, "SegmentOrchestrator.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("segments", len(segments)))

	results := make([]entity.SegmentResult, len(segments))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, seg := range segments {
		seg.Ordinal = i
		g.Go(func() error {
			results[i] = o.sampleSegment(ctx, seg, framesDir)
			if o.onDone != nil {
				o.onDone(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (o *SegmentOrchestrator) sampleSegment(ctx context.Context, seg entity.Segment, framesDir string) entity.SegmentResult {
	prefix := seg.Prefix()
	start := time.Now()

	report, err := o.sampler.Sample(ctx, prefix, seg.Path, framesDir)
	if err != nil {
		metrics.SegmentsProcessedTotal.WithLabelValues("failed").Inc()
		o.logger.Error("error processing segment",
			zap.Int("segment", seg.Ordinal),
			zap.String("path", seg.Path),
			zap.Error(err),
		)
		return entity.SegmentResult{Segment: seg, Report: report, Err: err}
	}

	metrics.SegmentsProcessedTotal.WithLabelValues("completed").Inc()
	o.logger.Debug("segment processed",
		zap.String("prefix", prefix),
		zap.Int("frames_written", report.FramesWritten),
		zap.Duration("elapsed", time.Since(start)),
	)
	return entity.SegmentResult{Segment: seg, Report: report}
}
