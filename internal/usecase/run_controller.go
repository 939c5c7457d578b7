package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/domain/port"
	"github.com/RustedBytes/extract-frames/internal/infra/metrics"
	"github.com/RustedBytes/extract-frames/internal/infra/pathset"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type RunController struct {
	sequential   *SequentialSampler
	seek         *SeekSampler
	segmenter    port.Segmenter
	orchestrator *SegmentOrchestrator
	archiver     port.Archiver
	storage      port.ArchiveStorage
	publisher    port.SummaryPublisher
	logger       *zap.Logger
	cfg          RunConfig
}

type RunConfig struct {
	FramesDir            string
	SegmentsDir          string
	SegmentOutputPattern string
	SegmentGlob          string
	ArchiveEnabled       bool
	ArchivePath          string
}

// RunDeps groups the optional collaborators. Storage and Publisher may be nil.
type RunDeps struct {
	Sequential   *SequentialSampler
	Seek         *SeekSampler
	Segmenter    port.Segmenter
	Orchestrator *SegmentOrchestrator
	Archiver     port.Archiver
	Storage      port.ArchiveStorage
	Publisher    port.SummaryPublisher
}

func NewRunController(deps RunDeps, logger *zap.Logger, cfg RunConfig) *RunController {
	return &RunController{
		sequential:   deps.Sequential,
		seek:         deps.Seek,
		segmenter:    deps.Segmenter,
		orchestrator: deps.Orchestrator,
		archiver:     deps.Archiver,
		storage:      deps.Storage,
		publisher:    deps.Publisher,
		logger:       logger,
		cfg:          cfg,
	}
}

// Run prepares clean output directories, samples source with the requested
// strategy and removes the segments directory afterwards. Only run-level
// failures are returned; per-frame and cleanup failures end up in the summary.
func (rc *RunController) Run(ctx context.Context, source string, strategy entity.Strategy) (*entity.RunSummary, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "RunController.Run")
	defer span.End()

	summary := &entity.RunSummary{
		ID:        uuid.New(),
		Strategy:  strategy,
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
	span.SetAttributes(
		attribute.String("run.id", summary.ID.String()),
		attribute.String("run.strategy", string(strategy)),
		attribute.String("run.source", source),
	)
	log := rc.logger.With(zap.String("run_id", summary.ID.String()), zap.String("strategy", string(strategy)))

	for _, dir := range []string{rc.cfg.FramesDir, rc.cfg.SegmentsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return summary, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	summary.CleanupFailures += rc.cleanup(log)

	err := rc.execute(ctx, source, strategy, summary, log)

	if rmErr := pathset.RemoveTree(rc.cfg.SegmentsDir); rmErr != nil {
		summary.CleanupFailures++
		metrics.CleanupFailuresTotal.Inc()
		log.Error("failed to remove segments directory", zap.Error(rmErr))
	}

	if err == nil && rc.cfg.ArchiveEnabled {
		err = rc.archive(ctx, summary, log)
	}

	summary.Elapsed = time.Since(summary.StartedAt)
	metrics.StageDuration.WithLabelValues("total").Observe(summary.Elapsed.Seconds())

	if err != nil {
		log.Error("run failed", zap.Error(err), zap.Duration("elapsed", summary.Elapsed))
		return summary, err
	}

	log.Info("run completed",
		zap.Int("frames_written", summary.FramesWritten),
		zap.Int("frame_failures", summary.FrameFailures),
		zap.Int("segments", summary.Segments),
		zap.Int("segment_failures", summary.SegmentFailures),
		zap.Int("cleanup_failures", summary.CleanupFailures),
		zap.Duration("elapsed", summary.Elapsed),
	)
	rc.publishSummary(ctx, summary, log)
	return summary, nil
}

func (rc *RunController) execute(ctx context.Context, source string, strategy entity.Strategy, summary *entity.RunSummary, log *zap.Logger) error {
	stageStart := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(string(strategy)).Observe(time.Since(stageStart).Seconds())
	}()

	switch strategy {
	case entity.StrategySequential:
		report, err := rc.sequential.Sample(ctx, entity.FullPrefix, source, rc.cfg.FramesDir)
		summary.FramesWritten = report.FramesWritten
		summary.FrameFailures = report.Failures()
		return err

	case entity.StrategySeek:
		report, err := rc.seek.Sample(ctx, source, rc.cfg.FramesDir)
		summary.FramesWritten = report.FramesWritten
		summary.FrameFailures = report.Failures()
		return err

	case entity.StrategySegmented:
		segments, err := rc.segmenter.Split(ctx, source,
			filepath.Join(rc.cfg.SegmentsDir, rc.cfg.SegmentOutputPattern),
			filepath.Join(rc.cfg.SegmentsDir, rc.cfg.SegmentGlob),
		)
		if err != nil {
			return err
		}
		summary.Segments = len(segments)
		log.Info("segments created", zap.Int("count", len(segments)))

		var total entity.SamplingReport
		for _, res := range rc.orchestrator.Run(ctx, segments, rc.cfg.FramesDir) {
			total.Add(res.Report)
			if res.Err != nil {
				summary.SegmentFailures++
			}
		}
		summary.FramesWritten = total.FramesWritten
		summary.FrameFailures = total.Failures()
		log.Info("all segments sampled", zap.Duration("elapsed", time.Since(stageStart)))
		return ctx.Err()

	default:
		return fmt.Errorf("%w: unknown strategy %q", entity.ErrInvalidInput, strategy)
	}
}

// cleanup removes frames and segments left over from a previous run and
// returns the number of failures.
func (rc *RunController) cleanup(log *zap.Logger) int {
	files, err := pathset.DiscoverAll(
		filepath.Join(rc.cfg.FramesDir, "*.png"),
		filepath.Join(rc.cfg.SegmentsDir, rc.cfg.SegmentGlob),
	)
	if err != nil {
		log.Warn("cleanup discovery incomplete", zap.Error(err))
	}

	batch := pathset.BulkDelete(files, log)
	if len(batch.Failed) > 0 {
		metrics.CleanupFailuresTotal.Add(float64(len(batch.Failed)))
		log.Error("encountered errors during file cleanup",
			zap.Int("errors", len(batch.Failed)),
			zap.Int("removed", batch.Removed()),
			zap.Error(batch.Err()),
		)
		return len(batch.Failed)
	}
	log.Info("previous files removed", zap.Int("count", batch.Removed()))
	return 0
}

func (rc *RunController) archive(ctx context.Context, summary *entity.RunSummary, log *zap.Logger) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "archive_frames")
	defer span.End()

	frames, err := pathset.Discover(filepath.Join(rc.cfg.FramesDir, "*.png"))
	if err != nil {
		return err
	}

	size, err := rc.archiver.CreateArchive(ctx, frames, rc.cfg.ArchivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	log.Info("frames archived", zap.String("path", rc.cfg.ArchivePath), zap.Int("frames", len(frames)), zap.Int64("bytes", size))

	if rc.storage == nil {
		return nil
	}

	f, err := os.Open(rc.cfg.ArchivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("%s/%s", summary.ID, filepath.Base(rc.cfg.ArchivePath))
	if err := rc.storage.UploadArchive(ctx, key, f, size); err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}
	summary.ArchiveKey = key
	log.Info("archive uploaded", zap.String("key", key))
	return nil
}

func (rc *RunController) publishSummary(ctx context.Context, summary *entity.RunSummary, log *zap.Logger) {
	if rc.publisher == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		log.Error("failed to encode run summary", zap.Error(err))
		return
	}
	if err := rc.publisher.PublishSummary(ctx, data); err != nil {
		log.Error("failed to publish run summary", zap.Error(err))
	}
}
