package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/domain/port"
	"github.com/RustedBytes/extract-frames/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SequentialSampler decodes every frame in order and keeps every FrameSkip-th one.
type SequentialSampler struct {
	decoder   port.Decoder
	writer    port.FrameWriter
	frameSkip uint64
	logger    *zap.Logger
}

type SequentialSamplerConfig struct {
	FrameSkip int
}

func NewSequentialSampler(decoder port.Decoder, writer port.FrameWriter, logger *zap.Logger, cfg SequentialSamplerConfig) *SequentialSampler {
	return &SequentialSampler{
		decoder:   decoder,
		writer:    writer,
		frameSkip: uint64(max(cfg.FrameSkip, 1)),
		logger:    logger,
	}
}

// Sample writes "<prefix>_<n>.png" into framesDir for every decoded frame n
// with n mod FrameSkip == 0. Per-frame decode and write failures are logged
// and counted; only failing to start the pass returns an error.
func (s *SequentialSampler) Sample(ctx context.Context, prefix, videoPath, framesDir string) (entity.SamplingReport, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "SequentialSampler.Sample")
	defer span.End()
	span.SetAttributes(
		attribute.String("sampler.prefix", prefix),
		attribute.String("sampler.source", videoPath),
	)

	report := entity.SamplingReport{Prefix: prefix}

	if err := requireFile(videoPath); err != nil {
		return report, err
	}
	if err := requireDir(framesDir); err != nil {
		return report, err
	}

	start := time.Now()
	log := s.logger.With(zap.String("prefix", prefix))

	sess, err := s.decoder.Open(ctx, videoPath)
	if err != nil {
		return report, fmt.Errorf("failed to create decoder: %w", err)
	}
	defer sess.Close()

	metrics.ActiveSamplers.Inc()
	defer metrics.ActiveSamplers.Dec()

	width, height := sess.Size()
	log.Debug("decoder opened",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Float64("fps", sess.FrameRate()),
	)

	for n := uint64(0); ; n++ {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}

		frame, err := sess.DecodeNext(ctx)
		if err != nil {
			if errors.Is(err, entity.ErrStreamExhausted) {
				log.Info("decoding finished, stream exhausted", zap.Uint64("frames", n))
				break
			}
			report.DecodeErrors++
			metrics.FrameFailuresTotal.WithLabelValues("decode").Inc()
			log.Error("decoding failed", zap.Uint64("frame", n), zap.Error(err))
			continue
		}
		report.FramesDecoded++

		if n%s.frameSkip != 0 {
			continue
		}

		log.Debug("frame kept", zap.Uint64("frame", n), zap.Float64("time", frame.Timestamp))
		path := entity.FrameFilePath(framesDir, prefix, n)
		if err := s.writer.WriteRGB(width, height, frame.Pixels, path); err != nil {
			report.WriteErrors++
			metrics.FrameFailuresTotal.WithLabelValues("write").Inc()
			log.Error("failed to save frame", zap.String("path", path), zap.Error(err))
			continue
		}
		report.FramesWritten++
		metrics.FramesWrittenTotal.WithLabelValues(string(entity.StrategySequential)).Inc()
	}

	report.Elapsed = time.Since(start)
	// A cancelled decoder can end on a frame boundary and look exhausted.
	if err := ctx.Err(); err != nil {
		log.Warn("sampling pass interrupted", zap.Int("frames_written", report.FramesWritten), zap.Error(err))
		return report, err
	}
	log.Info("sampling pass finished",
		zap.Int("frames_written", report.FramesWritten),
		zap.Int("failures", report.Failures()),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}
