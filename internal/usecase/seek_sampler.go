package usecase

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/domain/port"
	"github.com/RustedBytes/extract-frames/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SeekSampler decodes one frame per second of video by seeking, buffers the
// frames, then writes them out concurrently.
//
// Seeking is keyframe-bound and best effort, so output is not guaranteed to be
// exactly 1 fps. Output files are numbered by decode order: when a second
// fails to decode, later frames shift down and the numbering stays gap-free.
type SeekSampler struct {
	decoder      port.Decoder
	writer       port.FrameWriter
	writeWorkers int
	logger       *zap.Logger
}

type SeekSamplerConfig struct {
	WriteWorkers int
}

func NewSeekSampler(decoder port.Decoder, writer port.FrameWriter, logger *zap.Logger, cfg SeekSamplerConfig) *SeekSampler {
	workers := cfg.WriteWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &SeekSampler{
		decoder:      decoder,
		writer:       writer,
		writeWorkers: workers,
		logger:       logger,
	}
}

func (s *SeekSampler) Sample(ctx context.Context, videoPath, framesDir string) (entity.SamplingReport, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "SeekSampler.Sample")
	defer span.End()
	span.SetAttributes(attribute.String("sampler.source", videoPath))

	var report entity.SamplingReport

	if err := requireFile(videoPath); err != nil {
		return report, err
	}
	if err := requireDir(framesDir); err != nil {
		return report, err
	}

	start := time.Now()

	sess, err := s.decoder.Open(ctx, videoPath)
	if err != nil {
		return report, fmt.Errorf("failed to create decoder: %w", err)
	}
	defer sess.Close()

	metrics.ActiveSamplers.Inc()
	defer metrics.ActiveSamplers.Dec()

	width, height := sess.Size()
	fps := sess.FrameRate()
	duration := estimateDuration(sess, s.logger)

	s.logger.Info("seek sampling started",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Float64("fps", fps),
		zap.Float64("duration", duration),
	)

	frames, err := s.decodeSeconds(ctx, sess, duration, fps, width, height, &report)
	if err != nil {
		report.Elapsed = time.Since(start)
		return report, err
	}
	s.logger.Info("seek decoding finished",
		zap.Int("frames_decoded", len(frames)),
		zap.Duration("elapsed", time.Since(start)),
	)
	metrics.StageDuration.WithLabelValues("seek_decode").Observe(time.Since(start).Seconds())

	// The session is no longer needed; release the decoder before the write fan-out.
	_ = sess.Close()

	_, spanWrite := tracer.Start(ctx, "write_frames")
	writeStart := time.Now()
	written, failed := s.writeAll(frames, framesDir)
	spanWrite.End()

	report.FramesWritten = written
	report.WriteErrors = failed
	report.Elapsed = time.Since(start)
	metrics.StageDuration.WithLabelValues("seek_write").Observe(time.Since(writeStart).Seconds())

	s.logger.Info("seek frames saved",
		zap.Int("frames_written", written),
		zap.Int("write_errors", failed),
		zap.Duration("elapsed_saving", time.Since(writeStart)),
	)
	return report, nil
}

func (s *SeekSampler) decodeSeconds(
	ctx context.Context,
	sess port.DecoderSession,
	duration, fps float64,
	width, height int,
	report *entity.SamplingReport,
) ([]entity.SampledFrame, error) {
	seconds := uint64(math.Ceil(duration))
	step := uint64(math.Ceil(math.Max(fps, 0)))

	frames := make([]entity.SampledFrame, 0, seconds)
	for second := uint64(0); second < seconds; second++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := second * step
		if err := sess.SeekToFrame(ctx, target); err != nil {
			report.SeekErrors++
			metrics.FrameFailuresTotal.WithLabelValues("seek").Inc()
			s.logger.Error("error seeking to frame", zap.Uint64("second", second), zap.Uint64("frame", target), zap.Error(err))
			continue
		}
		s.logger.Debug("sought to frame", zap.Uint64("frame", target))

		frame, err := sess.DecodeNext(ctx)
		if err != nil {
			report.DecodeErrors++
			metrics.FrameFailuresTotal.WithLabelValues("decode").Inc()
			s.logger.Error("error decoding frame", zap.Uint64("second", second), zap.Error(err))
			continue
		}
		report.FramesDecoded++

		frames = append(frames, entity.SampledFrame{
			Index:     second,
			Timestamp: frame.Timestamp,
			Width:     width,
			Height:    height,
			Pixels:    bytes.Clone(frame.Pixels),
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

// writeAll writes frames concurrently as "<n>.png" where n is the position in frames.
func (s *SeekSampler) writeAll(frames []entity.SampledFrame, framesDir string) (int, int) {
	var written, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.writeWorkers)
	for n, f := range frames {
		g.Go(func() error {
			path := entity.FrameFilePath(framesDir, "", uint64(n))
			if err := s.writer.WriteRGB(f.Width, f.Height, f.Pixels, path); err != nil {
				failed.Add(1)
				metrics.FrameFailuresTotal.WithLabelValues("write").Inc()
				s.logger.Error("error saving image", zap.Int("n", n), zap.Uint64("second", f.Index), zap.Error(err))
				return nil
			}
			written.Add(1)
			metrics.FramesWrittenTotal.WithLabelValues(string(entity.StrategySeek)).Inc()
			return nil
		})
	}
	_ = g.Wait()

	return int(written.Load()), int(failed.Load())
}

// estimateDuration returns the reported duration, falling back to
// frame_count / frame_rate when the container does not report one.
func estimateDuration(sess port.DecoderSession, logger *zap.Logger) float64 {
	if d, err := sess.Duration(); err == nil && d >= 0 {
		return d
	}

	fps := sess.FrameRate()
	n, err := sess.FrameCount()
	if err != nil || fps <= 0 {
		logger.Warn("duration unavailable, treating as zero", zap.Error(err), zap.Float64("fps", fps))
		return 0
	}

	d := float64(n) / fps
	logger.Info("estimated duration from frame count", zap.Uint64("frame_count", n), zap.Float64("duration", d))
	return d
}
