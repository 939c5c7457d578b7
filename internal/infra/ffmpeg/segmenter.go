package ffmpeg

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/infra/pathset"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

// Segmenter stream-copies a source video into fixed-duration segments.
type Segmenter struct {
	segmentTime int
	logger      *zap.Logger
}

func NewSegmenter(segmentTime int, logger *zap.Logger) *Segmenter {
	return &Segmenter{segmentTime: segmentTime, logger: logger}
}

// Split runs ffmpeg's segment muxer synchronously and returns the files matched
// by globPattern afterwards, in enumeration order. outputPattern must contain a
// printf-style counter such as %09d.
func (sg *Segmenter) Split(ctx context.Context, source, outputPattern, globPattern string) ([]entity.Segment, error) {
	args := sg.args(source, outputPattern)
	sg.logger.Info("starting ffmpeg segmenting process",
		zap.String("source", source),
		zap.Int("segment_time", sg.segmentTime),
		zap.String("output_pattern", outputPattern),
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		sg.logger.Debug("ffmpeg output", zap.String("output", strings.TrimSpace(string(output))))
	}
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &entity.SegmentationError{ExitCode: code, Err: err}
	}

	paths, err := pathset.Discover(globPattern)
	if err != nil {
		return nil, err
	}

	segments := make([]entity.Segment, len(paths))
	for i, p := range paths {
		segments[i] = entity.Segment{Path: p, Ordinal: i}
	}

	sg.logger.Info("video split into segments", zap.Int("count", len(segments)))
	return segments, nil
}

func (sg *Segmenter) args(source, outputPattern string) []string {
	return ffmpeggo.Input(source, ffmpeggo.KwArgs{"v": "quiet"}).
		Output(outputPattern, ffmpeggo.KwArgs{
			"c":                "copy",
			"map":              "0",
			"segment_time":     sg.segmentTime,
			"f":                "segment",
			"reset_timestamps": 1,
		}).
		GetArgs()
}
