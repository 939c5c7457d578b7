package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/domain/port"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Decoder opens video sources by probing them with ffprobe and streaming
// packed RGB24 frames out of an ffmpeg child process.
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) Open(ctx context.Context, path string) (port.DecoderSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := probe(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", entity.ErrCannotOpen, path, err)
	}

	d.logger.Debug("video source opened",
		zap.String("path", path),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("fps", info.FrameRate),
		zap.Float64("duration", info.Duration),
	)

	return &session{
		path:   path,
		info:   info,
		buf:    make([]byte, entity.RGBSize(info.Width, info.Height)),
		logger: d.logger.With(zap.String("source", path)),
	}, nil
}

type process struct {
	cmd        *exec.Cmd
	stdout     *bufio.Reader
	stderrDone chan struct{}
}

type session struct {
	path   string
	info   StreamInfo
	buf    []byte
	logger *zap.Logger

	proc      *process
	offset    float64
	read      uint64
	exhausted bool
}

func (s *session) Size() (int, int) { return s.info.Width, s.info.Height }

func (s *session) FrameRate() float64 { return s.info.FrameRate }

func (s *session) Duration() (float64, error) { return s.info.Duration, nil }

func (s *session) FrameCount() (uint64, error) {
	if s.info.FrameCount == 0 {
		return 0, fmt.Errorf("frame count not reported for %s", s.path)
	}
	return s.info.FrameCount, nil
}

// SeekToFrame restarts decoding at the timestamp of the given frame index.
func (s *session) SeekToFrame(ctx context.Context, frame uint64) error {
	if s.info.FrameRate <= 0 {
		return fmt.Errorf("%w: unknown frame rate", entity.ErrSeekFailed)
	}
	target := float64(frame) / s.info.FrameRate
	if s.info.Duration >= 0 && target > s.info.Duration {
		return fmt.Errorf("%w: frame %d (%.3fs) is past the end (%.3fs)",
			entity.ErrSeekFailed, frame, target, s.info.Duration)
	}

	_ = s.stop(true)
	s.offset = target
	s.read = 0
	s.exhausted = false

	if err := s.start(ctx); err != nil {
		s.exhausted = true
		return fmt.Errorf("%w: frame %d: %v", entity.ErrSeekFailed, frame, err)
	}
	return nil
}

func (s *session) DecodeNext(ctx context.Context) (port.DecodedFrame, error) {
	if s.exhausted {
		return port.DecodedFrame{}, entity.ErrStreamExhausted
	}
	if s.proc == nil {
		if err := s.start(ctx); err != nil {
			s.exhausted = true
			return port.DecodedFrame{}, fmt.Errorf("%w: %v", entity.ErrDecode, err)
		}
	}

	_, err := io.ReadFull(s.proc.stdout, s.buf)
	switch {
	case err == nil:
		frame := port.DecodedFrame{Timestamp: s.timestamp(), Pixels: s.buf}
		s.read++
		return frame, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.read++
		return port.DecodedFrame{}, fmt.Errorf("%w: truncated frame at %.3fs", entity.ErrDecode, s.timestamp())
	case errors.Is(err, io.EOF):
		waitErr := s.stop(false)
		s.exhausted = true
		if waitErr != nil {
			// Killed or crashed: the stream did not end cleanly.
			return port.DecodedFrame{}, fmt.Errorf("%w: ffmpeg exited after %d frames: %w", entity.ErrDecode, s.read, waitErr)
		}
		return port.DecodedFrame{}, entity.ErrStreamExhausted
	default:
		_ = s.stop(true)
		s.exhausted = true
		return port.DecodedFrame{}, fmt.Errorf("%w: read frame: %v", entity.ErrDecode, err)
	}
}

func (s *session) Close() error {
	return s.stop(true)
}

func (s *session) timestamp() float64 {
	if s.info.FrameRate <= 0 {
		return s.offset
	}
	return s.offset + float64(s.read)/s.info.FrameRate
}

func (s *session) start(ctx context.Context) error {
	in := ffmpeggo.KwArgs{"v": "error"}
	if s.offset > 0 {
		in["ss"] = strconv.FormatFloat(s.offset, 'f', 6, 64)
	}
	args := ffmpeggo.Input(s.path, in).
		Output("pipe:", ffmpeggo.KwArgs{
			"map":     "0:v:0",
			"format":  "rawvideo",
			"pix_fmt": "rgb24",
		}).
		GetArgs()

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		pipeLines(stderr, s.logger, zapcore.WarnLevel)
	}()

	s.proc = &process{
		cmd:        cmd,
		stdout:     bufio.NewReaderSize(stdout, 1<<16),
		stderrDone: done,
	}
	return nil
}

func (s *session) stop(kill bool) error {
	if s.proc == nil {
		return nil
	}
	p := s.proc
	s.proc = nil

	if kill && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	<-p.stderrDone
	err := p.cmd.Wait()
	if kill {
		return nil
	}
	return err
}
