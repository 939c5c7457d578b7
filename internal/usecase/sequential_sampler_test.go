package usecase

import (
	"context"
	"fmt"
	"image/png"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/infra/imagefile"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func blackClip(frames uint64) func(string) *fakeSession {
	return func(string) *fakeSession {
		return &fakeSession{width: 64, height: 64, fps: 30, duration: float64(frames) / 30, frames: frames}
	}
}

func TestSequentialSamplerKeepsEveryKth(t *testing.T) {
	for _, tc := range []struct{ frames, skip uint64 }{
		{0, 30}, {1, 30}, {29, 30}, {30, 30}, {31, 30}, {120, 30}, {121, 30}, {10, 1}, {10, 3}, {3600, 30},
	} {
		t.Run(fmt.Sprintf("L=%d/K=%d", tc.frames, tc.skip), func(t *testing.T) {
			dir := t.TempDir()
			src := writeSource(t, dir, "input.mp4")
			writer := newFakeWriter()
			s := NewSequentialSampler(newFakeDecoder(blackClip(tc.frames)), writer, zaptest.NewLogger(t),
				SequentialSamplerConfig{FrameSkip: int(tc.skip)})

			report, err := s.Sample(context.Background(), "full", src, dir)
			require.NoError(t, err)

			want := int((tc.frames + tc.skip - 1) / tc.skip)
			assert.Equal(t, want, report.FramesWritten)
			assert.Equal(t, int(tc.frames), report.FramesDecoded)
			assert.Len(t, writer.written, want)

			var indices []int
			for _, name := range writer.names() {
				var n int
				_, err := fmt.Sscanf(strings.TrimSuffix(name, ".png"), "full_%d", &n)
				require.NoError(t, err, name)
				indices = append(indices, n)
			}
			sort.Ints(indices)
			for i, n := range indices {
				assert.Equal(t, i*int(tc.skip), n)
			}
		})
	}
}

func TestSequentialSamplerWritesDecodablePNGs(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "input.mp4")
	framesDir := filepath.Join(dir, "frames")
	require.NoError(t, mkdir(framesDir))

	s := NewSequentialSampler(newFakeDecoder(blackClip(120)), imagefile.NewPNGWriter(png.BestSpeed),
		zaptest.NewLogger(t), SequentialSamplerConfig{FrameSkip: 30})

	report, err := s.Sample(context.Background(), entity.FullPrefix, src, framesDir)
	require.NoError(t, err)
	assert.Equal(t, 4, report.FramesWritten)
	assert.Positive(t, report.Elapsed)

	for _, n := range []int{0, 30, 60, 90} {
		img, err := imaging.Open(filepath.Join(framesDir, fmt.Sprintf("full_%d.png", n)))
		require.NoError(t, err)
		assert.Equal(t, 64, img.Bounds().Dx())
		assert.Equal(t, 64, img.Bounds().Dy())
	}
	assert.NoFileExists(t, filepath.Join(framesDir, "full_120.png"))
}

func TestSequentialSamplerSkipsCorruptFrames(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "input.mp4")
	writer := newFakeWriter()
	dec := newFakeDecoder(func(string) *fakeSession {
		return &fakeSession{width: 2, height: 2, fps: 30, frames: 90, failDecode: map[uint64]bool{30: true, 31: true}}
	})

	report, err := NewSequentialSampler(dec, writer, zaptest.NewLogger(t), SequentialSamplerConfig{FrameSkip: 30}).
		Sample(context.Background(), "full", src, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, report.DecodeErrors)
	assert.Equal(t, 2, report.FramesWritten)
	assert.ElementsMatch(t, []string{"full_0.png", "full_60.png"}, writer.names())
	assert.Equal(t, byte(60), writer.written["full_60.png"].first, "frame indices must count failed frames")
}

func TestSequentialSamplerContinuesAfterWriteFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "input.mp4")
	writer := newFakeWriter()
	writer.fail = func(p string) bool { return filepath.Base(p) == "full_30.png" }

	report, err := NewSequentialSampler(newFakeDecoder(blackClip(90)), writer, zaptest.NewLogger(t),
		SequentialSamplerConfig{FrameSkip: 30}).Sample(context.Background(), "full", src, dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.WriteErrors)
	assert.Equal(t, 2, report.FramesWritten)
	assert.Equal(t, 1, report.Failures())
}

func TestSequentialSamplerInvalidInput(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "input.mp4")
	dec := newFakeDecoder(blackClip(30))
	s := NewSequentialSampler(dec, newFakeWriter(), zaptest.NewLogger(t), SequentialSamplerConfig{FrameSkip: 30})

	_, err := s.Sample(context.Background(), "test", filepath.Join(dir, "nonexistent.mp4"), dir)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = s.Sample(context.Background(), "test", src, filepath.Join(dir, "nonexistent"))
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	assert.Zero(t, dec.opened.Load(), "decoder must not be opened when inputs are invalid")
}

func TestSequentialSamplerOpenFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "input.mp4")
	dec := newFakeDecoder(blackClip(30))
	dec.openErr = fmt.Errorf("%w: corrupt header", entity.ErrCannotOpen)

	_, err := NewSequentialSampler(dec, newFakeWriter(), zaptest.NewLogger(t), SequentialSamplerConfig{FrameSkip: 30}).
		Sample(context.Background(), "full", src, dir)
	assert.ErrorIs(t, err, entity.ErrCannotOpen)
}

func TestSequentialSamplerClosesSession(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "input.mp4")
	dec := newFakeDecoder(blackClip(10))

	_, err := NewSequentialSampler(dec, newFakeWriter(), zaptest.NewLogger(t), SequentialSamplerConfig{FrameSkip: 5}).
		Sample(context.Background(), "full", src, dir)
	require.NoError(t, err)

	require.Len(t, dec.sessions, 1)
	assert.Positive(t, dec.sessions[0].closed.Load())
}

func TestSequentialSamplerCancelled(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "input.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSequentialSampler(newFakeDecoder(blackClip(10)), newFakeWriter(), zaptest.NewLogger(t),
		SequentialSamplerConfig{FrameSkip: 5}).Sample(ctx, "full", src, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSequentialSamplerCancelledAtEndOfStream(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "input.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The decoder is torn down by cancellation and reports a clean end of stream.
	dec := newFakeDecoder(func(string) *fakeSession {
		s := blackClip(45)("")
		s.onDecode = func(pos uint64) {
			if pos == 45 {
				cancel()
			}
		}
		return s
	})
	writer := newFakeWriter()

	report, err := NewSequentialSampler(dec, writer, zaptest.NewLogger(t),
		SequentialSamplerConfig{FrameSkip: 30}).Sample(ctx, "full", src, dir)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, report.FramesWritten)
	assert.ElementsMatch(t, []string{"full_0.png", "full_30.png"}, writer.names())
}
