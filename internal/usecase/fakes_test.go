package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/domain/port"
	"github.com/stretchr/testify/require"
)

// fakeSession yields `frames` synthetic frames whose pixels are all byte(index).
type fakeSession struct {
	width, height int
	fps           float64
	duration      float64
	frameCount    uint64
	frames        uint64
	failDecode    map[uint64]bool
	failSeek      map[uint64]bool
	// onDecode runs at the start of every DecodeNext with the current position.
	onDecode func(pos uint64)

	pos    uint64
	closed atomic.Int32
}

func (s *fakeSession) Size() (int, int)   { return s.width, s.height }
func (s *fakeSession) FrameRate() float64 { return s.fps }

func (s *fakeSession) Duration() (float64, error) { return s.duration, nil }

func (s *fakeSession) FrameCount() (uint64, error) {
	if s.frameCount == 0 {
		return 0, fmt.Errorf("frame count unavailable")
	}
	return s.frameCount, nil
}

func (s *fakeSession) SeekToFrame(_ context.Context, frame uint64) error {
	if s.failSeek[frame] || frame >= s.frames {
		return fmt.Errorf("%w: frame %d", entity.ErrSeekFailed, frame)
	}
	s.pos = frame
	return nil
}

func (s *fakeSession) DecodeNext(context.Context) (port.DecodedFrame, error) {
	if s.onDecode != nil {
		s.onDecode(s.pos)
	}
	if s.pos >= s.frames {
		return port.DecodedFrame{}, entity.ErrStreamExhausted
	}
	n := s.pos
	s.pos++
	if s.failDecode[n] {
		return port.DecodedFrame{}, fmt.Errorf("%w: corrupt frame %d", entity.ErrDecode, n)
	}
	pix := make([]byte, entity.RGBSize(s.width, s.height))
	for i := range pix {
		pix[i] = byte(n)
	}
	ts := 0.0
	if s.fps > 0 {
		ts = float64(n) / s.fps
	}
	return port.DecodedFrame{Timestamp: ts, Pixels: pix}, nil
}

func (s *fakeSession) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeDecoder struct {
	mu       sync.Mutex
	newSess  func(path string) *fakeSession
	openErr  error
	sessions []*fakeSession
	opened   atomic.Int32
}

func newFakeDecoder(newSess func(path string) *fakeSession) *fakeDecoder {
	return &fakeDecoder{newSess: newSess}
}

func (d *fakeDecoder) Open(_ context.Context, path string) (port.DecoderSession, error) {
	d.opened.Add(1)
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := d.newSess(path)
	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s, nil
}

type writtenFrame struct {
	width, height int
	first         byte
}

// fakeWriter records writes in memory. Paths for which fail returns true are rejected.
type fakeWriter struct {
	mu      sync.Mutex
	written map[string]writtenFrame
	writes  int
	fail    func(path string) bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{written: make(map[string]writtenFrame)}
}

func (w *fakeWriter) WriteRGB(width, height int, pixels []byte, path string) error {
	if len(pixels) != entity.RGBSize(width, height) {
		return entity.ErrBufferSizeMismatch
	}
	if w.fail != nil && w.fail(path) {
		return fmt.Errorf("%w: disk full", entity.ErrEncode)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	w.written[filepath.Base(path)] = writtenFrame{width: width, height: height, first: pixels[0]}
	return nil
}

func (w *fakeWriter) names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.written))
	for n := range w.written {
		names = append(names, n)
	}
	return names
}

type fakeSegmenter struct {
	count int
	err   error
}

func (f *fakeSegmenter) Split(_ context.Context, _, outputPattern, globPattern string) ([]entity.Segment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var segments []entity.Segment
	for i := 0; i < f.count; i++ {
		p := fmt.Sprintf(outputPattern, i)
		if err := os.WriteFile(p, []byte("segment"), 0o644); err != nil {
			return nil, err
		}
		segments = append(segments, entity.Segment{Path: p, Ordinal: i})
	}
	return segments, nil
}

type fakeStorage struct {
	key  string
	size int64
}

func (s *fakeStorage) UploadArchive(_ context.Context, key string, r io.Reader, size int64) error {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return err
	}
	s.key = key
	s.size = n
	return nil
}

type fakePublisher struct {
	msgs [][]byte
}

func (p *fakePublisher) PublishSummary(_ context.Context, msg []byte) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

// writeSource creates an empty placeholder so existence checks pass.
func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	return p
}

func mkdir(path string) error {
	return os.MkdirAll(path, 0o755)
}
