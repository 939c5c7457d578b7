package port

import (
	"context"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
)

// DecodedFrame is a frame as produced by a DecoderSession. Pixels is only
// valid until the next call to DecodeNext.
type DecodedFrame struct {
	Timestamp float64
	Pixels    []byte
}

type Decoder interface {
	Open(ctx context.Context, path string) (DecoderSession, error)
}

// DecoderSession is one opened video source. DecodeNext returns an error
// wrapping entity.ErrStreamExhausted at end of stream. Duration is negative
// when the container does not report it.
type DecoderSession interface {
	Size() (width, height int)
	FrameRate() float64
	Duration() (float64, error)
	FrameCount() (uint64, error)
	SeekToFrame(ctx context.Context, frame uint64) error
	DecodeNext(ctx context.Context) (DecodedFrame, error)
	Close() error
}

type FrameWriter interface {
	WriteRGB(width, height int, pixels []byte, path string) error
}

type Segmenter interface {
	Split(ctx context.Context, source, outputPattern, globPattern string) ([]entity.Segment, error)
}
