// Package imagefile persists packed RGB24 pixel buffers as PNG files.
package imagefile

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/disintegration/imaging"
)

type PNGWriter struct {
	compression png.CompressionLevel
}

func NewPNGWriter(compression png.CompressionLevel) *PNGWriter {
	return &PNGWriter{compression: compression}
}

// WriteRGB encodes pixels as a width x height PNG and writes it to path in a
// single write, replacing any existing file.
func (w *PNGWriter) WriteRGB(width, height int, pixels []byte, path string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", entity.ErrBufferSizeMismatch, width, height)
	}
	if want := entity.RGBSize(width, height); len(pixels) != want {
		return fmt.Errorf("%w: got %d bytes, want %d for %dx%d",
			entity.ErrBufferSizeMismatch, len(pixels), want, width, height)
	}

	img := rgbToNRGBA(width, height, pixels)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(w.compression)); err != nil {
		return fmt.Errorf("%w: encode %s: %v", entity.ErrEncode, path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", entity.ErrEncode, path, err)
	}
	return nil
}

func rgbToNRGBA(width, height int, rgb []byte) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(rgb); i, j = i+3, j+4 {
		img.Pix[j] = rgb[i]
		img.Pix[j+1] = rgb[i+1]
		img.Pix[j+2] = rgb[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
