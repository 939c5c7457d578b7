package entity

import (
	"fmt"
	"path/filepath"
)

// FullPrefix names frames sampled from an unsegmented source.
const FullPrefix = "full"

// SampledFrame is one decoded frame owned by a sampler until it is written.
type SampledFrame struct {
	Index     uint64
	Timestamp float64
	Width     int
	Height    int
	Pixels    []byte
}

// Segment is a stream-copied slice of the source video.
type Segment struct {
	Path    string
	Ordinal int
}

// Prefix is the output-name disambiguator for frames sampled from this segment.
func (s Segment) Prefix() string {
	return SegmentPrefix(s.Ordinal)
}

func SegmentPrefix(ordinal int) string {
	return fmt.Sprintf("segment-%d", ordinal)
}

// FrameFileName returns "<prefix>_<index>.png", or "<index>.png" for an empty prefix.
func FrameFileName(prefix string, index uint64) string {
	if prefix == "" {
		return fmt.Sprintf("%d.png", index)
	}
	return fmt.Sprintf("%s_%d.png", prefix, index)
}

func FrameFilePath(framesDir, prefix string, index uint64) string {
	return filepath.Join(framesDir, FrameFileName(prefix, index))
}

// RGBSize is the byte length of a packed RGB24 buffer of the given dimensions.
func RGBSize(width, height int) int {
	return width * height * 3
}
