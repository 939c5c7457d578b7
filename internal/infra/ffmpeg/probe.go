package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// StreamInfo holds the intrinsic properties of the first video stream.
// Duration is -1 and FrameCount 0 when the container does not report them.
type StreamInfo struct {
	Width      int
	Height     int
	FrameRate  float64
	Duration   float64
	FrameCount uint64
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func probe(path string) (StreamInfo, error) {
	out, err := ffmpeggo.Probe(path)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(out)
}

func parseProbe(raw string) (StreamInfo, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return StreamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return StreamInfo{}, fmt.Errorf("video stream has invalid size %dx%d", s.Width, s.Height)
		}

		info := StreamInfo{
			Width:     s.Width,
			Height:    s.Height,
			FrameRate: parseRational(s.AvgFrameRate),
			Duration:  -1,
		}
		if info.FrameRate <= 0 {
			info.FrameRate = parseRational(s.RFrameRate)
		}
		if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
			info.Duration = d
		} else if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
			info.Duration = d
		}
		if n, err := strconv.ParseUint(s.NbFrames, 10, 64); err == nil {
			info.FrameCount = n
		}
		return info, nil
	}

	return StreamInfo{}, fmt.Errorf("no video stream found")
}

// parseRational parses ffprobe rates such as "30000/1001". It returns 0 for
// malformed input or a zero denominator.
func parseRational(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
