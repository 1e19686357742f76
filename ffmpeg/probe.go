package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"clipstitch/models"
)

// Probe runs a single ffprobe JSON call against path and converts the
// result into clip metadata.
func (c *CLI) Probe(ctx context.Context, path string) (models.ClipMeta, error) {
	cmd := exec.CommandContext(ctx, c.FFprobeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return models.ClipMeta{}, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	return ParseProbeJSON(out)
}

// ParseProbeJSON converts raw ffprobe JSON output into clip metadata.
// Exported for testing without a real ffprobe binary.
func ParseProbeJSON(data []byte) (models.ClipMeta, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.ClipMeta{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildMeta(&raw)
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type ffprobeStream struct {
	CodecName    string         `json:"codec_name"`
	CodecType    string         `json:"codec_type"`
	PixFmt       string         `json:"pix_fmt"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	AvgFrameRate string         `json:"avg_frame_rate"`
	Disposition  map[string]int `json:"disposition"`
}

func buildMeta(raw *ffprobeOutput) (models.ClipMeta, error) {
	meta := models.ClipMeta{
		Duration: parseFloat(raw.Format.Duration),
		Size:     parseInt64(raw.Format.Size),
	}

	var haveVideo bool
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			if s.Disposition["attached_pic"] == 1 || haveVideo {
				continue
			}
			haveVideo = true
			meta.VideoCodec = s.CodecName
			meta.PixelFormat = s.PixFmt
			meta.Width = s.Width
			meta.Height = s.Height
			meta.FPS = parseFrameRate(s.AvgFrameRate)
		case "audio":
			if meta.AudioCodec == "" {
				meta.AudioCodec = s.CodecName
			}
		}
	}

	if !haveVideo {
		return models.ClipMeta{}, fmt.Errorf("no video stream found")
	}
	return meta, nil
}

// parseFrameRate converts ffprobe's "num/den" fraction into frames per
// second. "0/0" (unknown) and malformed values yield 0.
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
