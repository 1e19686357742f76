package ffmpeg

import (
	"fmt"
	"strconv"

	"clipstitch/config"
	"clipstitch/models"
)

// TranscodeArgs assembles the ffmpeg argument list that normalizes a
// clip to the target spec: rescale with aspect-ratio handling per the
// configured policy, retime to the target frame rate, and re-encode
// video and audio at the target bitrates. Audio is resampled to a fixed
// rate and layout so every normalized clip is splice-compatible.
func TranscodeArgs(input, output string, spec models.TargetSpec) []string {
	return []string{
		"-y",
		"-i", input,
		"-vf", filterChain(spec),
		"-r", strconv.Itoa(spec.FPS),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", spec.VideoBitrate,
		"-pix_fmt", spec.PixelFormat,
		"-c:a", "aac",
		"-b:a", spec.AudioBitrate,
		"-ar", "48000",
		"-ac", "2",
		"-movflags", "+faststart",
		output,
	}
}

// ConcatArgs assembles the concat-demuxer invocation. Stream copy only;
// normalization has already unified the inputs.
func ConcatArgs(listFile, output string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-movflags", "+faststart",
		output,
	}
}

// filterChain builds the scale filter for the target frame. Letterbox
// scales down and pads; crop scales up and trims the overflow.
func filterChain(spec models.TargetSpec) string {
	w, h := spec.Width, spec.Height
	switch spec.ScaleMode {
	case config.ScaleCrop:
		return fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			w, h, w, h)
	default:
		return fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
			w, h, w, h)
	}
}
