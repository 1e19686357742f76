package models

import (
	"math"

	"clipstitch/config"
)

// TargetSpec is the encoding target every clip in a job must match before
// concatenation. It is resolved once per job from process defaults plus
// request overrides and never mutated afterwards.
type TargetSpec struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FPS          int    `json:"fps"`
	VideoBitrate string `json:"video_bitrate"`
	AudioBitrate string `json:"audio_bitrate"`
	PixelFormat  string `json:"pixel_format"`
	ScaleMode    string `json:"scale_mode"`
}

// DefaultTargetSpec builds the process-wide target spec from configuration.
func DefaultTargetSpec(cfg *config.Config) TargetSpec {
	return TargetSpec{
		Width:        cfg.TargetWidth,
		Height:       cfg.TargetHeight,
		FPS:          cfg.TargetFPS,
		VideoBitrate: cfg.TargetVideoBitrate,
		AudioBitrate: cfg.TargetAudioBitrate,
		PixelFormat:  cfg.TargetPixelFormat,
		ScaleMode:    cfg.ScaleMode,
	}
}

// FrameInterval returns the duration of one frame in seconds, the
// tolerance used when comparing the output duration against the sum of
// its inputs.
func (t TargetSpec) FrameInterval() float64 {
	if t.FPS <= 0 {
		return 0
	}
	return 1.0 / float64(t.FPS)
}

// ClipRequest is one remote clip in a job, in request order. Headers are
// optional per-clip fetch overrides for sources that need auth or
// referer checks.
type ClipRequest struct {
	Source  string            `json:"source"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Job is one accepted concatenation request. A Job owns every temporary
// artifact created on its behalf.
type Job struct {
	ID          string
	Clips       []ClipRequest
	OutputName  string
	Upload      bool
	Destination string
	Target      TargetSpec
	// SignedURLMinutes overrides the configured signed-URL expiry for
	// destinations that produce one; 0 means the process default.
	SignedURLMinutes int
}

// ClipMeta is the probed metadata of a local media file.
type ClipMeta struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	Duration    float64 `json:"duration"`
	VideoCodec  string  `json:"video_codec"`
	AudioCodec  string  `json:"audio_codec"`
	PixelFormat string  `json:"pixel_format"`
	Size        int64   `json:"size"`
}

// MatchesTarget reports whether a probed clip already satisfies the
// target spec exactly, meaning normalization can be skipped. The codec
// checks are strict: concatenation without re-encoding requires h264
// video and aac audio in every segment.
func (m ClipMeta) MatchesTarget(t TargetSpec) bool {
	return m.Width == t.Width &&
		m.Height == t.Height &&
		math.Abs(m.FPS-float64(t.FPS)) < 0.01 &&
		m.VideoCodec == "h264" &&
		m.AudioCodec == "aac" &&
		m.PixelFormat == t.PixelFormat
}

// ClipAsset is the local copy of one fetched clip plus its probed
// metadata. Index is the clip's position in the request list.
type ClipAsset struct {
	Index     int
	Source    string
	LocalPath string
	Meta      ClipMeta
}

// NormalizedClip is a clip re-encoded (or verified) to the job's target
// spec, ready for stream-level concatenation.
type NormalizedClip struct {
	Index     int
	LocalPath string
	Duration  float64
}

// OutputArtifact is the concatenated file produced by a job.
type OutputArtifact struct {
	LocalPath string  `json:"local_path,omitempty"`
	Duration  float64 `json:"duration"`
	Size      int64   `json:"size"`
}

// UploadResult reports the outcome of shipping the artifact to its
// destination. Err is non-empty when the transfer failed; a failed
// upload does not invalidate the artifact itself.
type UploadResult struct {
	Backend   string `json:"backend"`
	URI       string `json:"uri,omitempty"`
	SignedURL string `json:"signed_url,omitempty"`
	Err       string `json:"error,omitempty"`
}
