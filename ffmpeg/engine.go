// Package ffmpeg wraps the external ffmpeg/ffprobe binaries behind a
// narrow capability interface so the pipeline can be exercised in tests
// without spawning subprocesses.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"

	"clipstitch/models"
)

// Engine is the capability surface the job orchestrator depends on.
type Engine interface {
	// Probe inspects a local media file and returns its properties.
	// Read-only, no side effects.
	Probe(ctx context.Context, path string) (models.ClipMeta, error)

	// Transcode re-encodes inputPath to outputPath so the result
	// matches spec exactly.
	Transcode(ctx context.Context, inputPath, outputPath string, spec models.TargetSpec) error

	// Concat splices the files named in listFile into outputPath
	// without re-encoding.
	Concat(ctx context.Context, listFile, outputPath string) error
}

// CLI is the real Engine backed by the ffmpeg and ffprobe binaries.
type CLI struct {
	FFmpegBin  string
	FFprobeBin string
}

// New returns a CLI engine using the binaries found on PATH.
func New() *CLI {
	return &CLI{FFmpegBin: "ffmpeg", FFprobeBin: "ffprobe"}
}

// Available verifies both binaries exist, mirroring the startup check
// the deployment relies on before accepting work.
func (c *CLI) Available() error {
	if _, err := exec.LookPath(c.FFmpegBin); err != nil {
		return fmt.Errorf("ffmpeg binary not found: %w", err)
	}
	if _, err := exec.LookPath(c.FFprobeBin); err != nil {
		return fmt.Errorf("ffprobe binary not found: %w", err)
	}
	return nil
}

// Transcode runs ffmpeg with the normalization argument set for spec.
func (c *CLI) Transcode(ctx context.Context, inputPath, outputPath string, spec models.TargetSpec) error {
	args := TranscodeArgs(inputPath, outputPath, spec)
	if err := run(ctx, c.FFmpegBin, args); err != nil {
		return fmt.Errorf("transcode %q: %w", inputPath, err)
	}
	return nil
}

// Concat runs ffmpeg's concat demuxer over listFile with stream copy.
func (c *CLI) Concat(ctx context.Context, listFile, outputPath string) error {
	args := ConcatArgs(listFile, outputPath)
	if err := run(ctx, c.FFmpegBin, args); err != nil {
		return fmt.Errorf("concat %q: %w", listFile, err)
	}
	return nil
}
