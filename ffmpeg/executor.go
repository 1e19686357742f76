package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// stderrTailBytes bounds how much diagnostic output is carried in an
// error. ffmpeg is chatty; the failure reason is almost always at the
// end.
const stderrTailBytes = 1024

// run executes the binary with stderr captured. On a non-zero exit the
// returned error includes the tail of stderr, which is the only useful
// diagnostic ffmpeg produces.
func run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", bin, ctx.Err())
		}
		return fmt.Errorf("%s: %w: %s", bin, err, stderrTail(stderr.String()))
	}
	return nil
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailBytes {
		s = s[len(s)-stderrTailBytes:]
	}
	return s
}
