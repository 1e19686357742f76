package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteConcatList writes the concat-demuxer list file naming paths in
// order, one `file '<path>'` line each, into dir. Single quotes inside
// paths are escaped the way the demuxer expects ('\'').
func WriteConcatList(paths []string, dir string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		escaped := strings.ReplaceAll(p, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}

	listPath := filepath.Join(dir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return listPath, nil
}
