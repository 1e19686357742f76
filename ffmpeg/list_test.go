package ffmpeg

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteConcatListPreservesOrder(t *testing.T) {
	dir := t.TempDir()

	listPath, err := WriteConcatList([]string{"/tmp/a.mp4", "/tmp/b.mp4", "/tmp/c.mp4"}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	require.Equal(t, "file '/tmp/a.mp4'\nfile '/tmp/b.mp4'\nfile '/tmp/c.mp4'\n", string(data))
}

func TestWriteConcatListEscapesQuotes(t *testing.T) {
	dir := t.TempDir()

	listPath, err := WriteConcatList([]string{"/tmp/it's.mp4"}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(listPath)
	require.NoError(t, err)
	require.Equal(t, `file '/tmp/it'\''s.mp4'`+"\n", string(data))
}
