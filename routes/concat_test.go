package routes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildJobDefaults(t *testing.T) {
	app := newTestApp(t, "")

	j, err := app.buildJob(&concatRequest{
		Clips: []clipEntry{{Source: "http://example.com/a.mp4"}},
	})
	require.NoError(t, err)

	require.NotEmpty(t, j.ID)
	require.Len(t, j.Clips, 1)
	require.False(t, j.Upload)
	require.True(t, strings.HasPrefix(j.OutputName, "concat_"))
	require.True(t, strings.HasSuffix(j.OutputName, ".mp4"))
	require.Equal(t, 1080, j.Target.Width)
	require.Equal(t, 30, j.Target.FPS)
}

func TestBuildJobForcesMP4Suffix(t *testing.T) {
	app := newTestApp(t, "")

	j, err := app.buildJob(&concatRequest{
		Clips:      []clipEntry{{Source: "http://example.com/a.mp4"}},
		OutputName: "final-cut",
	})
	require.NoError(t, err)
	require.Equal(t, "final-cut.mp4", j.OutputName)
}

func TestBuildJobLegacyAliases(t *testing.T) {
	app := newTestApp(t, "")

	j, err := app.buildJob(&concatRequest{
		InputVideos:                []string{"http://example.com/a.mp4", "http://example.com/b.mp4"},
		BucketName:                 "legacy-bucket",
		OutputFilename:             "merged.mp4",
		SignedURLExpirationMinutes: 15,
	})
	require.NoError(t, err)

	require.Len(t, j.Clips, 2)
	require.Equal(t, "http://example.com/b.mp4", j.Clips[1].Source)
	// Naming a bucket implies an upload for legacy callers.
	require.True(t, j.Upload)
	require.Equal(t, "legacy-bucket", j.Destination)
	require.Equal(t, "merged.mp4", j.OutputName)
	require.Equal(t, 15, j.SignedURLMinutes)
}

func TestBuildJobRejectsEmptySource(t *testing.T) {
	app := newTestApp(t, "")

	_, err := app.buildJob(&concatRequest{
		Clips: []clipEntry{{Source: "http://example.com/a.mp4"}, {Source: "  "}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "clip 1")
}

func TestBuildJobRejectsMalformedURL(t *testing.T) {
	app := newTestApp(t, "")

	for _, source := range []string{"not a url", "ftp://example.com/a.mp4", "/relative/path.mp4"} {
		_, err := app.buildJob(&concatRequest{
			Clips: []clipEntry{{Source: source}},
		})
		require.Error(t, err, "source %q", source)
	}
}

func TestBuildJobTargetOverrides(t *testing.T) {
	app := newTestApp(t, "")

	j, err := app.buildJob(&concatRequest{
		Clips: []clipEntry{{Source: "http://example.com/a.mp4"}},
		Target: &targetOverrides{
			Width:     720,
			Height:    1280,
			ScaleMode: "crop",
		},
	})
	require.NoError(t, err)

	require.Equal(t, 720, j.Target.Width)
	require.Equal(t, 1280, j.Target.Height)
	require.Equal(t, "crop", j.Target.ScaleMode)
	// Unset overrides keep process defaults.
	require.Equal(t, 30, j.Target.FPS)
	require.Equal(t, "4000k", j.Target.VideoBitrate)
}

func TestBuildJobRejectsUnknownScaleMode(t *testing.T) {
	app := newTestApp(t, "")

	_, err := app.buildJob(&concatRequest{
		Clips:  []clipEntry{{Source: "http://example.com/a.mp4"}},
		Target: &targetOverrides{ScaleMode: "stretch"},
	})
	require.Error(t, err)
}

func TestClipEntryAcceptsStringOrObject(t *testing.T) {
	var req concatRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"clips": [
			"http://example.com/plain.mp4",
			{"source": "http://example.com/auth.mp4", "headers": {"Authorization": "Bearer t"}}
		]
	}`), &req))

	require.Len(t, req.Clips, 2)
	require.Equal(t, "http://example.com/plain.mp4", req.Clips[0].Source)
	require.Equal(t, "http://example.com/auth.mp4", req.Clips[1].Source)
	require.Equal(t, "Bearer t", req.Clips[1].Headers["Authorization"])
}
