package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 1080, cfg.TargetWidth)
	require.Equal(t, 1920, cfg.TargetHeight)
	require.Equal(t, 30, cfg.TargetFPS)
	require.Equal(t, "4000k", cfg.TargetVideoBitrate)
	require.Equal(t, "128k", cfg.TargetAudioBitrate)
	require.Equal(t, ScaleLetterbox, cfg.ScaleMode)
	require.False(t, cfg.UploadByDefault)
	require.Equal(t, 4, cfg.FetchConcurrency)
	require.Equal(t, 1, cfg.TranscodeConcurrency)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TARGET_WIDTH", "720")
	t.Setenv("TARGET_HEIGHT", "1280")
	t.Setenv("SCALE_MODE", "crop")
	t.Setenv("UPLOAD_BY_DEFAULT", "true")
	t.Setenv("FETCH_RETRIES", "5")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, 720, cfg.TargetWidth)
	require.Equal(t, 1280, cfg.TargetHeight)
	require.Equal(t, ScaleCrop, cfg.ScaleMode)
	require.True(t, cfg.UploadByDefault)
	require.Equal(t, 5, cfg.FetchRetries)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero width", "TARGET_WIDTH", "0"},
		{"negative fps", "TARGET_FPS", "-1"},
		{"unknown scale mode", "SCALE_MODE", "stretch"},
		{"zero fetch concurrency", "FETCH_CONCURRENCY", "0"},
		{"zero transcode concurrency", "TRANSCODE_CONCURRENCY", "0"},
		{"zero max jobs", "MAX_CONCURRENT_JOBS", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestOutcomeDBPath(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/clipstitch"}
	require.Equal(t, "/var/lib/clipstitch/completed.db", cfg.OutcomeDBPath("completed"))
}
