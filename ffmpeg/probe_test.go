package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const probeFixture = `{
	"streams": [
		{
			"codec_name": "h264",
			"codec_type": "video",
			"pix_fmt": "yuv420p",
			"width": 1080,
			"height": 1920,
			"avg_frame_rate": "30000/1001",
			"disposition": {"attached_pic": 0}
		},
		{
			"codec_name": "aac",
			"codec_type": "audio"
		}
	],
	"format": {
		"duration": "12.480000",
		"size": "6291456"
	}
}`

func TestParseProbeJSON(t *testing.T) {
	meta, err := ParseProbeJSON([]byte(probeFixture))
	require.NoError(t, err)

	require.Equal(t, 1080, meta.Width)
	require.Equal(t, 1920, meta.Height)
	require.Equal(t, "h264", meta.VideoCodec)
	require.Equal(t, "aac", meta.AudioCodec)
	require.Equal(t, "yuv420p", meta.PixelFormat)
	require.InDelta(t, 29.97, meta.FPS, 0.01)
	require.InDelta(t, 12.48, meta.Duration, 0.001)
	require.Equal(t, int64(6291456), meta.Size)
}

func TestParseProbeJSONNoVideoStream(t *testing.T) {
	_, err := ParseProbeJSON([]byte(`{
		"streams": [{"codec_name": "aac", "codec_type": "audio"}],
		"format": {"duration": "3.0", "size": "1024"}
	}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no video stream")
}

func TestParseProbeJSONSkipsCoverArt(t *testing.T) {
	meta, err := ParseProbeJSON([]byte(`{
		"streams": [
			{
				"codec_name": "mjpeg",
				"codec_type": "video",
				"width": 600,
				"height": 600,
				"disposition": {"attached_pic": 1}
			},
			{
				"codec_name": "h264",
				"codec_type": "video",
				"pix_fmt": "yuv420p",
				"width": 1920,
				"height": 1080,
				"avg_frame_rate": "25/1"
			},
			{"codec_name": "aac", "codec_type": "audio"}
		],
		"format": {"duration": "8.0", "size": "2048"}
	}`))
	require.NoError(t, err)
	require.Equal(t, "h264", meta.VideoCodec)
	require.Equal(t, 1920, meta.Width)
	require.InDelta(t, 25.0, meta.FPS, 0.001)
}

func TestParseProbeJSONMalformed(t *testing.T) {
	_, err := ParseProbeJSON([]byte("not json"))
	require.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"0/0", 0},
		{"", 0},
		{"24", 24},
	}
	for _, tc := range cases {
		require.InDelta(t, tc.want, parseFrameRate(tc.in), 0.0001, "input %q", tc.in)
	}
}
