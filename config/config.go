package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Scale modes for clips whose aspect ratio differs from the target.
const (
	ScaleLetterbox = "letterbox" // scale down and pad to the target frame
	ScaleCrop      = "crop"      // scale up and crop to the target frame
)

// Config holds everything the service reads from the environment at
// startup. It is loaded once in main and threaded explicitly into each
// job; pipeline stages never reach back into the environment.
type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	// DataDir holds the pebble record stores; ServeDir holds output
	// artifacts that are kept locally instead of uploaded.
	DataDir  string
	ServeDir string

	// JWTSecret enables bearer-token auth on mutating endpoints when
	// non-empty.
	JWTSecret string

	// Process-wide target encoding defaults, overridable per job.
	TargetWidth        int
	TargetHeight       int
	TargetFPS          int
	TargetVideoBitrate string
	TargetAudioBitrate string
	TargetPixelFormat  string
	ScaleMode          string

	UploadByDefault    bool
	GCSCredentialsFile string
	SignedURLExpiry    time.Duration

	FetchTimeout     time.Duration
	FetchRetries     int
	FetchConcurrency int

	// TranscodeConcurrency bounds ffmpeg subprocesses per host across
	// all jobs; MaxConcurrentJobs bounds jobs admitted at once.
	TranscodeConcurrency int
	MaxConcurrentJobs    int
}

// Load reads configuration from environment variables, applying defaults
// where values are absent and rejecting values that cannot work.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DataDir:              getEnv("CLIPSTITCH_DATA_DIR", "./data"),
		ServeDir:             getEnv("CLIPSTITCH_SERVE_DIR", "./serve"),
		JWTSecret:            os.Getenv("CLIPSTITCH_JWT_SECRET"),
		TargetWidth:          getEnvInt("TARGET_WIDTH", 1080),
		TargetHeight:         getEnvInt("TARGET_HEIGHT", 1920),
		TargetFPS:            getEnvInt("TARGET_FPS", 30),
		TargetVideoBitrate:   getEnv("TARGET_VIDEO_BITRATE", "4000k"),
		TargetAudioBitrate:   getEnv("TARGET_AUDIO_BITRATE", "128k"),
		TargetPixelFormat:    getEnv("TARGET_PIXEL_FORMAT", "yuv420p"),
		ScaleMode:            getEnv("SCALE_MODE", ScaleLetterbox),
		UploadByDefault:      getEnvBool("UPLOAD_BY_DEFAULT", false),
		GCSCredentialsFile:   os.Getenv("GCS_CREDENTIALS_FILE"),
		SignedURLExpiry:      time.Minute * time.Duration(getEnvInt("SIGNED_URL_EXPIRY_MINUTES", 60)),
		FetchTimeout:         time.Second * time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 120)),
		FetchRetries:         getEnvInt("FETCH_RETRIES", 3),
		FetchConcurrency:     getEnvInt("FETCH_CONCURRENCY", 4),
		TranscodeConcurrency: getEnvInt("TRANSCODE_CONCURRENCY", 1),
		MaxConcurrentJobs:    getEnvInt("MAX_CONCURRENT_JOBS", 2),
	}

	if cfg.TargetWidth <= 0 || cfg.TargetHeight <= 0 {
		return nil, fmt.Errorf("target resolution %dx%d is invalid", cfg.TargetWidth, cfg.TargetHeight)
	}
	if cfg.TargetFPS <= 0 {
		return nil, fmt.Errorf("target frame rate %d is invalid", cfg.TargetFPS)
	}
	if cfg.ScaleMode != ScaleLetterbox && cfg.ScaleMode != ScaleCrop {
		return nil, fmt.Errorf("scale mode %q is not one of %q, %q", cfg.ScaleMode, ScaleLetterbox, ScaleCrop)
	}
	if cfg.FetchConcurrency < 1 {
		return nil, fmt.Errorf("fetch concurrency must be at least 1, got %d", cfg.FetchConcurrency)
	}
	if cfg.TranscodeConcurrency < 1 {
		return nil, fmt.Errorf("transcode concurrency must be at least 1, got %d", cfg.TranscodeConcurrency)
	}
	if cfg.MaxConcurrentJobs < 1 {
		return nil, fmt.Errorf("max concurrent jobs must be at least 1, got %d", cfg.MaxConcurrentJobs)
	}

	return cfg, nil
}

// OutcomeDBPath returns the path to the job outcome record store.
func (c *Config) OutcomeDBPath(name string) string {
	return filepath.Join(c.DataDir, name+".db")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
