package routes

import (
	"net/http"

	"clipstitch/ffmpeg"
	"clipstitch/logger"
)

// Index lists the endpoints the service exposes.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]interface{}{
		"service": "clipstitch",
		"endpoints": map[string]string{
			"POST /concat":                 "concatenate clips into a single video",
			"GET /health":                  "liveness and store health",
			"GET /version":                 "build information",
			"GET /metrics":                 "prometheus metrics",
			"GET /jobs/{id}":               "outcome of a finished job",
			"GET /jobs/completed":          "list completed jobs",
			"GET /jobs/failed":             "list failed jobs",
			"POST /destinations":           "register an upload destination",
			"DELETE /destinations/{id}":    "remove an upload destination",
		},
	})
}

// Health reports process liveness plus the health of the record stores
// and the availability of the media toolchain.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	if err := a.Records.CheckHealth(); err != nil {
		logger.Errorf("Health check failed: %v", err)
		a.json(w, http.StatusServiceUnavailable, map[string]interface{}{
			"ok":     false,
			"detail": err.Error(),
		})
		return
	}
	ffmpegOK := true
	if cli, ok := a.Orch.Engine.(*ffmpeg.CLI); ok {
		ffmpegOK = cli.Available() == nil
	}
	a.json(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"ffmpeg": ffmpegOK,
	})
}
