package routes

import "net/http"

// Build metadata, stamped via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Version reports the running build.
func (a *App) Version(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
	})
}
