package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clipstitch/logger"
)

// JobStatus looks a finished job up by ID, checking completed records
// before failed ones.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	completed, err := a.Records.GetCompleted(id)
	if err != nil {
		logger.Errorf("Failed to read completed record %s: %v", id, err)
		a.jsonError(w, http.StatusInternalServerError, "internal", "record store read failed")
		return
	}
	if completed != nil {
		a.json(w, http.StatusOK, map[string]interface{}{
			"status": "completed",
			"job":    completed,
		})
		return
	}

	failed, err := a.Records.GetFailed(id)
	if err != nil {
		logger.Errorf("Failed to read failed record %s: %v", id, err)
		a.jsonError(w, http.StatusInternalServerError, "internal", "record store read failed")
		return
	}
	if failed != nil {
		a.json(w, http.StatusOK, map[string]interface{}{
			"status": "failed",
			"job":    failed,
		})
		return
	}

	a.jsonError(w, http.StatusNotFound, "not_found", "no record for job "+id)
}

// ListCompleted returns every completed job record.
func (a *App) ListCompleted(w http.ResponseWriter, r *http.Request) {
	recs, err := a.Records.ListCompleted()
	if err != nil {
		logger.Errorf("Failed to list completed records: %v", err)
		a.jsonError(w, http.StatusInternalServerError, "internal", "record store read failed")
		return
	}
	a.json(w, http.StatusOK, map[string]interface{}{
		"count": len(recs),
		"jobs":  recs,
	})
}

// ListFailed returns every failed job record.
func (a *App) ListFailed(w http.ResponseWriter, r *http.Request) {
	recs, err := a.Records.ListFailed()
	if err != nil {
		logger.Errorf("Failed to list failed records: %v", err)
		a.jsonError(w, http.StatusInternalServerError, "internal", "record store read failed")
		return
	}
	a.json(w, http.StatusOK, map[string]interface{}{
		"count": len(recs),
		"jobs":  recs,
	})
}
