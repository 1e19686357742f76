package routes

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"clipstitch/clips"
	"clipstitch/destinations"
	"clipstitch/logger"
)

// PutDestination registers (or replaces) an upload destination.
func (a *App) PutDestination(w http.ResponseWriter, r *http.Request) {
	var dest destinations.Destination
	if err := json.NewDecoder(r.Body).Decode(&dest); err != nil {
		a.jsonError(w, http.StatusBadRequest, clips.KindValidation, "invalid or missing JSON body")
		return
	}
	if strings.TrimSpace(dest.ID) == "" {
		a.jsonError(w, http.StatusBadRequest, clips.KindValidation, "destination id is required")
		return
	}

	if err := a.Destinations.Put(dest); err != nil {
		a.jsonError(w, http.StatusBadRequest, clips.KindValidation, err.Error())
		return
	}

	logger.Infof("Registered destination %s (%s)", dest.ID, dest.Type)
	a.json(w, http.StatusOK, map[string]string{
		"status": "ok",
		"id":     dest.ID,
	})
}

// DeleteDestination removes a registered destination.
func (a *App) DeleteDestination(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := a.Destinations.Delete(id); err != nil {
		logger.Errorf("Failed to delete destination %s: %v", id, err)
		a.jsonError(w, http.StatusInternalServerError, "internal", "destination store write failed")
		return
	}

	logger.Infof("Deleted destination %s", id)
	a.json(w, http.StatusOK, map[string]string{
		"status": "ok",
		"id":     id,
	})
}
