package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prime3679/family-os-sub001/internal/archive"
	"github.com/prime3679/family-os-sub001/internal/auth"
	"github.com/prime3679/family-os-sub001/internal/ritual"
	"github.com/prime3679/family-os-sub001/internal/schedule"
	"github.com/prime3679/family-os-sub001/internal/week"
)

func authContext(r *http.Request, w http.ResponseWriter) (auth.Context, bool) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return ac, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parseWeekParam(r *http.Request, w http.ResponseWriter) (week.Key, bool) {
	wk, err := week.Parse(r.PathValue("week"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "week must be a Monday in YYYY-MM-DD format"})
		return "", false
	}
	return wk, true
}

// respondError maps engine errors onto HTTP statuses. Anything
// unrecognized is logged and surfaces as a generic 500.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ritual.ErrInvalidInput), errors.Is(err, schedule.ErrInvalidEntry):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ritual.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ritual.ErrConcurrentSync), errors.Is(err, archive.ErrWeekIncomplete):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, archive.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
