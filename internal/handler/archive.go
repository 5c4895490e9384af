package handler

import (
	"log/slog"
	"net/http"

	"github.com/prime3679/family-os-sub001/internal/archive"
	"github.com/prime3679/family-os-sub001/internal/store"
)

type ArchiveHandler struct {
	manager  *archive.Manager
	archives *store.ArchiveStore
	logger   *slog.Logger
}

func NewArchiveHandler(m *archive.Manager, as *store.ArchiveStore, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{manager: m, archives: as, logger: logger}
}

// Create seals the completed week into an encrypted object and uploads
// it. Re-archiving a week overwrites the previous object.
func (h *ArchiveHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	record, err := h.manager.ArchiveWeek(r.Context(), ac.HouseholdID, wk)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// Get returns the archive record for the week, or 404 when the week
// was never archived.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	record, err := h.archives.Get(ac.HouseholdID, wk)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "week has not been archived"})
		return
	}

	writeJSON(w, http.StatusOK, record)
}
