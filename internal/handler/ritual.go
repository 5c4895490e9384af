package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prime3679/family-os-sub001/internal/ritual"
	ws "github.com/prime3679/family-os-sub001/internal/websocket"
)

type RitualHandler struct {
	svc    *ritual.Service
	hub    *ws.Hub
	logger *slog.Logger
}

func NewRitualHandler(svc *ritual.Service, hub *ws.Hub, logger *slog.Logger) *RitualHandler {
	return &RitualHandler{svc: svc, hub: hub, logger: logger}
}

// Analysis returns the conflict and balance report for the week's
// stored events. It is computed on the fly and never persisted.
func (h *RitualHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	analysis, err := h.svc.AnalyzeWeek(ac.HouseholdID, wk)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// State returns the caller's ritual progress for the week. Reading
// never creates a row; an unstarted week comes back with id 0.
func (h *RitualHandler) State(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	st, err := h.svc.State(ac.UserID, ac.HouseholdID, wk)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

type actionRequest struct {
	Action     string  `json:"action"`
	Step       *int    `json:"step,omitempty"`
	ItemID     string  `json:"item_id,omitempty"`
	ConflictID string  `json:"conflict_id,omitempty"`
	Resolution *string `json:"resolution,omitempty"`
}

func (req actionRequest) toAction() (ritual.Action, error) {
	switch req.Action {
	case "advance_step":
		if req.Step == nil {
			return nil, fmt.Errorf("%w: step is required for advance_step", ritual.ErrInvalidInput)
		}
		return ritual.AdvanceStep{Step: *req.Step}, nil
	case "retreat_step":
		if req.Step == nil {
			return nil, fmt.Errorf("%w: step is required for retreat_step", ritual.ErrInvalidInput)
		}
		return ritual.RetreatStep{Step: *req.Step}, nil
	case "toggle_prep_item":
		return ritual.TogglePrepItem{ItemID: req.ItemID}, nil
	case "set_decision":
		return ritual.SetDecision{ConflictID: req.ConflictID, Resolution: req.Resolution}, nil
	case "complete_ritual":
		return ritual.CompleteRitual{}, nil
	case "reset_week":
		return ritual.ResetWeek{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ritual.ErrInvalidInput, req.Action)
	}
}

// Actions applies one ritual action to the caller's week and returns
// the resulting state.
func (h *RitualHandler) Actions(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	action, err := req.toAction()
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	st, err := h.svc.Apply(ac.UserID, ac.HouseholdID, wk, action)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, ws.NewMessage("ritual_state", "updated", st.ID,
		map[string]any{"week": string(wk), "user_id": ac.UserID, "step": st.Step}))
	writeJSON(w, http.StatusOK, st)
}

// Partner returns a progress summary of the other parent's ritual,
// without exposing their decision contents.
func (h *RitualHandler) Partner(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	progress, err := h.svc.Partner(ac.UserID, ac.HouseholdID, wk)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// Compare returns the conflict-by-conflict decision comparison between
// the caller and their partner.
func (h *RitualHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	comparisons, err := h.svc.CompareWeek(ac.UserID, ac.HouseholdID, wk)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, comparisons)
}

type syncRequest struct {
	Resolution string `json:"resolution"`
}

// Sync records the agreed resolution for one conflict on both
// partners' states atomically.
func (h *RitualHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}
	conflictID := r.PathValue("conflict")

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	result, err := h.svc.SyncDecision(ac.UserID, ac.HouseholdID, wk, conflictID, req.Resolution)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, ws.NewMessage("ritual_decision", "synced", 0,
		map[string]any{"week": string(wk), "conflict_id": conflictID}))
	writeJSON(w, http.StatusOK, result)
}

// Status returns the household's derived week status.
func (h *RitualHandler) Status(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	status, err := h.svc.HouseholdStatus(ac.HouseholdID, wk)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"week": string(wk), "status": status})
}
