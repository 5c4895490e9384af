package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/schedule"
	"github.com/prime3679/family-os-sub001/internal/store"
	ws "github.com/prime3679/family-os-sub001/internal/websocket"
)

type CalendarHandler struct {
	events *store.WeekEventStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewCalendarHandler(es *store.WeekEventStore, hub *ws.Hub, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{events: es, hub: hub, logger: logger}
}

type eventRequest struct {
	Day             string `json:"day"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Owner           string `json:"owner"`
	Category        string `json:"category"`
	Title           string `json:"title"`
	Calendar        string `json:"calendar"`
}

// normalize validates the request through the analyzer's entry rules
// and returns the canonical form ready for storage.
func (req eventRequest) normalize() (schedule.Event, error) {
	return schedule.Normalize(schedule.RawEntry{
		Day:             req.Day,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
		Owner:           req.Owner,
		Category:        req.Category,
		Title:           req.Title,
		Calendar:        req.Calendar,
	})
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	events, err := h.events.ListWeek(ac.HouseholdID, wk)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if events == nil {
		events = []model.WeekEvent{}
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	ev, err := req.normalize()
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	event, err := h.events.Create(ac.HouseholdID, wk,
		string(ev.Day), ev.Time, ev.End-ev.Start,
		string(ev.Owner), string(ev.Category), ev.Title, ev.Calendar)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, ws.NewMessage("calendar_event", "created", event.ID,
		map[string]any{"week": event.Week}))
	writeJSON(w, http.StatusCreated, event)
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.events.GetByID(id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if existing == nil || existing.HouseholdID != ac.HouseholdID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	ev, err := req.normalize()
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	event, err := h.events.Update(id,
		string(ev.Day), ev.Time, ev.End-ev.Start,
		string(ev.Owner), string(ev.Category), ev.Title, ev.Calendar)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, ws.NewMessage("calendar_event", "updated", event.ID,
		map[string]any{"week": event.Week}))
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.events.GetByID(id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if existing == nil || existing.HouseholdID != ac.HouseholdID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return
	}

	if err := h.events.Delete(id); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(ac.HouseholdID, ws.NewMessage("calendar_event", "deleted", id,
		map[string]any{"week": existing.Week}))
	w.WriteHeader(http.StatusNoContent)
}

type importRequest struct {
	Calendar string         `json:"calendar"`
	Entries  []eventRequest `json:"entries"`
}

// Import replaces one calendar source's entries for the week. Events
// from other sources are untouched; one bad entry rejects the batch.
func (h *CalendarHandler) Import(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(r, w)
	if !ok {
		return
	}
	wk, ok := parseWeekParam(r, w)
	if !ok {
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Calendar == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "calendar is required"})
		return
	}

	rows := make([]model.WeekEvent, 0, len(req.Entries))
	for _, entry := range req.Entries {
		ev, err := entry.normalize()
		if err != nil {
			respondError(w, h.logger, err)
			return
		}
		rows = append(rows, model.WeekEvent{
			Day:             string(ev.Day),
			Time:            ev.Time,
			DurationMinutes: ev.End - ev.Start,
			Owner:           string(ev.Owner),
			Category:        string(ev.Category),
			Title:           ev.Title,
		})
	}

	events, err := h.events.ReplaceCalendar(ac.HouseholdID, wk, req.Calendar, rows)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if events == nil {
		events = []model.WeekEvent{}
	}

	h.hub.Broadcast(ac.HouseholdID, ws.NewMessage("calendar_event", "imported", 0,
		map[string]any{"week": string(wk), "calendar": req.Calendar, "count": len(events)}))
	writeJSON(w, http.StatusOK, events)
}
