package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prime3679/family-os-sub001/internal/archive"
	"github.com/prime3679/family-os-sub001/internal/handler"
	"github.com/prime3679/family-os-sub001/internal/middleware"
	"github.com/prime3679/family-os-sub001/internal/model"
	"github.com/prime3679/family-os-sub001/internal/ritual"
	"github.com/prime3679/family-os-sub001/internal/store"
	"github.com/prime3679/family-os-sub001/internal/week"
	ws "github.com/prime3679/family-os-sub001/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	calendarH      *handler.CalendarHandler
	ritualH        *handler.RitualHandler
	archiveH       *handler.ArchiveHandler
	sessionStore   *store.SessionStore
	householdStore *store.HouseholdStore
	rateLimiter    *middleware.RateLimiter
	archiveManager *archive.Manager
	logger         *slog.Logger
}

// statusNotifier pushes derived week-status transitions to the
// household's connected devices.
type statusNotifier struct {
	hub *ws.Hub
}

func (n *statusNotifier) NotifyStatus(householdID int64, wk week.Key, status model.WeekStatus) {
	n.hub.Broadcast(householdID, ws.NewMessage("ritual_status", "changed", 0,
		map[string]any{"week": string(wk), "status": string(status)}))
}

func New(db *sql.DB, archiveCfg archive.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	eventStore := store.NewWeekEventStore(db)
	stateStore := store.NewRitualStateStore(db)
	weekStore := store.NewHouseholdWeekStore(db)
	archiveStore := store.NewArchiveStore(db)

	ritualSvc := ritual.NewService(db, stateStore, weekStore, householdStore, userStore, eventStore,
		&statusNotifier{hub: hub}, logger.With("component", "ritual"))

	archiveMgr := archive.NewManager(archiveCfg, archiveStore, stateStore, householdStore, ritualSvc,
		logger.With("component", "archive"), func(s archive.Status) {
			if s.HouseholdID == 0 {
				return
			}
			hub.Broadcast(s.HouseholdID, ws.Message{
				Type:   "archive_status",
				Entity: "archive",
				Action: string(s.State),
				Extra: map[string]any{
					"week":        s.Week,
					"in_progress": s.InProgress,
					"error":       s.Error,
				},
			})
		})

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, householdStore, sessionStore, logger.With("component", "auth")),
		calendarH:      handler.NewCalendarHandler(eventStore, hub, logger.With("component", "calendar")),
		ritualH:        handler.NewRitualHandler(ritualSvc, hub, logger.With("component", "ritual_api")),
		archiveH:       handler.NewArchiveHandler(archiveMgr, archiveStore, logger.With("component", "archive_api")),
		sessionStore:   sessionStore,
		householdStore: householdStore,
		rateLimiter:    middleware.NewRateLimiter(),
		archiveManager: archiveMgr,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// ArchiveManager returns the archive manager.
func (s *Server) ArchiveManager() *archive.Manager {
	return s.archiveManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.Handle("POST /register", s.rateLimited(s.authH.Register))
	outerMux.Handle("POST /login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.householdStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, 10, time.Minute)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Calendar API routes
	mux.HandleFunc("GET /api/calendar/{week}/events", s.calendarH.List)
	mux.HandleFunc("POST /api/calendar/{week}/events", s.calendarH.Create)
	mux.HandleFunc("POST /api/calendar/{week}/import", s.calendarH.Import)
	mux.HandleFunc("PUT /api/calendar/events/{id}", s.calendarH.Update)
	mux.HandleFunc("DELETE /api/calendar/events/{id}", s.calendarH.Delete)

	// Ritual API routes
	mux.HandleFunc("GET /api/ritual/{week}/analysis", s.ritualH.Analysis)
	mux.HandleFunc("GET /api/ritual/{week}/state", s.ritualH.State)
	mux.HandleFunc("POST /api/ritual/{week}/actions", s.ritualH.Actions)
	mux.HandleFunc("GET /api/ritual/{week}/partner", s.ritualH.Partner)
	mux.HandleFunc("GET /api/ritual/{week}/decisions/compare", s.ritualH.Compare)
	mux.HandleFunc("POST /api/ritual/{week}/decisions/{conflict}/sync", s.ritualH.Sync)
	mux.HandleFunc("GET /api/ritual/{week}/status", s.ritualH.Status)

	// Archive API routes
	mux.HandleFunc("POST /api/ritual/{week}/archive", s.archiveH.Create)
	mux.HandleFunc("GET /api/ritual/{week}/archive", s.archiveH.Get)

	// WebSocket endpoint for live partner sync
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
