package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyfeed/internal/blob"
	"github.com/dukerupert/familyfeed/internal/config"
	"github.com/dukerupert/familyfeed/internal/handler"
	"github.com/dukerupert/familyfeed/internal/middleware"
	"github.com/dukerupert/familyfeed/internal/roster"
	"github.com/dukerupert/familyfeed/internal/store"
	ws "github.com/dukerupert/familyfeed/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	dir            *roster.Directory
	familyMemberH  *handler.FamilyMemberHandler
	authH          *handler.AuthHandler
	sessionStore   *store.SessionStore
	userStore      *store.UserStore
	rateLimiter    *middleware.RateLimiter
	uploadsEnabled bool
	allowedOrigins []string
	logger         *slog.Logger
}

// New wires the stores, synchronizers and handlers. blobs may be nil, in
// which case the birth chart routes are not registered.
func New(db *sql.DB, blobs *blob.S3Store, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyMemberStore := store.NewFamilyMemberStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.Auth.SessionTTL)

	// A nil *S3Store must not become a non-nil interface.
	var blobStore roster.BlobStore
	if blobs != nil {
		blobStore = blobs
	}

	dir := roster.NewDirectory(familyMemberStore, blobStore, cfg.RosterConfig(), logger.With("component", "roster"),
		func(ownerID string, action roster.Action, id string) {
			hub.BroadcastTo(ownerID, ws.NewMessage("family_member", string(action), id, nil))
		})

	return &Server{
		db:            db,
		hub:           hub,
		dir:           dir,
		familyMemberH: handler.NewFamilyMemberHandler(dir, cfg.Roster.MaxAssetBytes, logger.With("component", "family_member")),
		authH: handler.NewAuthHandler(userStore, sessionStore, dir, cfg.Server.SecureCookie,
			hub.Disconnect, logger.With("component", "auth")),
		sessionStore:   sessionStore,
		userStore:      userStore,
		rateLimiter:    middleware.NewRateLimiter(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow),
		uploadsEnabled: blobStore != nil,
		allowedOrigins: cfg.Server.AllowedOrigins,
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

// Hub returns the change feed hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	limited := middleware.RateLimit(s.rateLimiter, middleware.RealIP)
	outerMux.Handle("POST /api/signup", limited(http.HandlerFunc(s.authH.Signup)))
	outerMux.Handle("POST /api/login", limited(http.HandlerFunc(s.authH.Login)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "database unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("DELETE /api/account", s.authH.DeleteAccount)

	mux.HandleFunc("GET /api/family-members", s.familyMemberH.List)
	mux.HandleFunc("POST /api/family-members", s.familyMemberH.Create)
	mux.HandleFunc("GET /api/family-members/{id}", s.familyMemberH.Get)
	mux.HandleFunc("PUT /api/family-members/{id}", s.familyMemberH.Update)
	mux.HandleFunc("DELETE /api/family-members/{id}", s.familyMemberH.Delete)

	if s.uploadsEnabled {
		mux.HandleFunc("POST /api/family-members/{id}/birth-chart", s.familyMemberH.UploadBirthChart)
		mux.HandleFunc("PUT /api/family-members/{id}/birth-chart", s.familyMemberH.ReplaceBirthChart)
	}

	mux.HandleFunc("POST /api/family-members/{id}/important-dates", s.familyMemberH.AddImportantDate)
	mux.HandleFunc("DELETE /api/family-members/{id}/important-dates", s.familyMemberH.RemoveImportantDate)
	mux.HandleFunc("GET /api/family-members/{id}/upcoming", s.familyMemberH.MemberUpcoming)
	mux.HandleFunc("GET /api/upcoming", s.familyMemberH.Upcoming)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins, s.logger.With("component", "websocket")))
}
