// Package httpapi exposes the REST surface: search, tech message and
// device CRUD, Excel imports, and login. Every route except login sits
// behind bearer token auth.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fleetdesk/fleetdesk/internal/engine"
	"github.com/fleetdesk/fleetdesk/internal/eventbus"
	"github.com/fleetdesk/fleetdesk/internal/models"
	"github.com/fleetdesk/fleetdesk/internal/store"
)

// TokenValidator resolves bearer tokens and handles login/logout.
// Satisfied by auth.Service; tests substitute a stub.
type TokenValidator interface {
	Login(ctx context.Context, username string, password string) (*models.Session, error)
	Logout(ctx context.Context, token string) error
	Validate(ctx context.Context, token string) (*models.Session, error)
}

// CategoryCache is the optional Redis-backed category list cache.
type CategoryCache interface {
	GetCachedCategoryList(ctx context.Context) ([]string, error)
	CacheCategoryList(ctx context.Context, categories []string, ttl time.Duration) error
	InvalidateCategoryList(ctx context.Context) error
}

// CatalogPublisher fans catalog writes out to other instances.
type CatalogPublisher interface {
	PublishCatalogChanged(event eventbus.CatalogChangedEvent) error
}

type Server struct {
	store      store.Store
	searcher   *engine.Searcher
	auth       TokenValidator
	cache      CategoryCache
	publisher  CatalogPublisher
	httpServer *http.Server // Store server instance for graceful shutdown
}

func NewServer(st store.Store, searcher *engine.Searcher, auth TokenValidator) *Server {
	return &Server{
		store:    st,
		searcher: searcher,
		auth:     auth,
	}
}

// SetCategoryCache wires the optional Redis category cache.
func (s *Server) SetCategoryCache(cache CategoryCache) {
	s.cache = cache
}

// SetPublisher wires the optional catalog change publisher.
func (s *Server) SetPublisher(publisher CatalogPublisher) {
	s.publisher = publisher
}

func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	log.Printf("HTTP Server listening on: %s", addr)
	return s.httpServer.ListenAndServe()
}

// Handler builds the full route table. Exposed so tests can drive the
// server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.requireAuth(s.handleLogout))

	mux.HandleFunc("POST /api/tech-messages/search", s.requireAuth(s.handleSearch))
	mux.HandleFunc("GET /api/tech-messages/categories", s.requireAuth(s.handleCategories))
	mux.HandleFunc("GET /api/tech-messages", s.requireAuth(s.handleListTechMessages))
	mux.HandleFunc("POST /api/tech-messages", s.requireAdmin(s.handleCreateTechMessage))
	mux.HandleFunc("GET /api/tech-messages/{id}", s.requireAuth(s.handleGetTechMessage))
	mux.HandleFunc("PUT /api/tech-messages/{id}", s.requireAdmin(s.handleUpdateTechMessage))
	mux.HandleFunc("DELETE /api/tech-messages/{id}", s.requireAdmin(s.handleDeleteTechMessage))

	mux.HandleFunc("GET /api/devices", s.requireAuth(s.handleListDevices))
	mux.HandleFunc("POST /api/devices", s.requireAuth(s.handleCreateDevice))
	mux.HandleFunc("GET /api/devices/{id}", s.requireAuth(s.handleGetDevice))
	mux.HandleFunc("PUT /api/devices/{id}", s.requireAuth(s.handleUpdateDevice))
	mux.HandleFunc("DELETE /api/devices/{id}", s.requireAuth(s.handleDeleteDevice))

	mux.HandleFunc("POST /api/imports/excel", s.requireAdmin(s.handleImportExcel))
	mux.HandleFunc("GET /api/imports/search", s.requireAuth(s.handleImportSearch))

	return s.enableCORS(mux)
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	log.Printf("Stopping HTTP server...")

	// 5 second timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	log.Printf("HTTP server stopped successfully")
	return nil
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type contextKey string

const sessionKey contextKey = "session"

// requireAuth resolves the Authorization bearer token and stores the
// session on the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.auth.Validate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin is requireAuth plus an admin check for catalog writes.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r.Context())
		if session == nil || !session.Admin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}

func sessionFrom(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey).(*models.Session)
	return session
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
