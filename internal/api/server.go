package api

import (
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/serroba/docpatch/internal/acl"
	"github.com/serroba/docpatch/internal/collab"
	"github.com/serroba/docpatch/internal/storage"
	"github.com/serroba/docpatch/internal/ws"
)

// Server handles HTTP requests for the document API.
type Server struct {
	manager   *collab.Manager
	store     storage.Store
	permStore acl.Store
	hub       *ws.Hub
	gatherer  prometheus.Gatherer
	upgrader  websocket.Upgrader
}

// ServerConfig holds configuration for creating a server.
type ServerConfig struct {
	Manager   *collab.Manager
	Store     storage.Store
	PermStore acl.Store
	Hub       *ws.Hub

	// Gatherer backs GET /metrics. The endpoint is not mounted when nil.
	Gatherer prometheus.Gatherer

	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	origins := slices.Clone(cfg.AllowedOrigins)

	return &Server{
		manager:   cfg.Manager,
		store:     cfg.Store,
		permStore: cfg.PermStore,
		hub:       cfg.Hub,
		gatherer:  cfg.Gatherer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}

				return slices.Contains(origins, r.Header.Get("Origin"))
			},
		},
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)

	authed.HandleFunc("/documents", s.handleCreateDocument).Methods(http.MethodPost)
	authed.HandleFunc("/documents/{id}", s.handleGetDocument).Methods(http.MethodGet)
	authed.HandleFunc("/documents/{id}", s.handleDeleteDocument).Methods(http.MethodDelete)

	authed.HandleFunc("/documents/{id}/operations", s.handleOperations).Methods(http.MethodPost)
	authed.HandleFunc("/documents/{id}/undo", s.handleUndo).Methods(http.MethodPost)
	authed.HandleFunc("/documents/{id}/redo", s.handleRedo).Methods(http.MethodPost)
	authed.HandleFunc("/documents/{id}/history", s.handleHistory).Methods(http.MethodGet)

	authed.HandleFunc("/documents/{id}/permissions", s.handleListPermissions).Methods(http.MethodGet)
	authed.HandleFunc("/documents/{id}/permissions/{userId}", s.handleGrantPermission).Methods(http.MethodPut)
	authed.HandleFunc("/documents/{id}/permissions/{userId}", s.handleRevokePermission).Methods(http.MethodDelete)

	authed.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	return r
}

// requirePermission checks action against the ACL store when one is configured.
func (s *Server) requirePermission(docID, userID string, action acl.Action) error {
	if s.permStore == nil {
		return nil
	}

	return acl.NewChecker(s.permStore).RequirePermission(docID, userID, action)
}
