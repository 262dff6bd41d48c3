// Package server provides the HTTP server for the intelevision labelling service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/intelevision/internal/app"
	"github.com/ayusman/intelevision/internal/log"
	"github.com/ayusman/intelevision/internal/sampler"
	"github.com/ayusman/intelevision/internal/server/api"
	"github.com/ayusman/intelevision/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server represents the HTTP server for the intelevision application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	hub    *SnapshotHub
	http   *http.Server

	// Request contexts derive from baseCtx so Shutdown can end streams.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		var reloader api.LabelReloader
		if s.config.App != nil {
			reloader = s.config.App
		}
		labels := api.NewLabelsHandler(s.config.Store, reloader)
		s.mux.Handle("/api/labels", labels)
		s.mux.Handle("/api/labels/", labels)
	}

	if a := s.config.App; a != nil {
		s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/detection", s.handleDetection)
		s.mux.HandleFunc("/api/camera/switch", s.handleCameraSwitch)
		s.mux.Handle("/api/settings/", api.NewSettingsHandler(a))

		s.hub = NewSnapshotHub(a.Snapshots())
		s.mux.Handle("/api/snapshots", s.hub)
		s.mux.Handle("/api/stream", NewStreamHandler(a))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the snapshot websocket hub, or nil when no app is configured.
func (s *Server) Hub() *SnapshotHub {
	return s.hub
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["detector"] = s.config.App.Sampler().State()
	}

	writeJSON(w, http.StatusOK, response)
}

// handleSnapshot returns the current snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.App.Snapshots().Current())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.App.Status())
}

type detectionRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleDetection reads or toggles detection. Enabling before the detector
// has loaded answers 409.
func (s *Server) handleDetection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req detectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "Body must be {\"enabled\": bool}")
			return
		}
		if err := s.config.App.SetEnabled(*req.Enabled); err != nil {
			if errors.Is(err, sampler.ErrNotReady) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.config.App.IsEnabled()})
}

func (s *Server) handleCameraSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.config.App.SwitchCamera(); err != nil {
		log.Warn("camera switch failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.config.App.Status())
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown ends open streams, disconnects websocket clients and stops the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	return s.http.Shutdown(ctx)
}
