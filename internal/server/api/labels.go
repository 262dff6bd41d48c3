// Package api provides HTTP API handlers for the intelevision labelling service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/intelevision/internal/log"
	"github.com/ayusman/intelevision/internal/store"
)

// LabelReloader applies changed category overrides to the running pipeline.
type LabelReloader interface {
	ReloadLabels() error
}

// LabelsHandler handles HTTP requests for category label overrides.
type LabelsHandler struct {
	store    *store.Store
	reloader LabelReloader
}

// NewLabelsHandler creates a new LabelsHandler. reloader may be nil when no
// pipeline is running.
func NewLabelsHandler(s *store.Store, reloader LabelReloader) *LabelsHandler {
	return &LabelsHandler{store: s, reloader: reloader}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *LabelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/labels or /api/labels/{category}
	path := strings.TrimPrefix(r.URL.Path, "/api/labels")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	category := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, category)
	case http.MethodPut:
		h.update(w, r, category)
	case http.MethodDelete:
		h.delete(w, r, category)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createLabelRequest struct {
	Category string `json:"category"`
	Label    string `json:"label"`
}

type updateLabelRequest struct {
	Label string `json:"label"`
}

type labelResponse struct {
	Category  string `json:"category"`
	Label     string `json:"label"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listLabelsResponse struct {
	Labels []labelResponse `json:"labels"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(c *store.CategoryLabel) labelResponse {
	return labelResponse{
		Category:  c.Category,
		Label:     c.Label,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: c.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *LabelsHandler) reload() {
	if h.reloader == nil {
		return
	}
	if err := h.reloader.ReloadLabels(); err != nil {
		log.Warn("failed to reload category labels", "error", err)
	}
}

// list handles GET /api/labels.
func (h *LabelsHandler) list(w http.ResponseWriter, r *http.Request) {
	labels, err := h.store.CategoryLabels().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list labels")
		return
	}

	response := listLabelsResponse{
		Labels: make([]labelResponse, 0, len(labels)),
	}
	for _, c := range labels {
		response.Labels = append(response.Labels, toResponse(c))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/labels/{category}.
func (h *LabelsHandler) get(w http.ResponseWriter, r *http.Request, category string) {
	c, err := h.store.CategoryLabels().Get(category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Label not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get label")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(c))
}

// create handles POST /api/labels. Posting an existing category replaces
// its label.
func (h *LabelsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createLabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Category = strings.TrimSpace(req.Category)
	req.Label = strings.TrimSpace(req.Label)
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "Category is required")
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}

	c := &store.CategoryLabel{Category: req.Category, Label: req.Label}
	if err := h.store.CategoryLabels().Upsert(c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save label")
		return
	}
	h.reload()

	writeJSON(w, http.StatusCreated, toResponse(c))
}

// update handles PUT /api/labels/{category}.
func (h *LabelsHandler) update(w http.ResponseWriter, r *http.Request, category string) {
	existing, err := h.store.CategoryLabels().Get(category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Label not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get label")
		return
	}

	var req updateLabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Label = strings.TrimSpace(req.Label); req.Label == "" {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}

	existing.Label = req.Label
	if err := h.store.CategoryLabels().Upsert(existing); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update label")
		return
	}
	h.reload()

	writeJSON(w, http.StatusOK, toResponse(existing))
}

// delete handles DELETE /api/labels/{category}.
func (h *LabelsHandler) delete(w http.ResponseWriter, r *http.Request, category string) {
	err := h.store.CategoryLabels().Delete(category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Label not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete label")
		return
	}
	h.reload()

	w.WriteHeader(http.StatusNoContent)
}
