package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/ayusman/intelevision/internal/label"
)

// SettingsController is the part of the application the settings endpoints
// read and change.
type SettingsController interface {
	Tuning() label.Tuning
	ApplyTuning(label.Tuning) error
	VocabularyName() string
	SetVocabulary(name string) error
}

// SettingsHandler serves /api/settings/tuning and /api/settings/vocabulary.
type SettingsHandler struct {
	ctrl SettingsController
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(ctrl SettingsController) *SettingsHandler {
	return &SettingsHandler{ctrl: ctrl}
}

type vocabularyResponse struct {
	Vocabulary string   `json:"vocabulary"`
	Available  []string `json:"available"`
}

type vocabularyRequest struct {
	Vocabulary string `json:"vocabulary"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimPrefix(r.URL.Path, "/api/settings/") {
	case "tuning":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.ctrl.Tuning())
		case http.MethodPut:
			h.putTuning(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "vocabulary":
		switch r.Method {
		case http.MethodGet:
			h.getVocabulary(w)
		case http.MethodPut:
			h.putVocabulary(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// putTuning replaces the tuning table. Fields missing from the body keep
// their current values.
func (h *SettingsHandler) putTuning(w http.ResponseWriter, r *http.Request) {
	t := h.ctrl.Tuning()
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ctrl.ApplyTuning(t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save tuning")
		return
	}

	writeJSON(w, http.StatusOK, h.ctrl.Tuning())
}

func (h *SettingsHandler) getVocabulary(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, vocabularyResponse{
		Vocabulary: h.ctrl.VocabularyName(),
		Available:  label.Vocabularies(),
	})
}

func (h *SettingsHandler) putVocabulary(w http.ResponseWriter, r *http.Request) {
	var req vocabularyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !slices.Contains(label.Vocabularies(), req.Vocabulary) {
		writeError(w, http.StatusBadRequest, "Unknown vocabulary")
		return
	}

	if err := h.ctrl.SetVocabulary(req.Vocabulary); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save vocabulary")
		return
	}

	h.getVocabulary(w)
}
