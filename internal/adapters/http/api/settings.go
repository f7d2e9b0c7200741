package api

import (
	"net/http"
	"strings"

	"github.com/okian/gamepulse/internal/adapters/credentials"
)

// Key sources reported by GET /settings/api-key.
const (
	keySourceStored   = "stored"
	keySourceFallback = "fallback"
	keySourceNone     = "none"
)

// SettingsHandler manages the API key and the record cache.
type SettingsHandler struct {
	deps SettingsDependencies
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(deps SettingsDependencies) *SettingsHandler {
	return &SettingsHandler{deps: deps}
}

type keyRequest struct {
	APIKey string `json:"apiKey"`
}

// keyResponse never carries the key itself.
type keyResponse struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source"`
	Masked     string `json:"masked,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// HandleGetKey handles GET /settings/api-key.
func (h *SettingsHandler) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_key"
	key, fallback, err := h.deps.APIKey(r.Context())
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	resp := keyResponse{Source: keySourceNone}
	if key != "" {
		resp.Configured = true
		resp.Masked = credentials.Mask(key)
		resp.Source = keySourceStored
		if fallback {
			resp.Source = keySourceFallback
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePutKey handles PUT /settings/api-key.
func (h *SettingsHandler) HandlePutKey(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_key"
	var body keyRequest
	if err := decodeBody(r, op, &body); err != nil {
		writeError(w, r, op, err)
		return
	}
	if err := h.deps.SetAPIKey(r.Context(), body.APIKey); err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, keyResponse{Configured: true, Source: keySourceStored, Masked: credentials.Mask(strings.TrimSpace(body.APIKey))})
}

// HandleDeleteKey handles DELETE /settings/api-key.
func (h *SettingsHandler) HandleDeleteKey(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_key"
	if err := h.deps.ClearAPIKey(r.Context()); err != nil {
		writeError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTestKey handles POST /settings/api-key/test. An empty body or key
// tests the configured key.
func (h *SettingsHandler) HandleTestKey(w http.ResponseWriter, r *http.Request) {
	const op = "api.test_key"
	var body keyRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, op, &body); err != nil {
			writeError(w, r, op, err)
			return
		}
	}
	if err := h.deps.TestConnection(r.Context(), body.APIKey); err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleInvalidate handles POST /cache/invalidate.
func (h *SettingsHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.invalidate"
	if err := h.deps.Invalidate(r.Context()); err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "invalidated"})
}
