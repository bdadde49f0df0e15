package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sitevisit/report-server-go/internal/audit"
	"github.com/sitevisit/report-server-go/internal/service"
)

// AccessHandler serves the public access code validation endpoint.
type AccessHandler struct {
	access *service.AccessService
}

func NewAccessHandler(access *service.AccessService) *AccessHandler {
	return &AccessHandler{access: access}
}

func (h *AccessHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/validate", h.Validate)
	return r
}

func (h *AccessHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessCode string `json:"access_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "No access code provided",
		})
		return
	}

	result, err := h.access.Validate(r.Context(), req.AccessCode)
	if err != nil {
		log.Error().Err(err).Msg("access code validation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Failed to validate access code",
		})
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type: audit.EventCodeValidate,
		User: result.UserName,
		Details: map[string]interface{}{
			"valid":  result.Valid,
			"reason": string(result.Reason),
		},
	})

	if !result.Valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"status":  "error",
			"message": result.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"message":        result.Message,
		"user_name":      result.UserName,
		"access_level":   result.AccessLevel,
		"permissions":    result.Permissions,
		"expires_at":     result.ExpiresAt,
		"uses_remaining": result.UsesRemaining,
	})
}
