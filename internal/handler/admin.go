package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitevisit/report-server-go/internal/audit"
	"github.com/sitevisit/report-server-go/internal/model"
	"github.com/sitevisit/report-server-go/internal/service"
)

// AdminHandler serves the ledger management surface. All routes require
// the admin API key.
type AdminHandler struct {
	access         *service.AccessService
	authMiddleware func(http.Handler) http.Handler
}

func NewAdminHandler(access *service.AccessService, authMiddleware func(http.Handler) http.Handler) *AdminHandler {
	return &AdminHandler{
		access:         access,
		authMiddleware: authMiddleware,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.authMiddleware)

	r.Post("/access/create", h.Create)
	r.Get("/access/list", h.List)
	r.Post("/access/disable/{code}", h.Disable)
	r.Post("/access/update/{code}", h.Update)
	r.Get("/access/logs", h.Logs)
	r.Get("/access/stats", h.Stats)

	return r
}

func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssignedTo  string `json:"assigned_to"`
		Email       string `json:"email"`
		ExpiryDays  int    `json:"expiry_days"`
		Uses        int    `json:"uses"`
		Notes       string `json:"notes"`
		AccessLevel string `json:"access_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "No data provided",
		})
		return
	}
	if req.AssignedTo == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Missing required field: assigned_to and email are required",
		})
		return
	}

	info, err := h.access.Create(r.Context(), model.CreateAccessCodeParams{
		AssignedTo:  req.AssignedTo,
		Email:       req.Email,
		ExpiryDays:  req.ExpiryDays,
		Uses:        req.Uses,
		Notes:       req.Notes,
		AccessLevel: model.AccessLevel(req.AccessLevel),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type: audit.EventCodeCreate,
		Code: info.Code,
		User: req.AssignedTo,
	})

	writeJSON(w, http.StatusOK, success("Access code created successfully", map[string]any{
		"access_code": info.Code,
	}))
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.access.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"count":        len(codes),
		"access_codes": codes,
	})
}

func (h *AdminHandler) Disable(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.access.Disable(r.Context(), code); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type: audit.EventCodeDisable,
		Code: code,
	})

	writeJSON(w, http.StatusOK, success(
		fmt.Sprintf("Access code %s disabled successfully", code), nil))
}

func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil || len(updates) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "No update data provided",
		})
		return
	}

	if _, err := h.access.Update(r.Context(), code, updates); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type: audit.EventCodeUpdate,
		Code: code,
	})

	writeJSON(w, http.StatusOK, success(
		fmt.Sprintf("Access code %s updated successfully", code), nil))
}

func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	filter := service.LogFilter{
		AccessCode: r.URL.Query().Get("access_code"),
		User:       r.URL.Query().Get("user"),
		Action:     r.URL.Query().Get("action"),
	}

	logs, err := h.access.Logs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"count":  len(logs),
		"logs":   logs,
	})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.access.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"stats":  stats,
	})
}
