package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sitevisit/report-server-go/internal/audit"
	"github.com/sitevisit/report-server-go/internal/util"
)

// AdminAuthMiddleware gates the admin ledger surface behind a shared API
// key carried in the X-API-Key header.
type AdminAuthMiddleware struct {
	apiKey string
}

func NewAdminAuthMiddleware(apiKey string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{apiKey: apiKey}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": "missing_api_key", "path": r.URL.Path},
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"status":  "error",
				"message": "API key required",
			})
			return
		}

		if !util.ConstantTimeEqual(key, m.apiKey) {
			log.Warn().Str("path", r.URL.Path).Msg("admin auth: invalid API key attempt")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": "invalid_api_key", "path": r.URL.Path},
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"status":  "error",
				"message": "Invalid API key",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
