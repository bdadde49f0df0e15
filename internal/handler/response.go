package handler

import (
	"net/http"

	"github.com/sitevisit/report-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// success builds the standard success envelope the frontend expects.
func success(message string, extra map[string]any) map[string]any {
	body := map[string]any{
		"status":  "success",
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}
