package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sitevisit/report-server-go/internal/audit"
	"github.com/sitevisit/report-server-go/internal/service"
)

// FeedbackHandler collects user feedback submissions.
type FeedbackHandler struct {
	feedback *service.FeedbackService
}

func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Invalid feedback payload",
		})
		return
	}

	if err := h.feedback.Submit(r.Context(), payload); err != nil {
		log.Error().Err(err).Msg("failed to store feedback")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Failed to process feedback",
		})
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventFeedbackReceive})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Feedback received. Thank you!",
	})
}
