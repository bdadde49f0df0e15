package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/sitevisit/report-server-go/internal/errors"
	"github.com/sitevisit/report-server-go/internal/model"
	"github.com/sitevisit/report-server-go/internal/storage"
)

// FeedbackService stores submitted user feedback as timestamped JSON
// documents in the feedback area of the storage backend.
type FeedbackService struct {
	archive storage.Store
	logger  zerolog.Logger
	now     func() time.Time
}

func NewFeedbackService(archive storage.Store, logger zerolog.Logger) *FeedbackService {
	return &FeedbackService{
		archive: archive,
		logger:  logger.With().Str("component", "feedback").Logger(),
		now:     time.Now,
	}
}

// Submit timestamps the feedback payload and persists it.
func (s *FeedbackService) Submit(ctx context.Context, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	now := s.now()
	payload["timestamp"] = model.NewTimestamp(now)

	doc, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return apperrors.Persistence(err)
	}

	filename := fmt.Sprintf("feedback_%s.json", now.Format("20060102_150405"))
	if _, err := s.archive.Upload(ctx, bytes.NewReader(doc), filename, "feedback"); err != nil {
		return apperrors.Persistence(err)
	}

	s.logger.Info().Str("file", filename).Msg("feedback stored")
	return nil
}
