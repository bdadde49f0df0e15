package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitevisit/report-server-go/internal/model"
	"github.com/sitevisit/report-server-go/internal/pdf"
	"github.com/sitevisit/report-server-go/internal/storage"
)

// ReportService renders site visit reports and archives a copy of every
// generated PDF.
type ReportService struct {
	generator *pdf.Generator
	archive   storage.Store
	logger    zerolog.Logger
	now       func() time.Time
}

func NewReportService(generator *pdf.Generator, archive storage.Store, logger zerolog.Logger) *ReportService {
	return &ReportService{
		generator: generator,
		archive:   archive,
		logger:    logger.With().Str("component", "report").Logger(),
		now:       time.Now,
	}
}

// Generate renders the report and returns the PDF bytes plus the download
// filename. Archiving is best effort: a storage failure is logged, not
// surfaced, so the caller still gets the report.
func (s *ReportService) Generate(ctx context.Context, data model.ReportData) ([]byte, string, error) {
	pdfBytes, err := s.generator.Generate(data)
	if err != nil {
		return nil, "", err
	}

	reportNumber := data.ReportNumber
	if reportNumber == "" {
		reportNumber = "report"
	}
	filename := fmt.Sprintf("Site_Visit_Report_%s_%s.pdf", reportNumber, s.now().Format("20060102_150405"))

	if info, err := s.archive.Upload(ctx, bytes.NewReader(pdfBytes), filename, "reports"); err != nil {
		s.logger.Error().Err(err).Str("filename", filename).Msg("failed to archive report")
	} else {
		s.logger.Info().Str("key", info.Key).Msg("report archived")
	}

	return pdfBytes, filename, nil
}
