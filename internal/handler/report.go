package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sitevisit/report-server-go/internal/audit"
	"github.com/sitevisit/report-server-go/internal/model"
	"github.com/sitevisit/report-server-go/internal/service"
	"github.com/sitevisit/report-server-go/internal/storage"
)

// maxUploadMemory bounds the in-memory part of multipart parsing.
const maxUploadMemory = 10 << 20

// ReportHandler serves image analysis, caption summarization, and PDF
// report generation.
type ReportHandler struct {
	vision  *service.VisionService
	reports *service.ReportService
	product *service.ProductService
	archive storage.Store
}

func NewReportHandler(vision *service.VisionService, reports *service.ReportService, product *service.ProductService, archive storage.Store) *ReportHandler {
	return &ReportHandler{
		vision:  vision,
		reports: reports,
		product: product,
		archive: archive,
	}
}

// Register attaches the report generation routes to the given router.
func (h *ReportHandler) Register(r chi.Router) {
	r.Post("/analyze-image", h.AnalyzeImage)
	r.Post("/summarize-captions", h.SummarizeCaptions)
	r.Post("/generate-report", h.GenerateReport)
}

// AnalyzeImage captions one uploaded site photo. Hashtags in the form data
// pull matching product documentation into the prompt.
func (h *ReportHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No image provided"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No image provided"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read image"})
		return
	}

	hashtags := r.FormValue("hashtags")

	// Archive the photo; a storage failure should not block captioning.
	var storageInfo *storage.ObjectInfo
	if info, err := h.archive.Upload(r.Context(), bytes.NewReader(imageData), header.Filename, "photos"); err != nil {
		log.Error().Err(err).Msg("failed to archive photo")
	} else {
		storageInfo = info
	}

	products := h.productContext(r, hashtags)

	caption, err := h.vision.CaptionImage(r.Context(), imageData, header.Header.Get("Content-Type"), hashtags, products)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"description": caption}
	if storageInfo != nil {
		resp["storage_info"] = storageInfo
	}
	writeJSON(w, http.StatusOK, resp)
}

var hashtagRe = regexp.MustCompile(`#(\w+)`)

// hashtagTerms extracts product mentions from a hashtag string, skipping
// short terms that are too generic to match anything useful.
func hashtagTerms(hashtags string) []string {
	var terms []string
	for _, m := range hashtagRe.FindAllStringSubmatch(hashtags, -1) {
		if len(m[1]) > 3 {
			terms = append(terms, m[1])
		}
	}
	return terms
}

// productContext resolves hashtag terms to product documentation excerpts.
func (h *ReportHandler) productContext(r *http.Request, hashtags string) []service.ProductExcerpt {
	if h.product == nil || hashtags == "" {
		return nil
	}

	var excerpts []service.ProductExcerpt
	for _, term := range hashtagTerms(hashtags) {
		matches, err := h.product.Query(r.Context(), term, 1)
		if err != nil {
			continue
		}
		for _, m := range matches {
			excerpts = append(excerpts, service.ProductExcerpt{
				Source:  m.Source,
				Content: m.Content,
			})
		}
	}
	return excerpts
}

func (h *ReportHandler) SummarizeCaptions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Captions []string `json:"captions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Captions) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No captions provided"})
		return
	}

	summary, err := h.vision.SummarizeCaptions(r.Context(), req.Captions)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var data model.ReportData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No report data provided"})
		return
	}

	pdfBytes, filename, err := h.reports.Generate(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventReportGenerate,
		Details: map[string]interface{}{"project": data.ProjectName, "report_number": data.ReportNumber},
	})

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pdfBytes)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdfBytes)
}
