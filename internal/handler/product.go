package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitevisit/report-server-go/internal/audit"
	"github.com/sitevisit/report-server-go/internal/service"
)

// ProductHandler serves product documentation upload, listing, deletion,
// and retrieval queries.
type ProductHandler struct {
	product        *service.ProductService
	authMiddleware func(http.Handler) http.Handler
}

func NewProductHandler(product *service.ProductService, authMiddleware func(http.Handler) http.Handler) *ProductHandler {
	return &ProductHandler{
		product:        product,
		authMiddleware: authMiddleware,
	}
}

// Register attaches the product data routes to the given router. They live
// at the root alongside the report routes rather than under a prefix.
func (h *ProductHandler) Register(r chi.Router) {
	r.With(h.authMiddleware).Post("/upload-product-data", h.Upload)
	r.Get("/list-product-data", h.List)
	r.With(h.authMiddleware).Delete("/delete-product-data/{filename}", h.Delete)
	r.Post("/query-product-data", h.Query)
}

func (h *ProductHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file selected"})
		return
	}

	info, err := h.product.Upload(r.Context(), file, header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventProductUpload,
		Details: map[string]interface{}{"file": header.Filename},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Product data '%s' uploaded and indexed successfully.", header.Filename),
		"storage_info": info,
	})
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.product.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files": files,
		"count": len(files),
	})
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if err := h.product.Delete(r.Context(), filename); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventProductDelete,
		Details: map[string]interface{}{"file": filename},
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Product data '%s' deleted and index rebuilt successfully.", filename),
	})
}

func (h *ProductHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No query provided"})
		return
	}

	results, err := h.product.Query(r.Context(), req.Query, req.K)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": results,
		"count":   len(results),
	})
}
