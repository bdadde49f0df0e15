package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sitevisit/report-server-go/internal/errors"
)

func TestVisionService_CaptionImage(t *testing.T) {
	var gotReq map[string]any
	var gotHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Sheathing membrane lapped over the window flange."}]}`))
	}))
	defer server.Close()

	svc := NewVisionService("test-key", "claude-3-7-sonnet-20250219", server.URL, zerolog.Nop())

	caption, err := svc.CaptionImage(context.Background(), []byte("fake-image"), "image/png", "#membrane", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sheathing membrane lapped over the window flange.", caption)

	assert.Equal(t, "test-key", gotHeaders.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", gotHeaders.Get("anthropic-version"))
	assert.Equal(t, "claude-3-7-sonnet-20250219", gotReq["model"])

	messages := gotReq["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)

	text := content[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "building envelope specialist")
	assert.Contains(t, text, "#membrane")

	source := content[1].(map[string]any)["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/png", source["media_type"])
}

func TestVisionService_CaptionImageUnknownContentTypeDefaultsToJPEG(t *testing.T) {
	var gotReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer server.Close()

	svc := NewVisionService("k", "m", server.URL, zerolog.Nop())

	_, err := svc.CaptionImage(context.Background(), []byte("x"), "image/tiff", "", nil)
	require.NoError(t, err)

	messages := gotReq["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	source := content[1].(map[string]any)["source"].(map[string]any)
	assert.Equal(t, "image/jpeg", source["media_type"])
}

func TestVisionService_SummarizeCaptions(t *testing.T) {
	var gotReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"<summary_of_observations>ok</summary_of_observations>"}]}`))
	}))
	defer server.Close()

	svc := NewVisionService("k", "m", server.URL, zerolog.Nop())

	summary, err := svc.SummarizeCaptions(context.Background(), []string{"cap one", "cap two"})
	require.NoError(t, err)
	assert.Contains(t, summary, "summary_of_observations")

	messages := gotReq["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	text := content[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "cap one\ncap two")
}

func TestVisionService_SummarizeCaptionsRequiresInput(t *testing.T) {
	svc := NewVisionService("k", "m", "http://127.0.0.1:0", zerolog.Nop())

	_, err := svc.SummarizeCaptions(context.Background(), nil)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeMissingRequired, appErr.Code)
}

func TestVisionService_UpstreamErrorSurfacesAsExternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewVisionService("k", "m", server.URL, zerolog.Nop())

	_, err := svc.SummarizeCaptions(context.Background(), []string{"c"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeExternal, appErr.Code)
}
