package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/sitevisit/report-server-go/internal/errors"
)

const (
	visionTimeout      = 120 * time.Second
	anthropicVersion   = "2023-06-01"
	defaultVisionURL   = "https://api.anthropic.com"
	visionMaxTokens    = 10000
	maxProductExcerpts = 2
)

const captionSystemPrompt = "You are an architectural engineer who is an expert in construction materials, installation best practices, and construction QA/QC."

const captionPrompt = `As a building envelope specialist, analyze this construction photo with extreme precision:

1. IDENTIFICATION
- First identify the main building component(s) visible in the image
- Confirm any specific materials or assemblies you can clearly see
- Note the perspective and viewing angle of the photo
- Please carefully reference the exact annotations in the image.

2. DESCRIPTION REQUIREMENTS
- Priority order: 1) Verbatim annotation text, 2) Visual context, 3) General knowledge
- Describe only what is definitively visible in the image
- Use industry-standard terminology for materials and components
- Note spatial relationships between components
- Mention any visible measurements or scale references
- Note any visible damage or defects

3. FORMAT
- Provide a 1-2 sentence technical description
- Use clear, precise language
- Focus on factual observations only

4. QUALITY CHECK
- Verify that each element mentioned is clearly visible in the image
- Double-check terminology accuracy
- Ensure description matches what you can see with high confidence`

const summarySystemPrompt = "You are a professional architectural engineer who is an expert in construction engineering, administration, and quality control."

const summaryPromptTemplate = `You will be provided with a set of captions describing observations made on construction sites. Your task is to write a comprehensive report based on these captions. The report should include three main sections: a summary of observations, a discussion of implications, and recommendations based on the findings.

Here are the captions:
<captions>
%s
</captions>

Please follow these steps to create your report:

1. Summarize Observations:
   - Carefully read through all the provided captions.
   - Identify the key observations.
   - Organize these observations into two lists: building envelope related and others.
   - Present the summary list in a clear and concise manner.

2. Discuss Implications:
   - Analyze the observations and consider their potential impacts from a construction quality perspective.
   - Identify any trends, patterns, or significant findings that may adversely affect the performance of the building.
   - Discuss the implications of these observations as an industry professional.
   - Consider both short-term and long-term effects.

3. Provide action items/recommendations:
   - Based on the observations and implications, develop actionable recommendations.
   - Ensure your recommendations are specific, practical, and relevant.
   - The recommendations should focus on high priority issues that need to be addressed immediately in regards to the building envelope.

Format your report using the following structure:

<summary_of_observations>
[Insert your summary list of observations here]
</summary_of_observations>

<discussion>
[Insert your discussion of implications here]
</discussion>

<recommendations>
[Insert your recommendations here]
</recommendations>

Do not include any section headers or titles.

Ensure that your report is well-structured, logically organized, and written in a professional tone. Use clear and concise language throughout. If you need to make any assumptions or inferences beyond the provided captions, clearly state them as such.`

// ProductExcerpt is a snippet of uploaded product documentation attached to
// a captioning request as extra context.
type ProductExcerpt struct {
	Source  string
	Content string
}

// VisionService calls the Anthropic Messages API for image captioning and
// observation summaries.
type VisionService struct {
	client  *http.Client
	logger  zerolog.Logger
	apiKey  string
	model   string
	baseURL string
}

func NewVisionService(apiKey, model, baseURL string, logger zerolog.Logger) *VisionService {
	if baseURL == "" {
		baseURL = defaultVisionURL
	}
	return &VisionService{
		client:  &http.Client{Timeout: visionTimeout},
		logger:  logger.With().Str("component", "vision").Logger(),
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type messageRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// CaptionImage generates a technical caption for one site photo. Hashtags
// and product excerpts, when present, are folded into the prompt as extra
// identification context.
func (s *VisionService) CaptionImage(ctx context.Context, imageData []byte, contentType, hashtags string, products []ProductExcerpt) (string, error) {
	if contentType != "image/jpeg" && contentType != "image/png" {
		contentType = "image/jpeg"
	}

	prompt := captionPrompt
	if hashtags != "" {
		prompt += fmt.Sprintf("\n\nAdditional context from hashtags: %s\n\nUse these hashtags (name of building material) to help identify and describe the key elements in the image more accurately. The response should include the name of the building material in the hashtags.", hashtags)
	}
	if len(products) > 0 {
		var b strings.Builder
		b.WriteString("\n\nRELEVANT PRODUCT INFORMATION:\n")
		for i, p := range products {
			if i >= maxProductExcerpts {
				break
			}
			content := p.Content
			if len(content) > 300 {
				content = content[:300] + "..."
			}
			fmt.Fprintf(&b, "Product %d: %s\n%s\n\n", i+1, p.Source, content)
		}
		prompt += b.String()
		prompt += "\nRefer to this product information when it's relevant to what you can see in the image."
	}
	prompt += "\n\nProvide only the captions in the following format:\nWrite a concise caption (1-2 sentences) describing the visual elements of the building envelope in the photo."

	req := messageRequest{
		Model:       s.model,
		MaxTokens:   visionMaxTokens,
		Temperature: 1,
		System:      captionSystemPrompt,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{Type: "text", Text: prompt},
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: contentType,
					Data:      base64.StdEncoding.EncodeToString(imageData),
				}},
			},
		}},
	}

	return s.send(ctx, req)
}

// SummarizeCaptions turns the collected photo captions into a structured
// observations/implications/recommendations report body.
func (s *VisionService) SummarizeCaptions(ctx context.Context, captions []string) (string, error) {
	if len(captions) == 0 {
		return "", apperrors.MissingRequired("captions")
	}

	req := messageRequest{
		Model:       s.model,
		MaxTokens:   visionMaxTokens,
		Temperature: 1,
		System:      summarySystemPrompt,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{Type: "text", Text: fmt.Sprintf(summaryPromptTemplate, strings.Join(captions, "\n"))},
			},
		}},
	}

	return s.send(ctx, req)
}

func (s *VisionService) send(ctx context.Context, payload messageRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Error().Err(err).Dur("elapsed", elapsed).Msg("vision request error")
		return "", apperrors.External("vision", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.External("vision", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error().
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Str("body", string(respBody)).
			Msg("vision request failed")
		return "", apperrors.External("vision", fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded messageResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", apperrors.External("vision", fmt.Errorf("decode response: %w", err))
	}
	if len(decoded.Content) == 0 {
		return "", apperrors.External("vision", fmt.Errorf("empty response content"))
	}

	s.logger.Info().
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("vision request successful")

	return decoded.Content[0].Text, nil
}
