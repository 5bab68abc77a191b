package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/teslashibe/go-palette/internal/httpc"
)

const providerGemini = "gemini"

// Gemini implements the Provider interface for Google's Gemini API.
// Requests go to {BaseURL}v1beta/models/{model}:generateContent.
type Gemini struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewGemini creates a Gemini provider.
// The API key is required; it is sent as a header on every request.
func NewGemini(opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, WrapError(providerGemini, err)
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Gemini{
		config: cfg,
		http:   httpc.NewAPIKeyClient(cfg.APIKey, cfg.Timeout),
		logger: cfg.Logger.With("component", "inference.gemini"),
	}, nil
}

// Vision sends one inline image and the prompt in a single generateContent call.
func (g *Gemini) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	start := time.Now()

	if err := req.Image.Validate(); err != nil {
		return nil, WrapError(providerGemini, err)
	}

	model := req.Model
	if model == "" {
		model = g.config.Model
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiBlob{MimeType: req.Image.MIMEType, Data: req.Image.Data}},
				{Text: req.Prompt},
			},
		}},
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}
	if maxTokens > 0 {
		payload.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: maxTokens}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}

	url := g.config.BaseURL + "v1beta/" + modelResource(model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	g.logger.Debug("sending vision request",
		"model", model,
		"mime_type", req.Image.MIMEType,
		"data_len", len(req.Image.Data),
	)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, convertError(err)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("decode response: %w", err))
	}

	content := result.text()
	if content == "" {
		return nil, WrapError(providerGemini, ErrEmptyResponse)
	}

	out := &VisionResponse{
		Content:   content,
		Model:     model,
		LatencyMs: time.Since(start).Milliseconds(),
		Usage: Usage{
			PromptTokens:     result.UsageMetadata.PromptTokenCount,
			CompletionTokens: result.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      result.UsageMetadata.TotalTokenCount,
		},
	}
	if len(result.Candidates) > 0 {
		out.FinishReason = result.Candidates[0].FinishReason
	}

	g.logger.Debug("vision response received",
		"model", model,
		"text_len", len(content),
		"latency_ms", out.LatencyMs,
	)
	return out, nil
}

// Close releases resources.
func (g *Gemini) Close() error {
	g.http.CloseIdleConnections()
	return nil
}

// modelResource turns "gemini-1.5-flash" into "models/gemini-1.5-flash".
func modelResource(model string) string {
	if strings.HasPrefix(model, "models/") || strings.HasPrefix(model, "tunedModels/") {
		return model
	}
	return "models/" + model
}

// convertError maps googleapi errors to APIError. CheckResponse has already
// decoded {"error":{"message":...}} when the body was structured.
func convertError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Body:       strings.TrimSpace(gerr.Body),
			Provider:   providerGemini,
		}
	}
	return WrapError(providerGemini, err)
}

// Gemini wire format for generateContent.
type (
	geminiRequest struct {
		Contents         []geminiContent         `json:"contents"`
		GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
	}

	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}

	geminiPart struct {
		Text       string      `json:"text,omitempty"`
		InlineData *geminiBlob `json:"inlineData,omitempty"`
	}

	geminiBlob struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	}

	geminiGenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	}

	geminiResponse struct {
		Candidates []struct {
			Content      *geminiContent `json:"content"`
			FinishReason string         `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
)

// text joins the text parts of the first candidate.
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Verify Gemini implements Provider at compile time.
var _ Provider = (*Gemini)(nil)
