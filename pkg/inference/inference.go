// Package inference provides the multimodal model call behind the color
// analysis.
//
// A Provider takes one inline image plus an instruction prompt and returns the
// model's text. Gemini is the production provider; Mock records calls for
// tests.
//
// Example usage:
//
//	provider, _ := inference.NewGemini(
//	    inference.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	    inference.WithModel("gemini-1.5-flash"),
//	)
//	defer provider.Close()
//
//	resp, _ := provider.Vision(ctx, &inference.VisionRequest{
//	    Image:  inference.InlineImage{MIMEType: "image/jpeg", Data: b64},
//	    Prompt: "Describe the colors in this photo.",
//	})
package inference

import "context"

// Provider is the vision inference interface.
type Provider interface {
	// Vision sends one image with a text prompt and returns the model's text.
	Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error)

	// Close releases any resources held by the provider.
	Close() error
}

// VisionRequest for image analysis.
type VisionRequest struct {
	// Image to analyze.
	Image InlineImage

	// Prompt describing what to analyze in the image.
	Prompt string

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length. Zero leaves the model default.
	MaxTokens int
}

// VisionResponse from image analysis.
type VisionResponse struct {
	// Content is the natural language response, all text parts joined.
	Content string

	// FinishReason reported by the model for the first candidate.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for analysis.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
