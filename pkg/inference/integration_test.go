//go:build integration

package inference

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"
	"time"
)

// Integration tests for real API calls.
// Run with: go test -tags=integration -v ./pkg/inference/...

func TestGeminiIntegration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	g, err := NewGemini(WithAPIKey(apiKey), WithMaxTokens(64))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	defer g.Close()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("encode: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := g.Vision(ctx, &VisionRequest{
		Image:  NewInlineImage("image/jpeg", buf.Bytes()),
		Prompt: "Name the dominant color in one word.",
	})
	if err != nil {
		t.Fatalf("Vision failed: %v", err)
	}
	t.Logf("Response: %s (%dms)", resp.Content, resp.LatencyMs)
}
