package ocr

import (
	"context"
	"fmt"
)

// VisionModel sends a prompt together with image bytes to a multimodal model.
type VisionModel interface {
	PromptImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

const transcribePrompt = "Transcribe all text visible in this scanned page exactly as written, " +
	"keeping the reading order and paragraph breaks. Return only the text, no commentary."

// GeminiRecognizer uses a multimodal model as the recognition engine.
type GeminiRecognizer struct {
	model VisionModel
}

func NewGeminiRecognizer(model VisionModel) *GeminiRecognizer {
	return &GeminiRecognizer{model: model}
}

func (g *GeminiRecognizer) Name() string {
	return "gemini"
}

func (g *GeminiRecognizer) Available(context.Context) error {
	if g.model == nil {
		return fmt.Errorf("%w: gemini not configured", ErrUnavailable)
	}
	return nil
}

func (g *GeminiRecognizer) Recognize(ctx context.Context, img Image) (string, error) {
	if g.model == nil {
		return "", ErrUnavailable
	}
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return g.model.PromptImage(ctx, transcribePrompt, mimeType, img.Data)
}
