package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiGenerator talks to the Gemini API. Besides text prompts it can send an
// inline image, which the OCR layer uses for recognition.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	return &GeminiGenerator{client: c, model: model}, nil
}

func (g *GeminiGenerator) Invoke(ctx context.Context, prompt string) (string, error) {
	log.Debug().Str("model", g.model).Int("prompt_chars", len(prompt)).Msg("Generating content")
	res, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini:%s: %w", g.model, err)
	}
	return nonEmpty(g.model, res.Text())
}

// PromptImage sends prompt together with inline image bytes.
func (g *GeminiGenerator) PromptImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	content := &genai.Content{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
		},
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini:%s: %w", g.model, err)
	}
	return nonEmpty(g.model, res.Text())
}

func nonEmpty(model, out string) (string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("gemini:%s: %w", model, ErrEmptyResponse)
	}
	return out, nil
}
