package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"document-summary/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// TextGenerator is the text-generation capability the summarizer depends on.
// Implementations must be safe for concurrent use.
type TextGenerator interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var ErrEmptyResponse = errors.New("empty response from model")

// LangchainGenerator drives any langchaingo model with a single human message.
type LangchainGenerator struct {
	model   llms.Model
	name    string
	options []llms.CallOption
}

func NewLangchainGenerator(model llms.Model, name string, options ...llms.CallOption) *LangchainGenerator {
	return &LangchainGenerator{model: model, name: name, options: options}
}

func (g *LangchainGenerator) Invoke(ctx context.Context, prompt string) (string, error) {
	log.Debug().Str("model", g.name).Int("prompt_chars", len(prompt)).Msg("Generating content")
	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, g.options...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", g.name, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%s: %w", g.name, ErrEmptyResponse)
	}
	return out, nil
}

// NewGenerator builds the generator described by llmConfig.
func NewGenerator(ctx context.Context, llmConfig *config.LLMConfig) (TextGenerator, error) {
	var opts []llms.CallOption
	if llmConfig.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(llmConfig.MaxTokens))
	}
	if llmConfig.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(llmConfig.Temperature))
	}

	provider := strings.ToLower(llmConfig.Provider)
	name := provider + ":" + llmConfig.Model
	switch provider {
	case "openai", "":
		llm, err := openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		)
		if err != nil {
			return nil, err
		}
		return NewLangchainGenerator(llm, name, opts...), nil
	case "ollama":
		ollamaOpts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			ollamaOpts = append(ollamaOpts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err := ollama.New(ollamaOpts...)
		if err != nil {
			return nil, err
		}
		return NewLangchainGenerator(llm, name, opts...), nil
	case "anthropic":
		anthropicOpts := []anthropic.Option{
			anthropic.WithToken(llmConfig.Key),
			anthropic.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			anthropicOpts = append(anthropicOpts, anthropic.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := anthropic.New(anthropicOpts...)
		if err != nil {
			return nil, err
		}
		return NewLangchainGenerator(llm, name, opts...), nil
	case "gemini":
		return NewGeminiGenerator(ctx, llmConfig.Key, llmConfig.Model)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llmConfig.Provider)
	}
}

// NewFromConfig returns the primary generator, chained with the fallback one
// when it is configured.
func NewFromConfig(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	primary, err := NewGenerator(ctx, &cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("primary llm: %w", err)
	}
	if cfg.FallbackLLM == nil || cfg.FallbackLLM.Provider == "" {
		return primary, nil
	}
	secondary, err := NewGenerator(ctx, cfg.FallbackLLM)
	if err != nil {
		log.Warn().Err(err).Msg("Fallback llm unavailable, continuing with primary only")
		return primary, nil
	}
	return NewFallbackGenerator(primary, secondary), nil
}
