package llmservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// FallbackGenerator tries each generator in order and returns the first
// successful response.
type FallbackGenerator struct {
	generators []TextGenerator
}

func NewFallbackGenerator(generators ...TextGenerator) *FallbackGenerator {
	return &FallbackGenerator{generators: generators}
}

func (f *FallbackGenerator) Invoke(ctx context.Context, prompt string) (string, error) {
	var errs []error
	for i, g := range f.generators {
		out, err := g.Invoke(ctx, prompt)
		if err == nil {
			if i > 0 {
				log.Info().Int("provider", i).Msg("Served by fallback provider")
			}
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().Err(err).Int("provider", i).Msg("Provider failed, trying next")
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", errors.New("no text generators configured")
	}
	return "", fmt.Errorf("all providers failed: %w", errors.Join(errs...))
}
