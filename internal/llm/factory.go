package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/mfenderov/outliner/internal/config"
)

// NewFromConfig builds the configured provider, wrapped with the per-section
// timeout and the retry policy.
func NewFromConfig(ctx context.Context, cfg config.Generator) (Generator, error) {
	var (
		gen Generator
		err error
	)

	switch cfg.Provider {
	case "openai":
		gen, err = NewOpenAI(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	case "gemini":
		gen, err = NewGemini(ctx, GeminiConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	case "dmr":
		gen, err = New(Config{
			SocketPath: cfg.SocketPath,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s generator: %w", cfg.Provider, err)
	}

	if cfg.Timeout > 0 {
		gen = &timeoutGenerator{next: gen, timeout: cfg.Timeout}
	}
	return NewRetrying(gen, cfg.MaxRetries, 0), nil
}

// timeoutGenerator bounds each attempt, so retries get a fresh deadline.
type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

func (t *timeoutGenerator) Generate(ctx context.Context, prior, outline string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, prior, outline)
}
