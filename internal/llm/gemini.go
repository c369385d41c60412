package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// Gemini generates sections with the Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	return &Gemini{client: client, model: model, maxTokens: cfg.MaxTokens}, nil
}

// Generate writes the section for outline given the document so far.
func (g *Gemini) Generate(ctx context.Context, prior, outline string) (string, error) {
	var config *genai.GenerateContentConfig
	if g.maxTokens > 0 {
		config = &genai.GenerateContentConfig{MaxOutputTokens: int32(g.maxTokens)}
	}

	slog.Debug("requesting section", "provider", "gemini", "model", g.model, "context_len", len(prior))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(prior, outline)), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	return resp.Text(), nil
}
