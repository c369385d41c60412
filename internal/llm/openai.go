package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIConfig configures the OpenAI streaming generator.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // Optional: any OpenAI-compatible endpoint
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
}

type chatCompletions interface {
	NewStreaming(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk]
}

// OpenAI generates sections through a streamed chat completion and returns the
// concatenated deltas.
type OpenAI struct {
	completions chatCompletions
	model       string
	maxTokens   int
}

// NewOpenAI creates an OpenAI generator.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are handled by the Retrying decorator.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	client := openai.NewClient(opts...)
	return &OpenAI{
		completions: &client.Chat.Completions,
		model:       model,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate writes the section for outline given the document so far.
func (o *OpenAI) Generate(ctx context.Context, prior, outline string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(prior, outline)),
		},
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxTokens))
	}

	slog.Debug("requesting section", "provider", "openai", "model", o.model, "context_len", len(prior))

	stream := o.completions.NewStreaming(ctx, params)
	if stream == nil {
		return "", errors.New("openai stream not available")
	}
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("openai stream failed: %w", err)
	}

	return sb.String(), nil
}
