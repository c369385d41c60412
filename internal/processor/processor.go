package processor

import (
	"context"
	"log/slog"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/mfenderov/outliner/internal/markdown"
)

// Generator produces the text for one outline section.
type Generator interface {
	Generate(ctx context.Context, prior, outline string) (string, error)
}

// Processor cleans generated text into plain markdown.
type Processor struct{}

// New creates a new response processor.
func New() *Processor {
	return &Processor{}
}

// Convert transforms HTML content into Markdown.
func (p *Processor) Convert(htmlContent string) (string, error) {
	if htmlContent == "" {
		return "", nil
	}

	md, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(md), nil
}

// Normalize trims a response, unwraps a single outer code fence around
// markdown, and converts HTML answers to markdown.
func (p *Processor) Normalize(text string) (string, error) {
	text = unwrapFence(strings.TrimSpace(text))

	if markdown.IsHTMLContent(text) {
		slog.Debug("converting HTML response to markdown", "len", len(text))
		return p.Convert(text)
	}
	return text, nil
}

// unwrapFence strips a fence that encloses the whole text when it is tagged as
// markdown, or untagged around prose.
func unwrapFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") {
		return text
	}
	first, rest, ok := strings.Cut(text, "\n")
	if !ok {
		return text
	}
	inner := strings.TrimSuffix(rest, "```")
	if strings.Contains(inner, "\n```") {
		// More than one fence: the response is a document with code in it.
		return text
	}
	inner = strings.TrimSpace(inner)

	switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(first, "```"))) {
	case "markdown", "md":
		return inner
	case "", "text":
		if markdown.IsMarkdownContent(inner) || !strings.ContainsAny(inner, "{};=") {
			return inner
		}
	}
	return text
}

// Normalizer applies Normalize to everything a Generator returns.
type Normalizer struct {
	next Generator
	p    *Processor
}

// NewNormalizer wraps next.
func NewNormalizer(next Generator) *Normalizer {
	return &Normalizer{next: next, p: New()}
}

// Generate calls the wrapped generator and normalizes its answer.
func (n *Normalizer) Generate(ctx context.Context, prior, outline string) (string, error) {
	text, err := n.next.Generate(ctx, prior, outline)
	if err != nil {
		return "", err
	}
	return n.p.Normalize(text)
}
