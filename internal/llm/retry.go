package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go"
)

// Generator produces the text for one outline section.
type Generator interface {
	Generate(ctx context.Context, prior, outline string) (string, error)
}

// Retrying retries a Generator with exponential backoff.
// Client errors other than rate limiting fail immediately.
type Retrying struct {
	next        Generator
	maxAttempts uint
	initial     time.Duration
}

// NewRetrying wraps next. maxAttempts below 1 is treated as 1.
func NewRetrying(next Generator, maxAttempts int, initial time.Duration) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return &Retrying{next: next, maxAttempts: uint(maxAttempts), initial: initial}
}

// Generate calls the wrapped generator until it succeeds or attempts run out.
func (r *Retrying) Generate(ctx context.Context, prior, outline string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial

	attempt := 0
	op := func() (string, error) {
		attempt++
		text, err := r.next.Generate(ctx, prior, outline)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return "", backoff.Permanent(err)
		}
		slog.Warn("section generation failed, retrying", "attempt", attempt, "error", err)
		return "", err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxAttempts),
	)
}

func retryable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Retryable()
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	return true
}
