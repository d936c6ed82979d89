// Package tts drives speech synthesis: a common provider interface, two REST
// providers, and a dispatcher that adds rate-limit-aware retry and
// sequential or fan-out scheduling across narration segments.
package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/shortforge/shortforge/internal/models"
)

// ErrRateLimited marks a provider response that is worth retrying after a
// backoff (an HTTP 429 equivalent). Providers wrap it; the dispatcher checks
// it with errors.Is. Every other provider error is fatal.
var ErrRateLimited = errors.New("tts: rate limited")

// RateLimitExceededError is returned when the retry budget is exhausted.
type RateLimitExceededError struct {
	Attempts int
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("tts: still rate limited after %d attempts", e.Attempts)
}

// SynthesisError wraps a non-retryable provider failure.
type SynthesisError struct {
	Provider string
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts: %s synthesis failed: %v", e.Provider, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Provider converts one chunk of text into encoded audio bytes.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, voiceID string, gender models.VoiceGender) ([]byte, error)
}
