// Package translate coordinates translation backends with fallback and quota
package translate

import (
	"context"
	"errors"
	"fmt"
)

// Request carries one translation unit. It is a value: providers build their
// own HTTP requests from it and never share mutable request state.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
	// Hint is free-form context (e.g. the game being played) appended to
	// every request by providers that support it.
	Hint string
}

// Provider is a single translation backend.
type Provider interface {
	Name() string
	Translate(ctx context.Context, req Request) (string, error)
}

// Exchange is one source/translation pair from earlier in the session.
type Exchange struct {
	Source     string
	Translated string
}

// ContextSource supplies the most recent committed exchanges, newest last,
// for providers that thread conversational context through requests.
type ContextSource interface {
	Recent(n int) []Exchange
}

// ErrQuotaExceeded marks a provider that has hit its per-session request cap.
// It is treated as provider-unavailable, not surfaced as a user error.
var ErrQuotaExceeded = errors.New("session request quota exceeded")

// ErrAllProvidersFailed is terminal for a cycle: nothing is displayed and the
// original text is never passed off as a translation.
var ErrAllProvidersFailed = errors.New("all translation providers failed")

// ErrPermanent marks provider failures no retry can fix, such as a missing
// API key or a structurally bad response. The chain moves straight to the
// next provider instead of burning backoff delay.
var ErrPermanent = errors.New("permanent provider failure")

// HTTPError is a non-2xx response from a provider backend.
type HTTPError struct {
	Provider string
	Code     int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.Code)
}

// StatusCode implements resilience.StatusCoder.
func (e *HTTPError) StatusCode() int { return e.Code }

// ProviderError wraps a backend failure with the provider's name.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
