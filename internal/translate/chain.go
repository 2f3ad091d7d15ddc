package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/subsight/subsight/internal/resilience"
)

// Chain tries providers in configured order until one produces a usable
// translation. Each provider is tried in isolation: one backend's failure
// never mutates state another backend reads.
type Chain struct {
	providers []Provider
	breakers  map[string]*resilience.Breaker
	retry     resilience.RetryConfig
}

// NewChain builds a chain over the ordered providers, each behind its own
// circuit breaker.
func NewChain(providers []Provider) *Chain {
	retry := resilience.DefaultRetryConfig()
	retry.IsRetryable = func(err error) bool {
		// Quota exhaustion is a routing decision, not a transient fault, and
		// permanent faults (missing key, malformed response) never heal on
		// retry. Both fall through to the next provider immediately.
		if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrPermanent) {
			return false
		}
		return resilience.IsRetryableHTTP(err)
	}

	breakers := make(map[string]*resilience.Breaker, len(providers))
	for _, p := range providers {
		breakers[p.Name()] = resilience.NewBreaker(p.Name(), resilience.DefaultConfig())
	}

	return &Chain{providers: providers, breakers: breakers, retry: retry}
}

// Providers returns the configured provider names in order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Translate walks the chain. A provider failure advances to the next
// provider; only when every backend fails does the cycle fail, and the
// caller must not display the untranslated text in that case.
func (c *Chain) Translate(ctx context.Context, req Request) (string, error) {
	var failures []error

	for _, p := range c.providers {
		breaker := c.breakers[p.Name()]
		if err := breaker.Allow(); err != nil {
			failures = append(failures, &ProviderError{Provider: p.Name(), Err: err})
			continue
		}

		var out string
		err := resilience.Retry(ctx, c.retry, func() error {
			text, err := p.Translate(ctx, req)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("%w: empty translation", ErrPermanent)
			}
			out = text
			return nil
		})

		if err == nil {
			breaker.Success()
			return out, nil
		}

		if errors.Is(err, ErrQuotaExceeded) {
			// Not a backend fault: skip to the fallback without penalizing
			// the breaker, and without having touched the network.
			slog.Debug("provider quota exhausted, using fallback", "provider", p.Name())
			failures = append(failures, &ProviderError{Provider: p.Name(), Err: err})
			continue
		}

		breaker.Failure()
		slog.Warn("translation provider failed", "provider", p.Name(), "error", err)
		failures = append(failures, &ProviderError{Provider: p.Name(), Err: err})
	}

	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(failures...))
}
