package translate

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeProvider scripts one backend for chain tests. Failures use HTTP 400 so
// the retry layer fails fast instead of backing off.
type fakeProvider struct {
	name   string
	out    string
	err    error
	calls  int
	seen   []Request
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Translate(_ context.Context, req Request) (string, error) {
	f.calls++
	f.seen = append(f.seen, req)
	return f.out, f.err
}

func TestChainFirstProviderWins(t *testing.T) {
	a := &fakeProvider{name: "a", out: "Olá"}
	b := &fakeProvider{name: "b", out: "wrong"}
	chain := NewChain([]Provider{a, b})

	got, err := chain.Translate(context.Background(), Request{Text: "Hello", SourceLang: "en", TargetLang: "pt"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Olá" {
		t.Errorf("Translate() = %q, want Olá", got)
	}
	if b.calls != 0 {
		t.Errorf("fallback called %d times, want 0", b.calls)
	}
}

func TestChainFallbackOnFailure(t *testing.T) {
	a := &fakeProvider{name: "a", err: &HTTPError{Provider: "a", Code: 400}}
	b := &fakeProvider{name: "b", out: "Olá"}
	chain := NewChain([]Provider{a, b})

	got, err := chain.Translate(context.Background(), Request{Text: "Hello"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Olá" {
		t.Errorf("Translate() = %q, want B's result", got)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", a.calls, b.calls)
	}
}

func TestChainQuotaRoutesToFallback(t *testing.T) {
	capped := &fakeProvider{name: "capped", err: ErrQuotaExceeded}
	fallback := &fakeProvider{name: "fallback", out: "Olá"}
	chain := NewChain([]Provider{capped, fallback})

	got, err := chain.Translate(context.Background(), Request{Text: "Hello"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Olá" {
		t.Errorf("Translate() = %q, want fallback result", got)
	}
	// Quota exhaustion is not retried.
	if capped.calls != 1 {
		t.Errorf("capped provider called %d times, want 1", capped.calls)
	}
}

func TestChainPermanentFailureSkipsRetry(t *testing.T) {
	misconfigured := &fakeProvider{name: "misconfigured", err: fmt.Errorf("%w: no API key configured", ErrPermanent)}
	fallback := &fakeProvider{name: "fallback", out: "Olá"}
	chain := NewChain([]Provider{misconfigured, fallback})

	got, err := chain.Translate(context.Background(), Request{Text: "Hello"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Olá" {
		t.Errorf("Translate() = %q, want fallback result", got)
	}
	// A missing key cannot heal on retry; the fallback is reached at once.
	if misconfigured.calls != 1 {
		t.Errorf("misconfigured provider called %d times, want 1", misconfigured.calls)
	}
}

func TestChainAllProvidersFailed(t *testing.T) {
	a := &fakeProvider{name: "a", err: &HTTPError{Provider: "a", Code: 401}}
	b := &fakeProvider{name: "b", err: &HTTPError{Provider: "b", Code: 403}}
	chain := NewChain([]Provider{a, b})

	_, err := chain.Translate(context.Background(), Request{Text: "Hello"})
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Errorf("err = %v, want ErrAllProvidersFailed", err)
	}
}

func TestChainEmptyTranslationIsFailure(t *testing.T) {
	a := &fakeProvider{name: "a", out: "  "}
	b := &fakeProvider{name: "b", out: "Olá"}
	chain := NewChain([]Provider{a, b})

	got, err := chain.Translate(context.Background(), Request{Text: "Hello"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Olá" {
		t.Errorf("Translate() = %q, want fallback result", got)
	}
}

func TestChainIsolatesRequests(t *testing.T) {
	a := &fakeProvider{name: "a", err: &HTTPError{Provider: "a", Code: 400}}
	b := &fakeProvider{name: "b", out: "Olá"}
	chain := NewChain([]Provider{a, b})

	req := Request{Text: "Hello", SourceLang: "en", TargetLang: "pt", Hint: "an RPG"}
	if _, err := chain.Translate(context.Background(), req); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	// Both providers must have seen the identical request value.
	if len(a.seen) != 1 || len(b.seen) != 1 {
		t.Fatal("both providers should have been called once")
	}
	if a.seen[0] != req || b.seen[0] != req {
		t.Error("request mutated between providers")
	}
}

func TestChainBreakerSkipsDeadProvider(t *testing.T) {
	a := &fakeProvider{name: "a", err: &HTTPError{Provider: "a", Code: 400}}
	b := &fakeProvider{name: "b", out: "Olá"}
	chain := NewChain([]Provider{a, b})

	// Trip a's breaker (default threshold is 3).
	for i := 0; i < 4; i++ {
		_, _ = chain.Translate(context.Background(), Request{Text: "Hello"})
	}
	callsBefore := a.calls

	if _, err := chain.Translate(context.Background(), Request{Text: "Hello"}); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if a.calls != callsBefore {
		t.Error("open breaker should skip the provider entirely")
	}
}

func TestChainProviders(t *testing.T) {
	chain := NewChain([]Provider{
		&fakeProvider{name: "x"},
		&fakeProvider{name: "y"},
	})
	names := chain.Providers()
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Errorf("Providers() = %v, want [x y]", names)
	}
}
