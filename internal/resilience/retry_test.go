package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) StatusCode() int { return e.code }

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		JitterFactor: 0.01,
		IsRetryable:  IsRetryableHTTP,
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return &statusErr{code: 503}
		}
		return nil
	})
	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUpOnNonRetryable(t *testing.T) {
	calls := 0
	wantErr := &statusErr{code: 400}
	err := Retry(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Retry() = %v, want status 400", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (400 is not retryable)", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(), func() error {
		calls++
		return &statusErr{code: 500}
	})
	if err == nil {
		t.Error("Retry() = nil, want error")
	}
	if calls != 4 { // initial attempt + 3 retries
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastConfig(), func() error { return &statusErr{code: 500} })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
}

func TestIsRetryableHTTP(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&statusErr{code: 429}, true},
		{&statusErr{code: 500}, true},
		{&statusErr{code: 503}, true},
		{&statusErr{code: 400}, false},
		{&statusErr{code: 401}, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
		{errors.New("connection reset"), true},
	}
	for _, c := range cases {
		if got := IsRetryableHTTP(c.err); got != c.want {
			t.Errorf("IsRetryableHTTP(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
