package engine

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2.0}
}

func TestRetryDoSucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	result, err := RetryDo(context.Background(), fastRetry(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("RetryDo: %v", err)
	}
	if result != "ok" || calls != 3 {
		t.Errorf("result = %q after %d calls", result, calls)
	}
}

func TestRetryDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	_, err := RetryDo(context.Background(), fastRetry(), func() (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on non-retryable)", calls)
	}
}

func TestRetryDoExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), fastRetry(), func() (int, error) {
		calls++
		return 0, &httpStatusError{StatusCode: 503}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", calls)
	}
}

func TestRetryDoHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := RetryDo(ctx, fastRetry(), func() (int, error) {
		calls++
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableStatus(code) {
			t.Errorf("IsRetryableStatus(%d) = false", code)
		}
	}
	for _, code := range []int{200, 201, 204, 400, 401, 403, 404} {
		if IsRetryableStatus(code) {
			t.Errorf("IsRetryableStatus(%d) = true", code)
		}
	}
}
