package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryExhaustsAndWrapsLastError(t *testing.T) {
	sentinel := errors.New("still down")
	attempts := 0
	err := Retry(context.Background(), fastConfig(), func() error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, Config{MaxAttempts: 5, BaseDelay: time.Hour}, func() error {
		attempts++
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no waiting on a dead context)", attempts)
	}
}

func TestRetryNoAttemptsDefaultsToOne(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), Config{}, func() error {
		attempts++
		return nil
	})
	if err != nil || attempts != 1 {
		t.Fatalf("got err=%v attempts=%d, want nil/1", err, attempts)
	}
}
