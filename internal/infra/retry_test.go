package infra_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicelab/internal/infra"
)

func fastRetry(attempts int) infra.RetryConfig {
	return infra.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetry_RecoversFromTransientFailure(t *testing.T) {
	calls := 0
	err := infra.WithRetry(context.Background(), fastRetry(4), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	calls := 0
	want := errors.New("still down")
	err := infra.WithRetry(context.Background(), fastRetry(4), func() error {
		calls++
		return want
	})

	if !errors.Is(err, want) {
		t.Errorf("error: got %v, want %v", err, want)
	}
	if calls != 4 {
		t.Errorf("calls: got %d, want 4", calls)
	}
}

func TestWithRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	want := errors.New("not found")
	err := infra.WithRetry(context.Background(), fastRetry(4), func() error {
		calls++
		return infra.Permanent(want)
	})

	if err != want {
		t.Errorf("error: got %v, want the unwrapped cause", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := infra.WithRetry(ctx, infra.RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 2}, func() error {
		calls++
		cancel()
		return errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, false},
		{302, false},
		{400, false},
		{404, false},
		{429, false},
		{500, true},
		{501, false},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		if got := infra.IsRetryableHTTPStatus(tt.status); got != tt.want {
			t.Errorf("IsRetryableHTTPStatus(%d): got %t, want %t", tt.status, got, tt.want)
		}
	}
}
