package httpx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicySucceedsAfterTransientFailures(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)
	attempts := 0
	err := policy.Execute(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryPolicyExhaustsAttempts(t *testing.T) {
	policy := NewRetryPolicy(2, time.Millisecond)
	attempts := 0
	err := policy.Execute(context.Background(), func() error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryPolicyRespectsCancellation(t *testing.T) {
	policy := NewRetryPolicy(5, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := policy.Execute(ctx, func() error {
		attempts++
		if attempts == 1 {
			cancel()
		}
		return errors.New("fails")
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt before cancellation, got %d", attempts)
	}
}
