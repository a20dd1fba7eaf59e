package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastRetry keeps backoffs short enough for unit tests.
func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    20 * time.Millisecond,
		MaxBackoff:        80 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func serverClass(error) ErrorClass { return ErrorClassServer }

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1 (no retries by default)", config.MaxAttempts)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfig_Normalize(t *testing.T) {
	got := RetryConfig{}.normalize()

	if got.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", got.MaxAttempts)
	}
	if got.InitialBackoff <= 0 {
		t.Errorf("InitialBackoff = %v, want > 0", got.InitialBackoff)
	}
	if got.MaxBackoff < got.InitialBackoff {
		t.Errorf("MaxBackoff %v < InitialBackoff %v", got.MaxBackoff, got.InitialBackoff)
	}
	if got.BackoffMultiplier < 1 {
		t.Errorf("BackoffMultiplier = %v, want >= 1", got.BackoffMultiplier)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		callCount++
		return nil
	}, serverClass)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_DisabledByDefault(t *testing.T) {
	callCount := 0
	testErr := errors.New("server error")
	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), func() error {
		callCount++
		return testErr
	}, serverClass)

	if callCount != 1 {
		t.Errorf("Expected 1 call with default config, got %d", callCount)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected original error, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Single attempt should not report ErrRetryExhausted")
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, serverClass)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	testErr := errors.New("persistent error")
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		callCount++
		return testErr
	}, serverClass)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected wrapped original error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	callCount := 0
	testErr := errors.New("client error")
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		callCount++
		return testErr
	}, func(error) ErrorClass { return ErrorClassClient })

	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted for client errors")
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	err := retryWithBackoff(ctx, fastRetry(5), func() error {
		callCount++
		if callCount == 1 {
			cancel()
		}
		return errors.New("error")
	}, serverClass)

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount >= 5 {
		t.Errorf("Expected fewer than 5 calls due to cancellation, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	timestamps := []time.Time{}
	_ = retryWithBackoff(context.Background(), fastRetry(3), func() error {
		timestamps = append(timestamps, time.Now())
		return errors.New("error")
	}, serverClass)

	if len(timestamps) != 3 {
		t.Fatalf("Expected 3 timestamps, got %d", len(timestamps))
	}

	firstDelay := timestamps[1].Sub(timestamps[0])
	secondDelay := timestamps[2].Sub(timestamps[1])

	// 20ms then 40ms, each ±20%
	if firstDelay < 15*time.Millisecond {
		t.Errorf("First retry delay %v shorter than expected", firstDelay)
	}
	if secondDelay < 30*time.Millisecond {
		t.Errorf("Second retry delay %v shorter than expected", secondDelay)
	}
}
