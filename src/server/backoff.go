package server

import (
	"context"
	"math"
	"time"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// RetryConfig bounds how hard the server tries to deliver an error frame:
// one immediate attempt, then up to Attempts retries spaced by Backoff.
type RetryConfig struct {
	Attempts int
	Backoff  BackoffConfig
}

// DefaultRetryConfig yields retries after 4s, 16s, 64s, 256s and 1024s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 5,
		Backoff: BackoffConfig{
			InitialDelay: 4 * time.Second,
			Multiplier:   4.0,
		},
	}
}

// Schedule lists the delay before each retry.
func (c RetryConfig) Schedule() []time.Duration {
	out := make([]time.Duration, 0, c.Attempts)
	for i := 1; i <= c.Attempts; i++ {
		out = append(out, NextBackoffDelay(c.Backoff, i))
	}
	return out
}

// NextBackoffDelay returns the retry delay for attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
