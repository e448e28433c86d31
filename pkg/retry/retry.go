// Package retry provides bounded retry with configurable backoff. The
// bootstrap uses it to absorb transient token-endpoint failures without ever
// retrying a fatal one.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/worklab/sessiond/pkg/schema"
)

// Func represents a function that can be retried.
type Func func() error

// Executor handles the retry logic.
type Executor struct {
	config schema.RetryConfig
	rand   *rand.Rand
}

// New creates a new retry executor with the given config.
func New(config schema.RetryConfig) *Executor {
	return &Executor{
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// MaxElapsedTimeError reports that the retry loop ran out of wall-clock
// budget before running out of attempts.
type MaxElapsedTimeError struct {
	MaxElapsedTime time.Duration
}

func (e MaxElapsedTimeError) Error() string {
	return fmt.Sprintf("retry timeout exceeded after %v", e.MaxElapsedTime)
}

// Execute runs the function, retrying every error.
func (e *Executor) Execute(ctx context.Context, fn Func) error {
	return e.ExecuteWithPredicate(ctx, fn, func(error) bool { return true })
}

// ExecuteWithPredicate runs the function, retrying only errors for which
// shouldRetry returns true. Non-retryable errors are returned unwrapped so
// callers can classify them.
func (e *Executor) ExecuteWithPredicate(ctx context.Context, fn Func, shouldRetry func(error) bool) error {
	startTime := time.Now()

	var err error
	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		if e.config.MaxElapsedTime > 0 && time.Since(startTime) > e.config.MaxElapsedTime {
			return MaxElapsedTimeError{MaxElapsedTime: e.config.MaxElapsedTime}
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !shouldRetry(err) {
			return err
		}

		if attempt == e.config.MaxAttempts {
			return fmt.Errorf("max attempts (%d) exceeded, last error: %w", e.config.MaxAttempts, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(e.calculateDelay(attempt)):
		}
	}
	return err
}

const jitterFlipChance = 0.5

// calculateDelay calculates the delay for the next retry attempt.
func (e *Executor) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch e.config.BackoffStrategy {
	case schema.BackoffConstant:
		delay = e.config.InitialDelay
	case schema.BackoffLinear:
		delay = time.Duration(float64(e.config.InitialDelay) * float64(attempt))
	case schema.BackoffExponential:
		delay = time.Duration(float64(e.config.InitialDelay) * math.Pow(e.config.Multiplier, float64(attempt-1)))
	default:
		delay = e.config.InitialDelay
	}

	if e.config.MaxDelay > 0 && delay > e.config.MaxDelay {
		delay = e.config.MaxDelay
	}

	if e.config.RandomJitter {
		jitter := time.Duration(e.rand.Float64() * float64(delay) * 0.1) // 10% jitter
		if e.rand.Float64() < jitterFlipChance {
			delay += jitter
		} else {
			delay -= jitter
		}
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

// Do is a convenience function that creates an executor and runs the function.
func Do(ctx context.Context, config *schema.RetryConfig, fn Func) error {
	if config == nil {
		temp := DefaultConfig()
		config = &temp
	}
	return New(*config).Execute(ctx, fn)
}

// WithPredicate allows you to specify which errors should trigger a retry.
func WithPredicate(ctx context.Context, config *schema.RetryConfig, fn Func, shouldRetry func(error) bool) error {
	if config == nil {
		temp := DefaultConfig()
		config = &temp
	}
	return New(*config).ExecuteWithPredicate(ctx, fn, shouldRetry)
}

const (
	defaultInitialDelay   = 100 * time.Millisecond
	defaultMaxDelay       = 5 * time.Second
	defaultMaxElapsedTime = 5 * time.Minute
)

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() schema.RetryConfig {
	return schema.RetryConfig{
		MaxAttempts:     3,
		BackoffStrategy: schema.BackoffExponential,
		InitialDelay:    defaultInitialDelay,
		MaxDelay:        defaultMaxDelay,
		RandomJitter:    true,
		Multiplier:      2.0,
		MaxElapsedTime:  defaultMaxElapsedTime,
	}
}
