// Package retry provides the shipper's HTTP transport retry policy,
// classifying failures around net.Error and HTTP status codes.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config controls a single DoWithRetry call.
type Config struct {
	Enabled         bool
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultConfig is a moderate general-purpose retry policy. The shipper's
// routine ticks do not use it: each tick sends its heartbeat once.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
	}
}

// StartupConfig is more aggressive, for the first dial to the monitoring
// server on process start.
func StartupConfig() Config {
	return Config{
		Enabled:         true,
		MaxRetries:      5,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2,
	}
}

func normalize(cfg Config) Config {
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return cfg
}

// Category classifies an error for retry purposes.
type Category int

const (
	CategoryRetryable Category = iota
	CategoryPermanent
)

// Classify categorizes an error from an HTTP round trip. Network-level
// errors (dial failure, timeout, connection reset), 5xx-class and 429
// status errors, and unrecognized errors are retryable; other 4xx-class
// client errors are permanent.
func Classify(err error) Category {
	if err == nil {
		return CategoryRetryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryRetryable
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code >= 500 || statusErr.Code == 429 {
			return CategoryRetryable
		}
		return CategoryPermanent
	}
	return CategoryRetryable
}

// IsRetryable reports whether err should be retried.
func IsRetryable(err error) bool {
	return Classify(err) == CategoryRetryable
}

// StatusError wraps a non-2xx HTTP response so Classify can inspect it.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Do executes fn, retrying on retryable errors per cfg's exponential
// backoff schedule until MaxRetries is exhausted or ctx is done.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if !cfg.Enabled {
		return fn(ctx)
	}
	cfg = normalize(cfg)

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = cfg.InitialInterval
	backoffCfg.MaxInterval = cfg.MaxInterval
	backoffCfg.Multiplier = cfg.Multiplier
	backoffCfg.MaxElapsedTime = 0

	attempts := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		if !IsRetryable(err) {
			return err
		}
		if attempts >= cfg.MaxRetries {
			return err
		}
		attempts++

		wait := backoffCfg.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		case <-timer.C:
			continue
		}
	}
}
