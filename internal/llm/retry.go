package llm

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// RetryConfig configures retry behavior for a single LLM call.
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	TimeoutPerRetry time.Duration
}

// DefaultRetryConfig keeps each attempt within perCallTimeout (the
// configured LLMTimeout): a retry that blew past that budget would defeat
// the point of a bounded turn.
func DefaultRetryConfig(perCallTimeout time.Duration) RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        4 * time.Second,
		BackoffFactor:   2.0,
		TimeoutPerRetry: perCallTimeout,
	}
}

// RetryWrapper wraps an llms.Model with retry logic for transient
// failures, adapted from the same pattern used elsewhere for bounded LLM
// synthesis calls.
type RetryWrapper struct {
	llm     llms.Model
	config  RetryConfig
	verbose bool
}

func NewRetryWrapper(model llms.Model, config RetryConfig, verbose bool) *RetryWrapper {
	return &RetryWrapper{llm: model, config: config, verbose: verbose}
}

func (w *RetryWrapper) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var lastErr error
	delay := w.config.InitialDelay

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("llm: context cancelled before attempt %d: %w", attempt+1, ctx.Err())
		default:
		}

		retryTimeout := w.config.TimeoutPerRetry
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < retryTimeout {
				retryTimeout = remaining
			}
		}
		if retryTimeout <= 0 {
			return nil, fmt.Errorf("llm: insufficient time remaining for attempt %d", attempt+1)
		}

		retryCtx, cancel := context.WithTimeout(ctx, retryTimeout)
		resp, err := w.llm.GenerateContent(retryCtx, messages, options...)
		cancel()

		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt >= w.config.MaxRetries || !isRetryableError(err) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("llm: context cancelled during retry delay: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * w.config.BackoffFactor)
		if delay > w.config.MaxDelay {
			delay = w.config.MaxDelay
		}
	}

	return nil, fmt.Errorf("llm: call failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())

	for _, substr := range []string{
		"context canceled", "context cancelled", "context deadline exceeded",
		"connection refused", "connection reset", "connection timeout", "timeout",
		"no such host", "network is unreachable", "temporary failure",
		"500", "502", "503", "504", "429",
		"rate limit", "overloaded", "server error", "service unavailable", "dns",
	} {
		if strings.Contains(errStr, substr) {
			return true
		}
	}

	if netErr, ok := err.(net.Error); ok {
		return netErr.Timeout()
	}
	if urlErr, ok := err.(*url.Error); ok {
		return isRetryableError(urlErr.Err)
	}
	return false
}
