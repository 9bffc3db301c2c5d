package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkobayashi/jobscout/internal/utils"
)

const (
	defaultCallTimeout    = 12 * time.Second
	defaultBaseRetryDelay = 500 * time.Millisecond
	// Backoff attempts on a rate-limited backend are bounded so sustained
	// throttling moves on to the next backend instead of piling up latency.
	defaultRateLimitRetries = 2
)

// GatewayConfig tunes timeout and backoff behavior of the Gateway.
type GatewayConfig struct {
	// CallTimeout bounds every single backend attempt.
	CallTimeout time.Duration
	// BaseRetryDelay is doubled on every backoff attempt after a 429.
	BaseRetryDelay time.Duration
	// RateLimitRetries is the number of same-backend retries after a 429.
	RateLimitRetries int
}

// Gateway sends prompts to an ordered list of interchangeable reasoning
// backends, falling through to the next one on retryable failures.
type Gateway struct {
	backends []Backend
	cfg      GatewayConfig
	logger   *zap.Logger
}

// NewGateway creates a Gateway over the provided backends. Zero config fields
// fall back to defaults.
func NewGateway(cfg *GatewayConfig, logger *zap.Logger, backends ...Backend) *Gateway {
	resolved := GatewayConfig{}
	if cfg != nil {
		resolved = *cfg
	}

	if resolved.CallTimeout <= 0 {
		resolved.CallTimeout = defaultCallTimeout
	}
	if resolved.BaseRetryDelay <= 0 {
		resolved.BaseRetryDelay = defaultBaseRetryDelay
	}
	if resolved.RateLimitRetries < 0 {
		resolved.RateLimitRetries = defaultRateLimitRetries
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway{
		backends: backends,
		cfg:      resolved,
		logger:   logger,
	}
}

// Call sends the prompt through the backends in priority order and returns the
// first successful response. A non-retryable failure is returned immediately;
// when every backend fails the last error is surfaced wrapped in
// ErrBackendsExhausted.
func (g *Gateway) Call(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	if len(g.backends) == 0 {
		return "", fmt.Errorf("%w: no backends configured", ErrBackendsExhausted)
	}

	var lastErr error
	for _, backend := range g.backends {
		text, err := g.callBackend(ctx, backend, prompt, temperature, maxTokens)
		if err == nil {
			return text, nil
		}

		var status *StatusError
		if errors.As(err, &status) && !status.Retryable() {
			return "", err
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		g.logger.Warn("reasoning backend failed, trying next",
			zap.String("ai_backend", backend.ID()),
			zap.Error(err),
		)
		lastErr = err
	}

	return "", fmt.Errorf("%w: %w", ErrBackendsExhausted, lastErr)
}

// callBackend performs one backend call with the per-call timeout, retrying in
// place with exponential backoff when the backend reports rate limiting.
func (g *Gateway) callBackend(ctx context.Context, backend Backend, prompt string, temperature float32, maxTokens int32) (string, error) {
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		text, err := backend.Generate(callCtx, prompt, temperature, maxTokens)
		cancel()

		if err == nil {
			return text, nil
		}

		if !IsRateLimited(err) || attempt >= g.cfg.RateLimitRetries {
			return "", err
		}

		delay := g.cfg.BaseRetryDelay << attempt
		g.logger.Debug("backend rate limited, backing off",
			zap.String("ai_backend", backend.ID()),
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt+1),
		)

		if waitErr := utils.WaitFor(ctx, delay); waitErr != nil {
			return "", waitErr
		}
	}
}
