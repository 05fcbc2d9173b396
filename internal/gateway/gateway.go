// Package gateway wraps model provider clients with rate limiting, retry
// with exponential backoff, and provider fallback.
package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"hoadon/internal/domain"
	"hoadon/internal/port"
)

// Config controls retry and request-size behavior of the Gateway.
type Config struct {
	MaxAttempts     int
	RetryBase       time.Duration
	MaxRequestBytes int64
}

// Gateway drives a ModelClient with an upstream rate limiter and a
// bounded retry loop. Transient failures are retried with exponential
// backoff; permanent failures are mapped to domain errors immediately.
type Gateway struct {
	client  port.ModelClient
	limiter *Limiter
	cfg     Config
}

// New creates a Gateway. limiter may be nil to disable client-side
// rate limiting.
func New(client port.ModelClient, limiter *Limiter, cfg Config) *Gateway {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	return &Gateway{client: client, limiter: limiter, cfg: cfg}
}

// Invoke sends a completion request upstream, retrying transient failures.
// The returned error is always a *domain.ExtractionError.
func (g *Gateway) Invoke(ctx context.Context, req port.CompletionRequest) (*port.Completion, error) {
	if size := estimateRequestBytes(req); g.cfg.MaxRequestBytes > 0 && size > g.cfg.MaxRequestBytes {
		return nil, domain.NewInvalidInput(
			fmt.Sprintf("request payload is %d bytes, exceeds limit of %d bytes", size, g.cfg.MaxRequestBytes))
	}

	var lastErr error
	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := g.cfg.RetryBase * (1 << (attempt - 1))
			log.Printf("gateway.Invoke: attempt %d/%d after %s backoff", attempt+1, g.cfg.MaxAttempts, backoff)
			select {
			case <-ctx.Done():
				return nil, domain.NewCancelled(ctx.Err())
			case <-time.After(backoff):
			}
		}

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, domain.NewCancelled(err)
			}
		}

		out, err := g.client.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, domain.NewCancelled(ctx.Err())
		}

		var authErr *AuthError
		if errors.As(err, &authErr) {
			return nil, domain.NewUpstreamUnavailable(
				fmt.Sprintf("provider %s rejected credentials (status %d)", authErr.Provider, authErr.Status), err)
		}

		lastErr = err
	}

	var rlErr *RateLimitError
	if errors.As(lastErr, &rlErr) {
		return nil, domain.NewRateLimited(
			fmt.Sprintf("rate limited after %d attempts, retry after %s", g.cfg.MaxAttempts, rlErr.RetryAfter), lastErr)
	}
	return nil, domain.NewUpstreamUnavailable(
		fmt.Sprintf("model request failed after %d attempts", g.cfg.MaxAttempts), lastErr)
}

// estimateRequestBytes approximates the outbound payload size. Image bytes
// are sent base64-encoded, so they count at 4/3 of their raw size.
func estimateRequestBytes(req port.CompletionRequest) int64 {
	size := int64(len(req.Prompt))
	if len(req.Image) > 0 {
		size += int64(base64.StdEncoding.EncodedLen(len(req.Image)))
	}
	return size
}
