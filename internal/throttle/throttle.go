// Package throttle paces outbound ranking API calls with a token bucket.
package throttle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/antyra/ranksync/internal/metrics"
)

// Pacer enforces a minimum interval between ranking API requests. The API
// contract requires a pause after every call; a single bucket suffices
// because all requests target one host.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer spacing calls at least interval apart. A non-positive
// interval disables pacing.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call is allowed, respecting the context.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveThrottleDelay(d)
	}
	return nil
}
