package gateway

import (
	"time"

	"github.com/rparrett/jornet/internal/domain/dedupe"
	"github.com/rparrett/jornet/pkg/logger"
)

const (
	defaultMaxAttempts   = 4
	defaultRetryInitial  = 50 * time.Millisecond
	defaultRetryMaxDelay = time.Second
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithDeduper replaces the default idempotency cache.
func WithDeduper(d dedupe.Deduper) Option {
	return func(g *Gateway) {
		if d != nil {
			g.deduper = d
		}
	}
}

// WithRebuildNotifier wires the rebuild queue so index inconsistencies
// trigger recovery.
func WithRebuildNotifier(n RebuildNotifier) Option {
	return func(g *Gateway) {
		g.notifier = n
	}
}

// WithMaxAttempts bounds persistence retries, including the first attempt.
func WithMaxAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRetryInterval sets the initial and maximum backoff delays between
// persistence retries.
func WithRetryInterval(initial, maxDelay time.Duration) Option {
	return func(g *Gateway) {
		if initial > 0 {
			g.retryInitial = initial
		}
		if maxDelay > 0 {
			g.retryMaxDelay = maxDelay
		}
	}
}

// WithLogger replaces the default named logger.
func WithLogger(log logger.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}
