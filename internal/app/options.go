package service

import (
	"time"

	"github.com/rparrett/jornet/internal/registry"
	"github.com/rparrett/jornet/internal/scorestore"
	"github.com/rparrett/jornet/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRegistry injects a registry implementation. Defaults to the
// in-memory registry.
func WithRegistry(reg registry.Registry) Option {
	return func(s *Service) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithScoreStore injects a score store implementation. Defaults to the
// in-memory store.
func WithScoreStore(store scorestore.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of rebuild workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the rebuild queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the submission idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSubmitRetry configures persistence retry behavior for submissions.
func WithSubmitRetry(attempts int, initial, maxDelay time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.submitRetries = attempts
		}
		if initial > 0 {
			s.retryInitial = initial
		}
		if maxDelay > 0 {
			s.retryMaxDelay = maxDelay
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}
