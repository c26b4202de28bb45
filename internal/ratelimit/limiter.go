package ratelimit

import (
	"time"

	"go.uber.org/zap"
)

const (
	// MaxRequests is the default number of requests admitted per window.
	MaxRequests = 100
	// WindowDuration is the default length of the sliding window.
	WindowDuration = 60 * time.Second
)

// Quota is the fixed sliding-window limit applied to every key.
type Quota struct {
	Max    int
	Window time.Duration
}

// DefaultQuota admits MaxRequests per WindowDuration.
var DefaultQuota = Quota{Max: MaxRequests, Window: WindowDuration}

// cutoff returns the oldest timestamp still inside the window ending at now.
func (q Quota) cutoff(now time.Time) time.Time {
	return now.Add(-q.Window)
}

// Limiter decides whether a request from key at time now is admitted.
// Implementations are safe for concurrent use and never block on I/O.
type Limiter[K comparable] interface {
	Allow(key K, now time.Time) bool
}

type options struct {
	quota  Quota
	logger *zap.Logger
}

// Option configures a limiter at construction time.
type Option func(*options)

// WithQuota overrides the default quota. Non-positive fields keep their defaults.
func WithQuota(q Quota) Option {
	return func(o *options) {
		if q.Max > 0 {
			o.quota.Max = q.Max
		}

		if q.Window > 0 {
			o.quota.Window = q.Window
		}
	}
}

// WithLogger sets the logger used to report recovered failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		quota:  DefaultQuota,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
