package middleware

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/admit/internal/analytics"
	"github.com/serroba/admit/internal/messaging"
	"github.com/serroba/admit/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimitConfig wires the admission middleware.
type RateLimitConfig struct {
	Limiter  ratelimit.Limiter[netip.Addr]
	Strategy ratelimit.Strategy
	// Window is advertised in Retry-After when a request is rejected.
	Window time.Duration
	// Publish receives an event for every rejection. Nil disables events.
	Publish    messaging.Publish[analytics.AdmissionEvent]
	TrustProxy bool
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// RateLimiter returns a Huma middleware that admits requests by client address.
//
// Per-endpoint configuration can be provided via operation metadata using
// MetadataKey; endpoints with Disabled set bypass admission entirely.
func RateLimiter(api huma.API, cfg RateLimitConfig) func(ctx huma.Context, next func(huma.Context)) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	retryAfter := strconv.Itoa(int(math.Ceil(cfg.Window.Seconds())))

	return func(ctx huma.Context, next func(huma.Context)) {
		if ec := GetEndpointConfig(ctx); ec != nil && ec.Disabled {
			next(ctx)

			return
		}

		addr := ClientAddr(ctx, cfg.TrustProxy)
		now := cfg.Now()

		if cfg.Limiter.Allow(addr, now) {
			next(ctx)

			return
		}

		path := getOperationPath(ctx)

		cfg.Logger.Debug("request rejected",
			zap.Stringer("client", addr),
			zap.String("method", ctx.Method()),
			zap.String("path", path),
			zap.String("strategy", string(cfg.Strategy)),
		)

		if cfg.Publish != nil {
			event := analytics.NewAdmissionEvent(addr.String(), string(cfg.Strategy), false, now).
				WithRequest(ctx.Method(), path)

			if err := cfg.Publish(ctx.Context(), event); err != nil {
				cfg.Logger.Warn("failed to publish admission event",
					zap.Stringer("id", event.ID),
					zap.Error(err),
				)
			}
		}

		if cfg.Window > 0 {
			ctx.SetHeader("Retry-After", retryAfter)
		}

		_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")
	}
}

// getOperationPath extracts the path from the operation, if available.
func getOperationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ctx.URL().Path
}
