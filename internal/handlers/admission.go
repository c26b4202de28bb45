package handlers

import (
	"context"
	"net/netip"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/admit/internal/analytics"
	"github.com/serroba/admit/internal/messaging"
	"github.com/serroba/admit/internal/ratelimit"
	"go.uber.org/zap"
)

// AdmissionHandler answers explicit admission checks against the shared limiter.
type AdmissionHandler struct {
	limiter  ratelimit.Limiter[netip.Addr]
	strategy ratelimit.Strategy
	publish  messaging.Publish[analytics.AdmissionEvent]
	now      func() time.Time
	logger   *zap.Logger
}

// NewAdmissionHandler creates a new admission handler. Every decision is
// handed to publish.
func NewAdmissionHandler(
	limiter ratelimit.Limiter[netip.Addr],
	strategy ratelimit.Strategy,
	publish messaging.Publish[analytics.AdmissionEvent],
	logger *zap.Logger,
) *AdmissionHandler {
	return &AdmissionHandler{
		limiter:  limiter,
		strategy: strategy,
		publish:  publish,
		now:      time.Now,
		logger:   logger,
	}
}

func (h *AdmissionHandler) Check(ctx context.Context, req *AdmissionRequest) (*AdmissionResponse, error) {
	key, err := h.resolveKey(ctx, req.Body.Key)
	if err != nil {
		return nil, err
	}

	now := h.now()
	if req.Body.Timestamp != nil {
		now = *req.Body.Timestamp
	}

	allowed := h.limiter.Allow(key, now)

	event := analytics.NewAdmissionEvent(key.String(), string(h.strategy), allowed, now).
		WithRequest("POST", "/admissions")
	if err := h.publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish admission event",
			zap.Stringer("id", event.ID),
			zap.Error(err),
		)
	}

	resp := &AdmissionResponse{}
	resp.Body.Allowed = allowed
	resp.Body.Key = key.String()
	resp.Body.Strategy = string(h.strategy)

	return resp, nil
}

func (h *AdmissionHandler) resolveKey(ctx context.Context, raw string) (netip.Addr, error) {
	if raw == "" {
		addr := RequestMetaFromContext(ctx).ClientAddr
		if !addr.IsValid() {
			return netip.Addr{}, huma.Error422UnprocessableEntity("key is required when the client address is unknown")
		}

		return addr, nil
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, huma.Error422UnprocessableEntity("key must be an IP address", err)
	}

	return addr.Unmap(), nil
}
