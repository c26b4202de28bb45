package store

import (
	"context"

	"github.com/serroba/admit/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveAdmission(_ context.Context, event *analytics.AdmissionEvent) error {
	n.logger.Info("admission event received",
		zap.Stringer("id", event.ID),
		zap.String("key", event.Key),
		zap.String("strategy", event.Strategy),
		zap.Bool("allowed", event.Allowed),
		zap.String("path", event.Path),
		zap.Time("occurredAt", event.OccurredAt),
	)

	return nil
}
