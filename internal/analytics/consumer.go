package analytics

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/admit/internal/messaging"
	"go.uber.org/zap"
)

// NewHandler persists each admission event to store. Store failures are
// returned so the message is redelivered.
func NewHandler(store Store, logger *zap.Logger) messaging.Handler[AdmissionEvent] {
	return func(ctx context.Context, event *AdmissionEvent) error {
		if err := store.SaveAdmission(ctx, event); err != nil {
			return fmt.Errorf("save admission %s: %w", event.ID, err)
		}

		logger.Debug("admission event stored",
			zap.Stringer("id", event.ID),
			zap.String("key", event.Key),
			zap.Bool("allowed", event.Allowed),
		)

		return nil
	}
}

// NewConsumer subscribes to admission events and hands them to store.
func NewConsumer(subscriber message.Subscriber, store Store, logger *zap.Logger) *messaging.Consumer[AdmissionEvent] {
	return messaging.NewConsumer(subscriber, TopicAdmissionDecided, NewHandler(store, logger), logger)
}
