package container

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/samber/do"
	"github.com/serroba/admit/internal/analytics"
	"github.com/serroba/admit/internal/analytics/store"
	"github.com/serroba/admit/internal/messaging"
	"go.uber.org/zap"
)

const (
	consumerGroupName = "admit-analytics"
	publishWorkers    = 2
)

// PublisherGroupPackage provides the event publisher. With events disabled
// the publish function discards and Redis is never contacted.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: client.Client},
			messaging.NewZapLogger(logger.Named("watermill")),
		)
		if err != nil {
			return nil, fmt.Errorf("create redis stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.AsyncPublisher[analytics.AdmissionEvent], error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		async := messaging.NewAsyncPublisher(
			analytics.NewPublisher(group.Publisher()),
			opts.EventBuffer,
			publishWorkers,
			logger,
		)

		if err := async.Start(context.Background()); err != nil {
			return nil, err
		}

		return async, nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[analytics.AdmissionEvent], error) {
		opts := do.MustInvoke[*Options](i)
		if !opts.EventsEnabled {
			return messaging.Discard[analytics.AdmissionEvent](), nil
		}

		async, err := do.Invoke[*messaging.AsyncPublisher[analytics.AdmissionEvent]](i)
		if err != nil {
			return nil, err
		}

		return async.Publish, nil
	})
}

// ConsumerGroupPackage provides the consumer group that stores admission
// events. Events go to Postgres when a DSN is configured and to the log otherwise.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (analytics.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.PostgresDSN == "" {
			return store.NewNoop(logger), nil
		}

		pool, err := do.Invoke[*PostgresPool](i)
		if err != nil {
			return nil, err
		}

		pg := store.NewPostgres(pool.Pool)
		if err := pg.Migrate(context.Background()); err != nil {
			return nil, err
		}

		return pg, nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)
		eventStore := do.MustInvoke[analytics.Store](i)

		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        client.Client,
				ConsumerGroup: consumerGroupName,
			},
			messaging.NewZapLogger(logger.Named("watermill")),
		)
		if err != nil {
			return nil, fmt.Errorf("create redis stream subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(analytics.NewConsumer(subscriber, eventStore, logger))

		return group, nil
	})
}
