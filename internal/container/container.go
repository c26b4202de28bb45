package container

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/admit/internal/metrics"
	"github.com/serroba/admit/internal/ratelimit"
	"go.uber.org/zap"
)

// Options configures the admission service and its consumer.
type Options struct {
	Port          int    `default:"8888"           help:"Port to listen on"                                        short:"p"`
	Strategy      string `default:"perkey"         help:"Admission strategy: perkey, coarse, ring or cloned"       short:"s"`
	MaxRequests   int    `default:"100"            help:"Requests admitted per client within one window"           short:"m"`
	WindowSeconds int    `default:"60"             help:"Sliding window length in seconds"                         short:"w"`
	RedisAddr     string `default:"localhost:6379" help:"Redis server address"                                     short:"r"`
	PostgresDSN   string `default:""               help:"PostgreSQL DSN for stored admission events; empty logs them"`
	LogFormat     string `default:"console"        help:"Log format: console or json"`
	EventsEnabled bool   `default:"false"          help:"Publish rejected requests to Redis streams"`
	EventBuffer   int    `default:"1024"           help:"Events buffered before new ones are dropped"`
	TrustProxy    bool   `default:"false"          help:"Derive client addresses from X-Forwarded-For and X-Real-IP"`
}

// Quota converts the configured limits into a ratelimit.Quota.
func (o *Options) Quota() ratelimit.Quota {
	return ratelimit.Quota{
		Max:    o.MaxRequests,
		Window: time.Duration(o.WindowSeconds) * time.Second,
	}
}

// RedisClient owns the Redis connection so the injector can close it.
type RedisClient struct {
	*redis.Client
}

func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// PostgresPool owns the connection pool so the injector can close it.
type PostgresPool struct {
	*pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// LoggerPackage provides the zap logger selected by LogFormat.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the Redis client used for event streams and health checks.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})}, nil
	})
}

// PostgresPackage provides the pool behind the admission event store.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// MetricsPackage provides the Prometheus collector.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*metrics.Collector, error) {
		return metrics.NewCollector(), nil
	})
}

// RateLimitPackage provides the configured strategy and an instrumented
// limiter keyed by client address.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Strategy, error) {
		opts := do.MustInvoke[*Options](i)

		return ratelimit.ParseStrategy(opts.Strategy)
	})

	do.Provide(injector, func(i *do.Injector) (ratelimit.Limiter[netip.Addr], error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		collector := do.MustInvoke[*metrics.Collector](i)

		strategy, err := do.Invoke[ratelimit.Strategy](i)
		if err != nil {
			return nil, err
		}

		limiter, err := ratelimit.New[netip.Addr](strategy,
			ratelimit.WithQuota(opts.Quota()),
			ratelimit.WithLogger(logger.Named("ratelimit")),
		)
		if err != nil {
			return nil, err
		}

		logger.Info("admission limiter ready",
			zap.String("strategy", string(strategy)),
			zap.Int("max", opts.Quota().Max),
			zap.Duration("window", opts.Quota().Window),
		)

		return metrics.Instrument[netip.Addr](limiter, strategy, collector), nil
	})
}
