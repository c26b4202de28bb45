package main

import (
	"context"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/serroba/admit/internal/loadgen"
	"github.com/serroba/admit/internal/ratelimit"
	"go.uber.org/zap"
)

// Options configures a load run.
type Options struct {
	Strategy      string `default:"all"     help:"Strategy to drive, or all"                 short:"s"`
	Requests      int    `default:"1000000" help:"Total admission decisions per strategy"    short:"n"`
	ChunkSize     int    `default:"1000"    help:"Decisions in flight before waiting"        short:"c"`
	Concurrency   int    `default:"64"      help:"Goroutines per chunk; 1 runs inline"       short:"g"`
	Keys          int    `default:"0"       help:"Distinct addresses; 0 is one per request"  short:"k"`
	Seed          int    `default:"0"       help:"Address generator seed"`
	MaxRequests   int    `default:"100"     help:"Requests admitted per client within one window"`
	WindowSeconds int    `default:"60"      help:"Sliding window length in seconds"`
}

func strategies(name string) ([]ratelimit.Strategy, error) {
	if name == "all" {
		return ratelimit.Strategies(), nil
	}

	s, err := ratelimit.ParseStrategy(name)
	if err != nil {
		return nil, err
	}

	return []ratelimit.Strategy{s}, nil
}

func run(ctx context.Context, logger *zap.Logger, opts *Options) error {
	selected, err := strategies(opts.Strategy)
	if err != nil {
		return err
	}

	cfg := loadgen.Config{
		Requests:    opts.Requests,
		ChunkSize:   opts.ChunkSize,
		Concurrency: opts.Concurrency,
		Keys:        opts.Keys,
		Seed:        uint64(opts.Seed),
	}
	quota := ratelimit.Quota{Max: opts.MaxRequests, Window: time.Duration(opts.WindowSeconds) * time.Second}

	for _, s := range selected {
		limiter, err := ratelimit.New[netip.Addr](s, ratelimit.WithQuota(quota), ratelimit.WithLogger(logger))
		if err != nil {
			return err
		}

		report, err := loadgen.Run(ctx, limiter, cfg)

		logger.Info("load run finished",
			zap.String("run", report.RunID),
			zap.String("strategy", string(s)),
			zap.Int("requests", report.Requests),
			zap.Int64("allowed", report.Allowed),
			zap.Int64("denied", report.Denied),
			zap.Duration("elapsed", report.Elapsed),
			zap.Float64("throughput", report.Throughput()),
		)

		if err != nil {
			return err
		}
	}

	return nil
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		hooks.OnStart(func() {
			defer cancel()

			if err := run(ctx, logger, options); err != nil {
				logger.Fatal("load run failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			cancel()
			_ = logger.Sync()
		})
	})

	cli.Run()
}
