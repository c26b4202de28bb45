// Package loadgen drives a limiter with bursts of random client addresses and
// reports how many requests were admitted and how quickly.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/serroba/admit/internal/ratelimit"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidConfig is returned by Run for configurations it cannot execute.
var ErrInvalidConfig = errors.New("invalid load config")

const runIDLength = 10

// Config describes one load run.
type Config struct {
	// Requests is the total number of Allow calls.
	Requests int
	// ChunkSize is how many calls are in flight before the run waits for
	// them all to finish.
	ChunkSize int
	// Concurrency bounds the goroutines working a chunk. 1 runs the chunk
	// inline on the calling goroutine.
	Concurrency int
	// Keys is the size of the address pool. 0 draws a fresh random address
	// for every request.
	Keys int
	// Seed makes address generation reproducible.
	Seed uint64
}

// DefaultConfig mirrors a one million request burst in chunks of one thousand.
func DefaultConfig() Config {
	return Config{
		Requests:    1_000_000,
		ChunkSize:   1000,
		Concurrency: 64,
	}
}

func (c Config) validate() error {
	switch {
	case c.Requests <= 0:
		return fmt.Errorf("%w: requests must be positive", ErrInvalidConfig)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	case c.Concurrency <= 0:
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	case c.Keys < 0:
		return fmt.Errorf("%w: keys must not be negative", ErrInvalidConfig)
	}

	return nil
}

// Report summarises a load run.
type Report struct {
	RunID    string
	Requests int
	Allowed  int64
	Denied   int64
	Elapsed  time.Duration
}

// Throughput returns completed decisions per second.
func (r Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}

	return float64(r.Allowed+r.Denied) / r.Elapsed.Seconds()
}

// Run sends cfg.Requests decisions to limiter. Keys are generated before the
// clock starts. Cancellation is checked between chunks; the partial report is
// returned together with the context error.
func Run(ctx context.Context, limiter ratelimit.Limiter[netip.Addr], cfg Config) (Report, error) {
	if err := cfg.validate(); err != nil {
		return Report{}, err
	}

	newID, err := nanoid.Standard(runIDLength)
	if err != nil {
		return Report{}, fmt.Errorf("run id generator: %w", err)
	}

	keys := generateKeys(cfg)
	report := Report{RunID: newID(), Requests: cfg.Requests}

	var allowed, denied atomic.Int64

	decide := func(key netip.Addr) {
		if limiter.Allow(key, time.Now()) {
			allowed.Add(1)
		} else {
			denied.Add(1)
		}
	}

	start := time.Now()

	for lo := 0; lo < len(keys); lo += cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			report.Allowed, report.Denied = allowed.Load(), denied.Load()
			report.Elapsed = time.Since(start)

			return report, err
		}

		chunk := keys[lo:min(lo+cfg.ChunkSize, len(keys))]

		if cfg.Concurrency == 1 {
			for _, key := range chunk {
				decide(key)
			}

			continue
		}

		var g errgroup.Group
		g.SetLimit(cfg.Concurrency)

		for _, key := range chunk {
			g.Go(func() error {
				decide(key)

				return nil
			})
		}

		_ = g.Wait()
	}

	report.Allowed, report.Denied = allowed.Load(), denied.Load()
	report.Elapsed = time.Since(start)

	return report, nil
}

func generateKeys(cfg Config) []netip.Addr {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	if cfg.Keys == 0 {
		keys := make([]netip.Addr, cfg.Requests)
		for i := range keys {
			keys[i] = randomAddr(rng)
		}

		return keys
	}

	pool := make([]netip.Addr, cfg.Keys)
	for i := range pool {
		pool[i] = randomAddr(rng)
	}

	keys := make([]netip.Addr, cfg.Requests)
	for i := range keys {
		keys[i] = pool[rng.IntN(len(pool))]
	}

	return keys
}

func randomAddr(rng *rand.Rand) netip.Addr {
	v := rng.Uint32()

	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}
