package ratelimit_test

import (
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serroba/admit/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var localhost = netip.MustParseAddr("127.0.0.1")

type strategyCase struct {
	strategy ratelimit.Strategy
	// exact strategies admit precisely Quota.Max per key under concurrency.
	exact bool
}

func strategyCases() []strategyCase {
	return []strategyCase{
		{strategy: ratelimit.StrategyCoarse, exact: true},
		{strategy: ratelimit.StrategyPerKey, exact: true},
		{strategy: ratelimit.StrategyRing},
		{strategy: ratelimit.StrategyCloned},
	}
}

func newLimiter(t *testing.T, s ratelimit.Strategy, opts ...ratelimit.Option) ratelimit.Limiter[netip.Addr] {
	t.Helper()

	l, err := ratelimit.New[netip.Addr](s, opts...)
	require.NoError(t, err)

	return l
}

func TestLimiter_SingleCaller(t *testing.T) {
	t.Parallel()

	for _, tc := range strategyCases() {
		t.Run(string(tc.strategy), func(t *testing.T) {
			t.Parallel()

			t.Run("allows requests under max", func(t *testing.T) {
				l := newLimiter(t, tc.strategy)

				for range ratelimit.MaxRequests - 1 {
					assert.True(t, l.Allow(localhost, baseTime))
				}
			})

			t.Run("allows exactly max at one timestamp", func(t *testing.T) {
				l := newLimiter(t, tc.strategy)

				for range ratelimit.MaxRequests {
					assert.True(t, l.Allow(localhost, baseTime))
				}

				assert.False(t, l.Allow(localhost, baseTime), "request over max should be denied")
			})

			t.Run("allows again after the window rolls over", func(t *testing.T) {
				l := newLimiter(t, tc.strategy)

				for range ratelimit.MaxRequests - 1 {
					require.True(t, l.Allow(localhost, baseTime))
				}

				later := baseTime.Add(ratelimit.WindowDuration + time.Second)
				assert.True(t, l.Allow(localhost, later))
			})

			t.Run("evicts a full window once it expires", func(t *testing.T) {
				l := newLimiter(t, tc.strategy)

				for range ratelimit.MaxRequests {
					require.True(t, l.Allow(localhost, baseTime))
				}

				later := baseTime.Add(ratelimit.WindowDuration + time.Second)
				for range ratelimit.MaxRequests {
					assert.True(t, l.Allow(localhost, later))
				}

				assert.False(t, l.Allow(localhost, later))
			})

			t.Run("keeps requests at the window edge", func(t *testing.T) {
				l := newLimiter(t, tc.strategy)

				for range ratelimit.MaxRequests {
					require.True(t, l.Allow(localhost, baseTime))
				}

				assert.False(t, l.Allow(localhost, baseTime.Add(ratelimit.WindowDuration)))
			})

			t.Run("tracks keys independently", func(t *testing.T) {
				l := newLimiter(t, tc.strategy)
				other := netip.MustParseAddr("10.0.0.1")

				for range ratelimit.MaxRequests {
					l.Allow(localhost, baseTime)
				}

				require.False(t, l.Allow(localhost, baseTime), "first key should be limited")
				assert.True(t, l.Allow(other, baseTime), "second key should still be allowed")
			})

			t.Run("fresh instance starts empty", func(t *testing.T) {
				first := newLimiter(t, tc.strategy)
				for range ratelimit.MaxRequests {
					first.Allow(localhost, baseTime)
				}

				second := newLimiter(t, tc.strategy)
				assert.True(t, second.Allow(localhost, baseTime))
			})

			t.Run("accepts timestamps older than stored ones", func(t *testing.T) {
				l := newLimiter(t, tc.strategy)

				require.True(t, l.Allow(localhost, baseTime))
				assert.True(t, l.Allow(localhost, baseTime.Add(-time.Hour)))
			})

			t.Run("honours a custom quota", func(t *testing.T) {
				l := newLimiter(t, tc.strategy, ratelimit.WithQuota(ratelimit.Quota{Max: 3, Window: time.Second}))

				for range 3 {
					require.True(t, l.Allow(localhost, baseTime))
				}

				assert.False(t, l.Allow(localhost, baseTime))
				assert.True(t, l.Allow(localhost, baseTime.Add(1100*time.Millisecond)))
			})
		})
	}
}

// hammer runs goroutines × perGoroutine calls for key at one timestamp,
// released together, and returns the number admitted.
func hammer(l ratelimit.Limiter[netip.Addr], key netip.Addr, goroutines, perGoroutine int) int {
	var (
		wg       sync.WaitGroup
		admitted atomic.Int64
		start    = make(chan struct{})
	)

	for range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			for range perGoroutine {
				if l.Allow(key, baseTime) {
					admitted.Add(1)
				}
			}
		}()
	}

	close(start)
	wg.Wait()

	return int(admitted.Load())
}

func TestLimiter_ConcurrentSameKey(t *testing.T) {
	const goroutines = 10

	for _, tc := range strategyCases() {
		t.Run(string(tc.strategy), func(t *testing.T) {
			l := newLimiter(t, tc.strategy)

			// The key is new, so every goroutine also races on first insert.
			admitted := hammer(l, localhost, goroutines, ratelimit.MaxRequests+1)

			if tc.exact {
				assert.Equal(t, ratelimit.MaxRequests, admitted)

				return
			}

			assert.GreaterOrEqual(t, admitted, ratelimit.MaxRequests)
			assert.LessOrEqual(t, admitted, goroutines*(ratelimit.MaxRequests+1))
			t.Logf("%s admitted %d of %d (max %d)", tc.strategy, admitted,
				goroutines*(ratelimit.MaxRequests+1), ratelimit.MaxRequests)
		})
	}
}

func TestLimiter_ConcurrentOverlimit(t *testing.T) {
	const (
		threadRequests  = 60
		totalThreads    = 2
		expectedDenials = threadRequests*totalThreads - ratelimit.MaxRequests
	)

	for _, tc := range strategyCases() {
		t.Run(string(tc.strategy), func(t *testing.T) {
			l := newLimiter(t, tc.strategy)

			admitted := hammer(l, localhost, totalThreads, threadRequests)
			denials := threadRequests*totalThreads - admitted

			if tc.exact {
				assert.GreaterOrEqual(t, denials, expectedDenials)

				return
			}

			t.Logf("%s denied %d, expected at least %d under per-key atomicity",
				tc.strategy, denials, expectedDenials)
		})
	}
}

func TestLimiter_ConcurrentManyKeys(t *testing.T) {
	const (
		keys          = 32
		perKeyWorkers = 4
	)

	for _, tc := range strategyCases() {
		if !tc.exact {
			continue
		}

		t.Run(string(tc.strategy), func(t *testing.T) {
			l := newLimiter(t, tc.strategy)

			results := make([]int, keys)

			var wg sync.WaitGroup

			for i := range keys {
				wg.Add(1)

				go func() {
					defer wg.Done()

					key := netip.AddrFrom4([4]byte{10, 0, 0, byte(i)})
					results[i] = hammer(l, key, perKeyWorkers, ratelimit.MaxRequests/2+1)
				}()
			}

			wg.Wait()

			for i, admitted := range results {
				assert.Equal(t, ratelimit.MaxRequests, admitted, "key %d", i)
			}
		})
	}
}
