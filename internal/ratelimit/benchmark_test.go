package ratelimit_test

import (
	"math/rand/v2"
	"net/netip"
	"testing"
	"time"

	"github.com/serroba/admit/internal/ratelimit"
)

const benchKeys = 1 << 16

func benchAddrs() []netip.Addr {
	rng := rand.New(rand.NewPCG(1, 2))
	addrs := make([]netip.Addr, benchKeys)

	for i := range addrs {
		v := rng.Uint32()
		addrs[i] = netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
	}

	return addrs
}

func BenchmarkAllow(b *testing.B) {
	addrs := benchAddrs()

	for _, s := range ratelimit.Strategies() {
		b.Run(string(s)+"/sequential", func(b *testing.B) {
			l, _ := ratelimit.New[netip.Addr](s)
			b.ReportAllocs()

			i := 0
			for b.Loop() {
				l.Allow(addrs[i%benchKeys], time.Now())
				i++
			}
		})

		b.Run(string(s)+"/parallel", func(b *testing.B) {
			l, _ := ratelimit.New[netip.Addr](s)
			b.ReportAllocs()

			b.RunParallel(func(pb *testing.PB) {
				i := rand.IntN(benchKeys)
				for pb.Next() {
					l.Allow(addrs[i%benchKeys], time.Now())
					i++
				}
			})
		})

		b.Run(string(s)+"/hot-key", func(b *testing.B) {
			l, _ := ratelimit.New[netip.Addr](s)

			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					l.Allow(localhost, time.Now())
				}
			})
		})
	}
}
