package container

import (
	"net/netip"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/admit/internal/analytics"
	"github.com/serroba/admit/internal/handlers"
	"github.com/serroba/admit/internal/health"
	"github.com/serroba/admit/internal/messaging"
	"github.com/serroba/admit/internal/metrics"
	"github.com/serroba/admit/internal/middleware"
	"github.com/serroba/admit/internal/ratelimit"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with admission
// middleware and all routes registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		collector := do.MustInvoke[*metrics.Collector](i)
		limiter := do.MustInvoke[ratelimit.Limiter[netip.Addr]](i)
		strategy := do.MustInvoke[ratelimit.Strategy](i)
		publish := do.MustInvoke[messaging.Publish[analytics.AdmissionEvent]](i)

		// Scrapes bypass huma and therefore admission.
		router.Handle("/metrics", collector.Handler())

		api := humachi.New(router, huma.DefaultConfig("Admit", "1.0.0"))

		api.UseMiddleware(middleware.RequestMeta(api, opts.TrustProxy))
		api.UseMiddleware(middleware.RateLimiter(api, middleware.RateLimitConfig{
			Limiter:    limiter,
			Strategy:   strategy,
			Window:     opts.Quota().Window,
			Publish:    publish,
			TrustProxy: opts.TrustProxy,
			Logger:     logger.Named("admission"),
		}))

		healthHandler := health.NewHandler(string(strategy), healthDependencies(i, opts)...)
		health.RegisterRoutes(api, healthHandler, middleware.Exempt())

		admissionHandler := handlers.NewAdmissionHandler(limiter, strategy, publish, logger)
		handlers.RegisterRoutes(api, admissionHandler, middleware.Exempt())

		return api, nil
	})
}

func healthDependencies(i *do.Injector, opts *Options) []health.Dependency {
	redisDep := health.Dependency{Name: "redis"}
	if opts.EventsEnabled {
		redisDep.Checker = health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client)
	}

	return []health.Dependency{redisDep}
}
