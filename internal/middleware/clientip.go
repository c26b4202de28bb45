package middleware

import (
	"net/netip"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/admit/internal/handlers"
)

// ClientAddr resolves the address a request is admitted under. Forwarding
// headers are honoured only when trustProxy is set; otherwise a client could
// pick its own bucket. Unparseable addresses map to the zero Addr, so all of
// them share one bucket.
func ClientAddr(ctx huma.Context, trustProxy bool) netip.Addr {
	if trustProxy {
		// Take the first IP (original client)
		if xff := ctx.Header("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")

			return parseAddr(first)
		}

		if xri := ctx.Header("X-Real-IP"); xri != "" {
			return parseAddr(xri)
		}
	}

	return parseAddr(ctx.RemoteAddr())
}

func parseAddr(raw string) netip.Addr {
	raw = strings.TrimSpace(raw)

	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().Unmap()
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}
	}

	return addr.Unmap()
}

// RequestMeta is a middleware that adds the client address and user-agent to the request context.
func RequestMeta(_ huma.API, trustProxy bool) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			ClientAddr: ClientAddr(ctx, trustProxy),
			UserAgent:  ctx.Header("User-Agent"),
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}
