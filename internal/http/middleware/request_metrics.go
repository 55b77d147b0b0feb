package middleware

import (
	"time"

	"github.com/valyala/fasthttp"

	"feetfit/internal/metrics"
)

// RequestMetrics records method, status and latency of every request in the
// service's prometheus collectors. Scrapes and health checks are skipped.
func RequestMetrics(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)

		switch string(ctx.Path()) {
		case "/metrics", "/healthz":
			return
		}
		metrics.ObserveHTTP(string(ctx.Method()), ctx.Response.StatusCode(), time.Since(start))
	}
}
