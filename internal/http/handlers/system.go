package handlers

import (
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"
)

// Version is reported by the banner endpoint.
var Version = "dev"

// Healthz reports liveness and database reachability.
func Healthz(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		status := "ok"
		dbStatus := "ok"

		reqCtx, cancel := requestContext()
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(reqCtx)
		}
		if err != nil {
			status = "degraded"
			dbStatus = err.Error()
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		}
		jsonResponse(ctx, map[string]any{
			"status":   status,
			"database": dbStatus,
			"time":     time.Now().UTC(),
		})
	}
}

// Banner describes the service at the root path.
func Banner() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		jsonResponse(ctx, map[string]any{
			"service": "feetfit",
			"version": Version,
			"endpoints": []string{
				"POST /v1/samples",
				"POST /v1/analysis/gait",
				"GET /v1/analysis/history",
				"GET /v1/analysis/latest",
				"GET /v1/analysis/{id}",
				"GET /v1/analysis/{id}/export",
				"GET /v1/devices",
				"GET /v1/data/stats",
				"GET /v1/metrics/realtime",
				"GET /v1/pressure/frames",
				"GET /v1/pressure/stats",
			},
		})
	}
}
