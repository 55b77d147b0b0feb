package handlers

import (
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "feetfit/internal/db"
)

// Devices lists every device that has uploaded samples.
func Devices(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		reqCtx, cancel := requestContext()
		defer cancel()

		devices, err := dbpkg.DeviceSummaries(reqCtx, db, time.Now())
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		active := 0
		for _, d := range devices {
			if d.Active {
				active++
			}
		}
		jsonResponse(ctx, map[string]any{
			"devices": devices,
			"total":   len(devices),
			"active":  active,
		})
	}
}

// DataStats summarises everything stored.
func DataStats(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		reqCtx, cancel := requestContext()
		defer cancel()

		stats, err := dbpkg.CollectDataStats(reqCtx, db, time.Now())
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		jsonResponse(ctx, stats)
	}
}

// maxRealtimeMinutes caps the "minutes" query of RealtimeMetrics.
const maxRealtimeMinutes = 60

// RealtimeMetrics summarises the last few minutes of samples.
func RealtimeMetrics(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		window := dbpkg.RealtimeWindow
		minutes, err := queryInt(ctx, "minutes", 0)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		if minutes > 0 {
			window = time.Duration(min(minutes, maxRealtimeMinutes)) * time.Minute
		}

		reqCtx, cancel := requestContext()
		defer cancel()
		m, err := dbpkg.RealtimeStats(reqCtx, db, time.Now(), window)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		jsonResponse(ctx, m)
	}
}
