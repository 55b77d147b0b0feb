package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"feetfit/internal/cache"
	dbpkg "feetfit/internal/db"
	"feetfit/internal/gait"
	"feetfit/internal/metrics"
)

func analysisBody(a cache.Analysis) map[string]any {
	dataRange := map[string]any{"records_analyzed": a.Records}
	if a.WindowStart != nil {
		dataRange["start"] = a.WindowStart
	}
	if a.WindowEnd != nil {
		dataRange["end"] = a.WindowEnd
	}
	return map[string]any{
		"success":       true,
		"id":            a.RunID,
		"analysis_time": a.AnalysisTime,
		"data_range":    dataRange,
		"metrics":       a.Metrics,
		"report":        a.Report,
	}
}

// AnalyzeGait runs the pipeline over the requested window, persists the
// report and caches it as the latest analysis.
func AnalyzeGait(db *gorm.DB, a *gait.Analyzer, rc *cache.ReportCache, logger *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		w, err := parseWindow(ctx, start.UTC())
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		report, res, err := dbpkg.AnalyzeWindow(reqCtx, db, a, w, dbpkg.TriggerAPI)
		switch {
		case errors.Is(err, dbpkg.ErrNoSamples):
			metrics.ObserveAnalysis(dbpkg.TriggerAPI, "no_data", time.Since(start))
			errResponse(ctx, fasthttp.StatusNotFound, "no sensor data in the requested window")
			return
		case errors.Is(err, dbpkg.ErrInsufficientData):
			metrics.ObserveAnalysis(dbpkg.TriggerAPI, "insufficient", time.Since(start))
			ctx.SetStatusCode(fasthttp.StatusUnprocessableEntity)
			jsonResponse(ctx, map[string]any{
				"success":         false,
				"error":           gait.InsufficientDataMessage,
				"events":          len(res.Events),
				"left_device":     res.LeftDevice,
				"right_device":    res.RightDevice,
				"ignored":         res.IgnoredDevices,
				"skipped_samples": res.SkippedSamples,
			})
			return
		case err != nil:
			metrics.ObserveAnalysis(dbpkg.TriggerAPI, "error", time.Since(start))
			logger.Error("gait analysis failed", zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "analysis failed")
			return
		}

		if len(res.IgnoredDevices) > 0 {
			logger.Warn("extra devices ignored", zap.Strings("devices", res.IgnoredDevices))
		}
		metrics.ObserveAnalysis(dbpkg.TriggerAPI, "ok", time.Since(start))
		metrics.SetLastMetrics(res.Metrics)

		cached := cache.FromReport(report)
		_ = rc.Put(reqCtx, cached)

		body := analysisBody(cached)
		body["devices"] = map[string]any{
			"left":    res.LeftDevice,
			"right":   res.RightDevice,
			"ignored": res.IgnoredDevices,
		}
		jsonResponse(ctx, body)
	}
}

// AnalysisHistory lists the newest reports.
func AnalysisHistory(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		limit, err := queryInt(ctx, "limit", 10)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		reqCtx, cancel := requestContext()
		defer cancel()
		reports, err := dbpkg.ListReports(reqCtx, db, limit)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		summaries := make([]dbpkg.ReportSummary, 0, len(reports))
		for _, r := range reports {
			summaries = append(summaries, r.Summary())
		}
		jsonResponse(ctx, map[string]any{
			"analyses": summaries,
			"count":    len(summaries),
		})
	}
}

func runIDParam(ctx *fasthttp.RequestCtx) (uuid.UUID, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid analysis ID")
		return uuid.Nil, false
	}
	return id, true
}

// loadReport answers 404/500 itself and returns ok=false on failure.
func loadReport(ctx *fasthttp.RequestCtx, db *gorm.DB, id uuid.UUID) (*dbpkg.GaitReport, bool) {
	reqCtx, cancel := requestContext()
	defer cancel()
	r, err := dbpkg.GetReport(reqCtx, db, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			errResponse(ctx, fasthttp.StatusNotFound, "analysis not found")
			return nil, false
		}
		errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
		return nil, false
	}
	return r, true
}

// GetAnalysis returns one analysis, from the cache when present.
func GetAnalysis(db *gorm.DB, rc *cache.ReportCache) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := runIDParam(ctx)
		if !ok {
			return
		}

		reqCtx, cancel := requestContext()
		defer cancel()
		if a, err := rc.Get(reqCtx, id.String()); err == nil {
			jsonResponse(ctx, analysisBody(a))
			return
		}

		r, ok := loadReport(ctx, db, id)
		if !ok {
			return
		}
		jsonResponse(ctx, analysisBody(cache.FromReport(r)))
	}
}

// LatestAnalysis returns the most recent analysis, preferring the cache.
func LatestAnalysis(db *gorm.DB, rc *cache.ReportCache) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		reqCtx, cancel := requestContext()
		defer cancel()

		if a, err := rc.Latest(reqCtx); err == nil {
			jsonResponse(ctx, analysisBody(a))
			return
		}

		reports, err := dbpkg.ListReports(reqCtx, db, 1)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		if len(reports) == 0 {
			errResponse(ctx, fasthttp.StatusNotFound, "no analyses yet")
			return
		}
		jsonResponse(ctx, analysisBody(cache.FromReport(&reports[0])))
	}
}

// ExportAnalysis streams one report as an XLSX workbook.
func ExportAnalysis(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := runIDParam(ctx)
		if !ok {
			return
		}
		r, ok := loadReport(ctx, db, id)
		if !ok {
			return
		}

		body, err := reportWorkbook(r)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to build workbook")
			return
		}
		ctx.SetContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="gait-%s.xlsx"`, r.RunID))
		ctx.SetBody(body)
	}
}
