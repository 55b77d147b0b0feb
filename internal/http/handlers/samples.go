package handlers

import (
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"feetfit/internal/config"
	dbpkg "feetfit/internal/db"
	httpctx "feetfit/internal/http/ctx"
	"feetfit/internal/ingest"
	"feetfit/internal/metrics"
)

// IngestSamples stores a JSON batch of IMU samples uploaded with an API key.
// Samples expire after the key's retention, clamped to the global maximum.
func IngestSamples(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		decoded, err := ingest.DecodeSampleBatch(ctx.PostBody(), "")
		if err != nil {
			if errors.Is(err, ingest.ErrEmptyBatch) {
				errResponse(ctx, fasthttp.StatusBadRequest, "no samples provided")
				return
			}
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(decoded.Samples) == 0 {
			metrics.ObserveIngest(metrics.SourceHTTP, 0, decoded.Skipped)
			errResponse(ctx, fasthttp.StatusBadRequest, "no valid samples after validation")
			return
		}

		now := time.Now()
		var expiresAt *time.Time
		var uploader uint
		if ak, ok := httpctx.APIKeyFromCtx(ctx); ok && ak != nil {
			expiresAt = ak.ExpiresAt(now, cfg.RetentionDays)
			uploader = ak.ID
		} else if cfg.RetentionDays > 0 {
			t := now.Add(time.Duration(cfg.RetentionDays) * 24 * time.Hour)
			expiresAt = &t
		}
		for i := range decoded.Samples {
			decoded.Samples[i].ExpiresAt = expiresAt
			decoded.Samples[i].UploadedBy = uploader
		}

		reqCtx, cancel := requestContext()
		defer cancel()
		if err := dbpkg.InsertSamples(reqCtx, db, decoded.Samples); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist samples")
			return
		}
		metrics.ObserveIngest(metrics.SourceHTTP, len(decoded.Samples), decoded.Skipped)

		ctx.SetStatusCode(fasthttp.StatusAccepted)
		jsonResponse(ctx, map[string]any{
			"status":  "accepted",
			"count":   len(decoded.Samples),
			"skipped": decoded.Skipped,
		})
	}
}
