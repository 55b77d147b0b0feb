package handlers

import (
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "feetfit/internal/db"
)

const maxPressureFrames = 1000

type pressureFrameJSON struct {
	ID          uint      `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	DeviceName  string    `json:"device_name"`
	SensorType  string    `json:"sensor_type"`
	Subject     string    `json:"subject"`
	Activity    string    `json:"activity"`
	TrialNumber int       `json:"trial_number"`
	Filename    string    `json:"filename"`
	Points      []float64 `json:"points"`
}

func pressureFilter(ctx *fasthttp.RequestCtx) (dbpkg.PressureFilter, error) {
	trial, err := queryInt(ctx, "trial", 0)
	if err != nil {
		return dbpkg.PressureFilter{}, err
	}
	return dbpkg.PressureFilter{
		Subject:  string(ctx.QueryArgs().Peek("subject")),
		Activity: string(ctx.QueryArgs().Peek("activity")),
		Trial:    trial,
	}, nil
}

// PressureFrames pages through insole frames for one session filter.
func PressureFrames(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		f, err := pressureFilter(ctx)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		offset, err := queryInt(ctx, "offset", 0)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		limit, err := queryInt(ctx, "limit", 50)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		limit = min(limit, maxPressureFrames)

		reqCtx, cancel := requestContext()
		defer cancel()
		rows, err := dbpkg.ListPressureFrames(reqCtx, db, f, offset, limit)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		frames := make([]pressureFrameJSON, 0, len(rows))
		for _, r := range rows {
			frames = append(frames, pressureFrameJSON{
				ID:          r.ID,
				Timestamp:   r.Timestamp,
				DeviceName:  r.DeviceName,
				SensorType:  r.SensorType,
				Subject:     r.Subject,
				Activity:    r.Activity,
				TrialNumber: r.TrialNumber,
				Filename:    r.Filename,
				Points:      r.Values(),
			})
		}
		jsonResponse(ctx, map[string]any{
			"frames": frames,
			"count":  len(frames),
			"offset": offset,
		})
	}
}

// PressureStats aggregates insole frames per subject, activity and device.
func PressureStats(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		f, err := pressureFilter(ctx)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		reqCtx, cancel := requestContext()
		defer cancel()
		stats, err := dbpkg.PressureStats(reqCtx, db, f)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		jsonResponse(ctx, map[string]any{"stats": stats})
	}
}
