package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"feetfit/internal/cache"
	"feetfit/internal/config"
	dbpkg "feetfit/internal/db"
	"feetfit/internal/gait"
	httpctx "feetfit/internal/http/ctx"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func newAnalyzer(t *testing.T) *gait.Analyzer {
	t.Helper()
	a, err := gait.NewAnalyzer(gait.DefaultConfig(), gait.RoleMap{})
	require.NoError(t, err)
	return a
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &out), string(ctx.Response.Body()))
	return out
}

var base = time.Date(2025, 6, 5, 18, 12, 0, 0, time.UTC)

var sampleColumns = []string{
	"id", "timestamp", "device_name", "device_mac",
	"accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z",
	"angle_x", "angle_y", "angle_z", "temperature", "battery_level",
}

// strideRows returns 300 rows at 100 Hz with three 0.15 s contacts.
func strideRows() *sqlmock.Rows {
	rows := sqlmock.NewRows(sampleColumns)
	for i := 0; i < 300; i++ {
		accelZ := 0.2
		if off := i % 100; off >= 50 && off < 65 {
			accelZ = 1.5
		}
		rows.AddRow(i+1, base.Add(time.Duration(i)*10*time.Millisecond), "WTSDCL", "AA",
			0.0, 0.0, accelZ, 0.0, 0.0, 0.0, 15.0, 0.0, 0.0, 25.0, 90)
	}
	return rows
}

func TestParseWindow(t *testing.T) {
	now := base
	cases := []struct {
		query   string
		want    dbpkg.Window
		wantErr bool
	}{
		{"", dbpkg.Window{}, false},
		{"hours=0.5", dbpkg.Window{Start: now.Add(-30 * time.Minute), End: now}, false},
		{"start=2025-06-05T18:00:00Z&end=2025-06-05T18:10:00Z",
			dbpkg.Window{Start: base.Add(-12 * time.Minute), End: base.Add(-2 * time.Minute)}, false},
		{"start=2025-06-05T18:00:00Z", dbpkg.Window{Start: base.Add(-12 * time.Minute)}, false},
		{"hours=-1", dbpkg.Window{}, true},
		{"start=yesterday", dbpkg.Window{}, true},
		{"start=2025-06-05T18:10:00Z&end=2025-06-05T18:00:00Z", dbpkg.Window{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			var ctx fasthttp.RequestCtx
			ctx.Request.SetRequestURI("/v1/analysis/gait?" + tc.query)
			w, err := parseWindow(&ctx, now)
			if tc.wantErr {
				assert.ErrorIs(t, err, errBadWindow)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Start.Equal(w.Start), "start %v", w.Start)
			assert.True(t, tc.want.End.Equal(w.End), "end %v", w.End)
		})
	}
}

func TestIngestSamples(t *testing.T) {
	gdb, mock := setupMockDB(t)
	cfg := &config.Config{RetentionDays: 30}
	mock.ExpectQuery(`INSERT INTO "sensor_samples"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	var ctx fasthttp.RequestCtx
	ctx.Request.SetBodyString(`{"samples":[
		{"timestamp":"2025-06-05T18:12:11.817Z","device_name":"WT901(AA:BB)","accel_z":1.1,"gyro_x":0,"angle_x":0,"accel_x":0,"accel_y":0,"gyro_y":0,"gyro_z":0,"angle_y":0,"angle_z":0},
		{"timestamp":"2025-06-05T18:12:11.827Z","device_name":"WT901(AA:BB)","accel_z":1.2,"gyro_x":0,"angle_x":0,"accel_x":0,"accel_y":0,"gyro_y":0,"gyro_z":0,"angle_y":0,"angle_z":0},
		{"timestamp":"2025-06-05T18:12:11.837Z","device_name":"WT901(AA:BB)","accel_z":1.3}
	]}`)
	httpctx.SetAPIKey(&ctx, &dbpkg.APIKey{ID: 4, RetentionDays: 7})

	IngestSamples(gdb, cfg)(&ctx)

	require.Equal(t, fasthttp.StatusAccepted, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	body := decodeBody(t, &ctx)
	assert.Equal(t, 2.0, body["count"])
	assert.Equal(t, 1.0, body["skipped"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestSamplesRejectsBadBodies(t *testing.T) {
	gdb, _ := setupMockDB(t)
	h := IngestSamples(gdb, &config.Config{RetentionDays: 30})

	for _, body := range []string{`nope`, `{"samples":[]}`, `{"samples":[{"accel_z":1}]}`} {
		var ctx fasthttp.RequestCtx
		ctx.Request.SetBodyString(body)
		h(&ctx)
		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode(), body)
	}
}

func TestAnalyzeGait(t *testing.T) {
	gdb, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "sensor_samples"`).WillReturnRows(strideRows())
	mock.ExpectQuery(`INSERT INTO "gait_reports"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	rc := cache.NewReportCache(cache.NewRedisKVStore(client), time.Minute, zap.NewNop())

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/v1/analysis/gait?start=2025-06-05T18:12:00Z&end=2025-06-05T18:12:03Z")
	AnalyzeGait(gdb, newAnalyzer(t), rc, zap.NewNop())(&ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	body := decodeBody(t, &ctx)
	assert.Equal(t, true, body["success"])
	metrics := body["metrics"].(map[string]any)
	assert.Equal(t, 3.0, metrics["step_count"])
	dataRange := body["data_range"].(map[string]any)
	assert.Equal(t, 300.0, dataRange["records_analyzed"])
	assert.Contains(t, body["report"], "Timing:")

	latest, err := rc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, body["id"], latest.RunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyzeGaitNoDataAndInsufficient(t *testing.T) {
	gdb, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows(sampleColumns))

	flat := sqlmock.NewRows(sampleColumns)
	for i := 0; i < 50; i++ {
		flat.AddRow(i+1, base.Add(time.Duration(i)*10*time.Millisecond), "WTSDCL", "AA",
			0.0, 0.0, 0.1, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 25.0, 90)
	}
	mock.ExpectQuery(`SELECT`).WillReturnRows(flat)

	h := AnalyzeGait(gdb, newAnalyzer(t), nil, zap.NewNop())

	var empty fasthttp.RequestCtx
	h(&empty)
	assert.Equal(t, fasthttp.StatusNotFound, empty.Response.StatusCode())

	var short fasthttp.RequestCtx
	h(&short)
	assert.Equal(t, fasthttp.StatusUnprocessableEntity, short.Response.StatusCode())
	body := decodeBody(t, &short)
	assert.Equal(t, gait.InsufficientDataMessage, body["error"])

	var bad fasthttp.RequestCtx
	bad.Request.SetRequestURI("/v1/analysis/gait?hours=abc")
	h(&bad)
	assert.Equal(t, fasthttp.StatusBadRequest, bad.Response.StatusCode())
}

func reportRows(runID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "run_id", "created_at", "sample_count", "step_count", "cadence",
		"dominant_zone", "trigger", "report_text", "metrics"}).
		AddRow(1, runID.String(), base, 300, 3, 90.0, "midfoot", "api", "Timing:\n  Steps: 3",
			[]byte(`{"cadence":90,"step_count":3}`))
}

func TestAnalysisHistory(t *testing.T) {
	gdb, mock := setupMockDB(t)
	runID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "gait_reports" ORDER BY created_at DESC`).WillReturnRows(reportRows(runID))

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/v1/analysis/history?limit=5")
	AnalysisHistory(gdb)(&ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := decodeBody(t, &ctx)
	assert.Equal(t, 1.0, body["count"])
	first := body["analyses"].([]any)[0].(map[string]any)
	assert.Equal(t, runID.String(), first["id"])
	assert.Equal(t, "midfoot", first["dominant_strike_pattern"])
}

func TestGetAnalysis(t *testing.T) {
	gdb, mock := setupMockDB(t)
	runID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "gait_reports" WHERE run_id = \$1`).WillReturnRows(reportRows(runID))
	mock.ExpectQuery(`SELECT \* FROM "gait_reports" WHERE run_id = \$1`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	h := GetAnalysis(gdb, nil)

	var ctx fasthttp.RequestCtx
	ctx.SetUserValue("id", runID.String())
	h(&ctx)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := decodeBody(t, &ctx)
	assert.Equal(t, runID.String(), body["id"])
	assert.Equal(t, "Timing:\n  Steps: 3", body["report"])

	var missing fasthttp.RequestCtx
	missing.SetUserValue("id", uuid.NewString())
	h(&missing)
	assert.Equal(t, fasthttp.StatusNotFound, missing.Response.StatusCode())

	var bad fasthttp.RequestCtx
	bad.SetUserValue("id", "42")
	h(&bad)
	assert.Equal(t, fasthttp.StatusBadRequest, bad.Response.StatusCode())
}

func TestLatestAnalysisFallsBackToDatabase(t *testing.T) {
	gdb, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "gait_reports" ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	var ctx fasthttp.RequestCtx
	LatestAnalysis(gdb, nil)(&ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestExportAnalysis(t *testing.T) {
	gdb, mock := setupMockDB(t)
	runID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "gait_reports" WHERE run_id = \$1`).WillReturnRows(reportRows(runID))

	var ctx fasthttp.RequestCtx
	ctx.SetUserValue("id", runID.String())
	ExportAnalysis(gdb)(&ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	assert.Contains(t, string(ctx.Response.Header.Peek("Content-Disposition")), runID.String())

	f, err := excelize.OpenReader(bytes.NewReader(ctx.Response.Body()))
	require.NoError(t, err)
	defer f.Close()

	id, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, runID.String(), id)

	metricRows, err := f.GetRows(metricsSheet)
	require.NoError(t, err)
	require.Len(t, metricRows, 3)
	assert.Equal(t, []string{"cadence", "90"}, metricRows[1])
	assert.Equal(t, []string{"step_count", "3"}, metricRows[2])
}

func TestDevices(t *testing.T) {
	gdb, mock := setupMockDB(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT device_mac,`).
		WillReturnRows(sqlmock.NewRows([]string{"device_mac", "device_name", "record_count", "first_seen", "last_seen"}).
			AddRow("AA", "WTSDCL", 10, now.Add(-time.Hour*3), now.Add(-time.Minute)).
			AddRow("BB", "WTSDCL", 4, now.Add(-time.Hour*5), now.Add(-2*time.Hour)))

	var ctx fasthttp.RequestCtx
	Devices(gdb)(&ctx)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := decodeBody(t, &ctx)
	assert.Equal(t, 2.0, body["total"])
	assert.Equal(t, 1.0, body["active"])
}

func TestRealtimeMetricsRejectsBadMinutes(t *testing.T) {
	gdb, _ := setupMockDB(t)
	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/v1/metrics/realtime?minutes=x")
	RealtimeMetrics(gdb)(&ctx)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestPressureFrames(t *testing.T) {
	gdb, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "pressure_frames" WHERE subject = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp", "device_name", "subject", "trial_number", "points"}).
			AddRow(1, base, "solesenseL", "h", 1, []byte(`[12.5,null,3]`)))

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/v1/pressure/frames?subject=h&limit=5000")
	PressureFrames(gdb)(&ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	body := decodeBody(t, &ctx)
	frames := body["frames"].([]any)
	require.Len(t, frames, 1)
	points := frames[0].(map[string]any)["points"].([]any)
	assert.Len(t, points, dbpkg.PressurePoints)
	assert.Equal(t, 12.5, points[0])
	assert.Equal(t, 0.0, points[1])
}

func TestMetricsHandlerPrefix(t *testing.T) {
	reg := prometheus.NewRegistry()
	keep := prometheus.NewCounter(prometheus.CounterOpts{Name: "feetfit_analysis_runs_probe_total", Help: "probe"})
	drop := prometheus.NewCounter(prometheus.CounterOpts{Name: "other_total", Help: "other"})
	reg.MustRegister(keep, drop)
	keep.Inc()
	drop.Inc()

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/metrics?prefix=feetfit_")
	MetricsHandler(reg)(&ctx)

	body := string(ctx.Response.Body())
	assert.Contains(t, body, "feetfit_analysis_runs_probe_total 1")
	assert.NotContains(t, body, "other_total")
}

func TestBanner(t *testing.T) {
	var ctx fasthttp.RequestCtx
	Banner()(&ctx)
	body := decodeBody(t, &ctx)
	assert.Equal(t, "feetfit", body["service"])
}

func TestRequestLoggerKeyPrefix(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(func(ctx *fasthttp.RequestCtx) {
		httpctx.SetAPIKey(ctx, &dbpkg.APIKey{Key: "ff_abcdefghijklmnop"})
		ctx.SetStatusCode(fasthttp.StatusAccepted)
	})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/v1/samples")
	h(&ctx)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/v1/samples", fields["path"])
	assert.Equal(t, int64(fasthttp.StatusAccepted), fields["status"])
	assert.Equal(t, "ff_abcd", fields["api_key"])

	anon := RequestLogger(zap.New(core))(func(ctx *fasthttp.RequestCtx) {})
	var plain fasthttp.RequestCtx
	anon(&plain)
	require.Equal(t, 2, logs.Len())
	assert.NotContains(t, logs.All()[1].ContextMap(), "api_key")
}
