package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"feetfit/internal/db"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *ReportCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewReportCache(NewRedisKVStore(client), time.Minute, zap.NewNop())
}

func TestReportCache_PutAndLatest(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	first := Analysis{RunID: "run-1", Records: 10, Metrics: map[string]any{"cadence": 170.0}, Report: "r1"}
	second := Analysis{RunID: "run-2", Records: 20, Metrics: map[string]any{"cadence": 172.5}, Report: "r2"}
	require.NoError(t, c.Put(ctx, first))
	require.NoError(t, c.Put(ctx, second))

	latest, err := c.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)
	assert.Equal(t, 172.5, latest.Metrics["cadence"])

	got, err := c.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Records)
	assert.Equal(t, "r1", got.Report)

	assert.True(t, mr.Exists("feetfit:analysis:latest"))
	assert.Equal(t, time.Minute, mr.TTL("feetfit:analysis:run-1"))
}

func TestReportCache_Expiry(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, Analysis{RunID: "run-1"}))
	mr.FastForward(2 * time.Minute)

	_, err := c.Latest(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestReportCache_Miss(t *testing.T) {
	_, c := setupTestRedis(t)
	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestReportCache_CorruptEntry(t *testing.T) {
	mr, c := setupTestRedis(t)
	require.NoError(t, mr.Set("feetfit:analysis:latest", "{not json"))

	_, err := c.Latest(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestReportCache_Disabled(t *testing.T) {
	c := NewReportCache(nil, time.Minute, zap.NewNop())
	assert.Nil(t, c)

	assert.NoError(t, c.Put(context.Background(), Analysis{RunID: "x"}))
	_, err := c.Latest(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestReportCache_WriteFailure(t *testing.T) {
	mr, c := setupTestRedis(t)
	mr.SetError("READONLY")

	err := c.Put(context.Background(), Analysis{RunID: "run-1"})
	assert.Error(t, err)
}

func TestFromReport(t *testing.T) {
	start := time.Date(2025, 6, 5, 18, 0, 0, 0, time.UTC)
	r := &db.GaitReport{
		RunID:       uuid.MustParse("5b0f1c2e-8f5c-4f6a-9d38-2f1d2c3b4a59"),
		CreatedAt:   start.Add(time.Hour),
		WindowStart: &start,
		SampleCount: 600,
		ReportText:  "report",
		Metrics:     datatypes.JSONMap{"step_count": 6.0},
	}
	a := FromReport(r)
	assert.Equal(t, "5b0f1c2e-8f5c-4f6a-9d38-2f1d2c3b4a59", a.RunID)
	assert.Equal(t, 600, a.Records)
	assert.Equal(t, &start, a.WindowStart)
	assert.Nil(t, a.WindowEnd)
	assert.Equal(t, 6.0, a.Metrics["step_count"])
}
