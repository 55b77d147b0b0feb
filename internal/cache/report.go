package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feetfit/internal/db"
)

const (
	keyPrefix = "feetfit:analysis:"
	latestKey = keyPrefix + "latest"
)

// Analysis is the cached form of one analysis run, shaped like the API
// response.
type Analysis struct {
	RunID        string         `json:"id"`
	AnalysisTime time.Time      `json:"analysis_time"`
	WindowStart  *time.Time     `json:"start,omitempty"`
	WindowEnd    *time.Time     `json:"end,omitempty"`
	Records      int            `json:"records_analyzed"`
	Metrics      map[string]any `json:"metrics"`
	Report       string         `json:"report"`
}

// FromReport converts a saved report into its cached form.
func FromReport(r *db.GaitReport) Analysis {
	return Analysis{
		RunID:        r.RunID.String(),
		AnalysisTime: r.CreatedAt,
		WindowStart:  r.WindowStart,
		WindowEnd:    r.WindowEnd,
		Records:      r.SampleCount,
		Metrics:      r.Metrics,
		Report:       r.ReportText,
	}
}

// ReportCache stores analyses by run id plus a pointer to the newest one.
// A nil *ReportCache is a valid disabled cache.
type ReportCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewReportCache returns a cache over kv. A nil kv yields a nil cache.
func NewReportCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *ReportCache {
	if kv == nil {
		return nil
	}
	return &ReportCache{kv: kv, ttl: ttl, logger: logger}
}

// Put stores a under its run id and as the latest analysis. Failures are
// logged and returned; callers treat them as non-fatal.
func (c *ReportCache) Put(ctx context.Context, a Analysis) error {
	if c == nil {
		return nil
	}
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analysis %s: %w", a.RunID, err)
	}
	for _, key := range []string{keyPrefix + a.RunID, latestKey} {
		if err := c.kv.Set(ctx, key, string(body), c.ttl); err != nil {
			c.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
			return fmt.Errorf("cache set %s: %w", key, err)
		}
	}
	return nil
}

// Get returns the analysis cached under runID.
func (c *ReportCache) Get(ctx context.Context, runID string) (Analysis, error) {
	return c.load(ctx, keyPrefix+runID)
}

// Latest returns the newest cached analysis.
func (c *ReportCache) Latest(ctx context.Context) (Analysis, error) {
	return c.load(ctx, latestKey)
}

func (c *ReportCache) load(ctx context.Context, key string) (Analysis, error) {
	var a Analysis
	if c == nil {
		return a, ErrCacheMiss
	}
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return a, fmt.Errorf("decode cached analysis %s: %w", key, err)
	}
	return a, nil
}
