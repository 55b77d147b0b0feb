package db

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runRetentionOnce deletes samples whose ExpiresAt is in the past and
// returns how many were removed.
func runRetentionOnce(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&SensorSample{})
	return res.RowsAffected, res.Error
}

// StartRetentionWorker launches a background goroutine that runs the
// retention cleanup once at startup and then once per day until ctx ends.
func StartRetentionWorker(ctx context.Context, db *gorm.DB, logger *zap.Logger) {
	run := func(phase string) {
		n, err := runRetentionOnce(ctx, db, time.Now())
		if err != nil {
			logger.Error("retention cleanup failed", zap.String("phase", phase), zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("retention cleanup", zap.String("phase", phase), zap.Int64("deleted", n))
		}
	}

	go func() {
		run("startup")

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run("tick")
			}
		}
	}()
}
