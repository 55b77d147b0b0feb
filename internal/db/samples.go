package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"feetfit/internal/gait"
)

// ErrNoSamples is returned by LoadSamples when the window holds no data.
var ErrNoSamples = errors.New("no samples in window")

// insertBatchSize bounds the parameters per INSERT statement.
const insertBatchSize = 500

// Window is an inclusive time range. A zero bound is open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within w.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

func (w Window) apply(q *gorm.DB, column string) *gorm.DB {
	if !w.Start.IsZero() {
		q = q.Where(column+" >= ?", w.Start)
	}
	if !w.End.IsZero() {
		q = q.Where(column+" <= ?", w.End)
	}
	return q
}

// ToGait converts the stored row into a pipeline sample keyed by MAC.
func (s SensorSample) ToGait() gait.Sample {
	return gait.Sample{
		Time:   s.Timestamp,
		Device: s.DeviceMAC,
		Accel:  gait.Vec3{X: s.AccelX, Y: s.AccelY, Z: s.AccelZ},
		Gyro:   gait.Vec3{X: s.GyroX, Y: s.GyroY, Z: s.GyroZ},
		Angle:  gait.Vec3{X: s.AngleX, Y: s.AngleY, Z: s.AngleZ},
	}.Normalize()
}

// AccelMagnitude returns the norm of the acceleration axes.
func (s SensorSample) AccelMagnitude() float64 {
	return gait.Vec3{X: s.AccelX, Y: s.AccelY, Z: s.AccelZ}.Norm()
}

// GyroMagnitude returns the norm of the angular-rate axes.
func (s SensorSample) GyroMagnitude() float64 {
	return gait.Vec3{X: s.GyroX, Y: s.GyroY, Z: s.GyroZ}.Norm()
}

// InsertSamples stores samples in batches.
func InsertSamples(ctx context.Context, db *gorm.DB, samples []SensorSample) error {
	if len(samples) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).CreateInBatches(&samples, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert %d samples: %w", len(samples), err)
	}
	return nil
}

// LoadSamples returns the samples in w ordered by timestamp then device.
func LoadSamples(ctx context.Context, db *gorm.DB, w Window) ([]SensorSample, error) {
	var rows []SensorSample
	q := w.apply(db.WithContext(ctx).Model(&SensorSample{}), "timestamp")
	if err := q.Order("timestamp ASC, device_mac ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoSamples
	}
	return rows, nil
}

// GaitSamples converts rows for the analysis pipeline.
func GaitSamples(rows []SensorSample) []gait.Sample {
	out := make([]gait.Sample, len(rows))
	for i, r := range rows {
		out[i] = r.ToGait()
	}
	return out
}
