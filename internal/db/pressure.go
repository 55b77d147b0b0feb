package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Insole point indices summed for the average-pressure stat (1-based).
var pressureSummaryPoints = [...]int{1, 50, 108}

// Midfoot point used for the peak stat (1-based).
const pressurePeakPoint = 50

// PressureFilter narrows pressure queries. Empty fields match everything.
type PressureFilter struct {
	Subject  string
	Activity string
	Trial    int
}

func (f PressureFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.Activity != "" {
		q = q.Where("activity = ?", f.Activity)
	}
	if f.Trial > 0 {
		q = q.Where("trial_number = ?", f.Trial)
	}
	return q
}

// InsertPressureFrames stores frames in batches.
func InsertPressureFrames(ctx context.Context, db *gorm.DB, frames []PressureFrame) error {
	if len(frames) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).CreateInBatches(&frames, insertBatchSize/5).Error; err != nil {
		return fmt.Errorf("insert %d pressure frames: %w", len(frames), err)
	}
	return nil
}

// ListPressureFrames returns frames in time order.
func ListPressureFrames(ctx context.Context, db *gorm.DB, f PressureFilter, offset, limit int) ([]PressureFrame, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var rows []PressureFrame
	q := f.apply(db.WithContext(ctx).Model(&PressureFrame{}))
	if err := q.Order("timestamp ASC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list pressure frames: %w", err)
	}
	return rows, nil
}

// PressureStat summarises one (subject, activity, device) group.
type PressureStat struct {
	Subject     string  `json:"subject"`
	Activity    string  `json:"activity"`
	DeviceName  string  `json:"device_name"`
	AvgPressure float64 `json:"avg_pressure"`
	MaxPressure float64 `json:"max_pressure"`
	SampleCount int     `json:"sample_count"`
}

type pressureKey struct {
	subject, activity, device string
}

// PressureStats groups matching frames by subject, activity and device.
// Frames missing any summary point are counted but not averaged.
func PressureStats(ctx context.Context, db *gorm.DB, f PressureFilter) ([]PressureStat, error) {
	var rows []PressureFrame
	q := f.apply(db.WithContext(ctx).Model(&PressureFrame{}))
	err := q.Select("subject", "activity", "device_name", "points").
		Order("subject ASC, activity ASC, device_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("pressure stats: %w", err)
	}
	return summarizePressure(rows), nil
}

func summarizePressure(rows []PressureFrame) []PressureStat {
	type acc struct {
		stat      PressureStat
		sum       float64
		summed    int
		peakValid bool
	}
	var order []pressureKey
	groups := make(map[pressureKey]*acc)
	for _, r := range rows {
		k := pressureKey{r.Subject, r.Activity, r.DeviceName}
		a, ok := groups[k]
		if !ok {
			a = &acc{stat: PressureStat{Subject: r.Subject, Activity: r.Activity, DeviceName: r.DeviceName}}
			groups[k] = a
			order = append(order, k)
		}
		a.stat.SampleCount++

		points := r.Points.Data()
		if v, ok := point(points, pressurePeakPoint); ok && (!a.peakValid || v > a.stat.MaxPressure) {
			a.stat.MaxPressure = v
			a.peakValid = true
		}
		var total float64
		complete := true
		for _, idx := range pressureSummaryPoints {
			v, ok := point(points, idx)
			if !ok {
				complete = false
				break
			}
			total += v
		}
		if complete {
			a.sum += total
			a.summed++
		}
	}

	out := make([]PressureStat, 0, len(order))
	for _, k := range order {
		a := groups[k]
		if a.summed > 0 {
			a.stat.AvgPressure = a.sum / float64(a.summed)
		}
		out = append(out, a.stat)
	}
	return out
}

// point returns the 1-based idx reading if present.
func point(points []*float64, idx int) (float64, bool) {
	if idx < 1 || idx > len(points) || points[idx-1] == nil {
		return 0, false
	}
	return *points[idx-1], true
}

// Values returns the frame's readings with missing points as zero, the form
// the pressure views consume.
func (p PressureFrame) Values() []float64 {
	points := p.Points.Data()
	out := make([]float64, PressurePoints)
	for i := range out {
		if v, ok := point(points, i+1); ok {
			out[i] = v
		}
	}
	return out
}
