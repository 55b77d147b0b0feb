package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"feetfit/internal/gait"
)

// MaxReportList caps ListReports.
const MaxReportList = 100

// NewGaitReport builds an unsaved report row for one analysis result.
func NewGaitReport(res gait.Result, w Window, sampleCount int, trigger string) *GaitReport {
	m := res.Metrics
	r := &GaitReport{
		RunID:          uuid.New(),
		SampleCount:    sampleCount,
		StepCount:      m.StepCount,
		Cadence:        m.Cadence,
		ContactTime:    m.AvgContactTime,
		DominantZone:   string(m.DominantStrikePattern),
		LeftDevice:     res.LeftDevice,
		RightDevice:    res.RightDevice,
		Trigger:        trigger,
		ReportText:     gait.Report(m),
		Metrics:        datatypes.JSONMap(m.Map()),
		IgnoredDevices: datatypes.NewJSONType(res.IgnoredDevices),
	}
	if !w.Start.IsZero() {
		start := w.Start
		r.WindowStart = &start
	}
	if !w.End.IsZero() {
		end := w.End
		r.WindowEnd = &end
	}
	return r
}

// SaveReport persists r.
func SaveReport(ctx context.Context, db *gorm.DB, r *GaitReport) error {
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("save report %s: %w", r.RunID, err)
	}
	return nil
}

// ListReports returns the newest reports first. limit is clamped to
// [1, MaxReportList].
func ListReports(ctx context.Context, db *gorm.DB, limit int) ([]GaitReport, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxReportList {
		limit = MaxReportList
	}
	var rows []GaitReport
	if err := db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return rows, nil
}

// GetReport loads one report by run id. gorm.ErrRecordNotFound is passed
// through wrapped.
func GetReport(ctx context.Context, db *gorm.DB, runID uuid.UUID) (*GaitReport, error) {
	var r GaitReport
	if err := db.WithContext(ctx).Where("run_id = ?", runID).First(&r).Error; err != nil {
		return nil, fmt.Errorf("get report %s: %w", runID, err)
	}
	return &r, nil
}

// IsNotFound reports whether err means a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ReportSummary is the compact history form of a report.
type ReportSummary struct {
	RunID                 uuid.UUID `json:"id"`
	AnalysisTime          time.Time `json:"analysis_time"`
	DataRecords           int       `json:"data_records"`
	StepCount             int       `json:"step_count"`
	Cadence               float64   `json:"cadence"`
	ContactFlightRatio    float64   `json:"contact_flight_ratio"`
	DominantStrikePattern string    `json:"dominant_strike_pattern"`
	Trigger               string    `json:"trigger"`
}

// Summary returns the history form of r.
func (r GaitReport) Summary() ReportSummary {
	ratio, _ := r.Metrics["contact_flight_ratio"].(float64)
	return ReportSummary{
		RunID:                 r.RunID,
		AnalysisTime:          r.CreatedAt,
		DataRecords:           r.SampleCount,
		StepCount:             r.StepCount,
		Cadence:               r.Cadence,
		ContactFlightRatio:    ratio,
		DominantStrikePattern: r.DominantZone,
		Trigger:               r.Trigger,
	}
}
