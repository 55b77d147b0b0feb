package db

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"feetfit/internal/gait"
)

// ErrInsufficientData is returned when a window has samples but too few
// contact events to produce metrics.
var ErrInsufficientData = errors.New("insufficient data for gait analysis")

// AnalyzeWindow loads the samples in w, runs the gait pipeline and persists
// the report. The result is returned even when err is ErrInsufficientData.
func AnalyzeWindow(ctx context.Context, db *gorm.DB, a *gait.Analyzer, w Window, trigger string) (*GaitReport, gait.Result, error) {
	rows, err := LoadSamples(ctx, db, w)
	if err != nil {
		return nil, gait.Result{}, err
	}

	res := a.Analyze(GaitSamples(rows))
	if res.Metrics.Empty() {
		return nil, res, ErrInsufficientData
	}

	report := NewGaitReport(res, w, len(rows), trigger)
	if err := SaveReport(ctx, db, report); err != nil {
		return nil, res, err
	}
	return report, res, nil
}

// AnalysisWorker periodically analyses the previous interval of samples.
type AnalysisWorker struct {
	DB       *gorm.DB
	Analyzer *gait.Analyzer
	Interval time.Duration
	Logger   *zap.Logger

	// OnReport, when set, receives every saved report.
	OnReport func(*GaitReport, gait.Result)
	// OnOutcome, when set, receives the outcome label of every run:
	// "ok", "no_data", "insufficient" or "error".
	OnOutcome func(outcome string, took time.Duration)
}

// runOnce analyses [end-Interval, end].
func (w *AnalysisWorker) runOnce(ctx context.Context, end time.Time) {
	start := time.Now()
	window := Window{Start: end.Add(-w.Interval), End: end}
	report, res, err := AnalyzeWindow(ctx, w.DB, w.Analyzer, window, TriggerWorker)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrNoSamples):
		outcome = "no_data"
	case errors.Is(err, ErrInsufficientData):
		outcome = "insufficient"
	case err != nil:
		outcome = "error"
		w.Logger.Error("scheduled analysis failed",
			zap.Time("window_start", window.Start), zap.Time("window_end", window.End), zap.Error(err))
	default:
		w.Logger.Info("scheduled analysis saved",
			zap.String("run_id", report.RunID.String()),
			zap.Int("steps", report.StepCount),
			zap.Float64("cadence", report.Cadence))
		if w.OnReport != nil {
			w.OnReport(report, res)
		}
	}
	if w.OnOutcome != nil {
		w.OnOutcome(outcome, time.Since(start))
	}
}

// Start launches the worker goroutine. It returns immediately and stops
// when ctx is done. A non-positive Interval disables the worker.
func (w *AnalysisWorker) Start(ctx context.Context) {
	if w.Interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				w.runOnce(ctx, t.UTC())
			}
		}
	}()
}
