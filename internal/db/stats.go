package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gorm.io/gorm"
)

// DeviceActiveWindow is how recently a device must have reported to count
// as active.
const DeviceActiveWindow = time.Hour

// DeviceSummary aggregates everything stored for one device.
type DeviceSummary struct {
	DeviceMAC       string    `json:"device_mac"`
	DeviceName      string    `json:"device_name"`
	FirmwareVersion string    `json:"firmware_version"`
	RecordCount     int64     `json:"record_count"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	AvgTemperature  float64   `json:"avg_temperature"`
	AvgBattery      float64   `json:"avg_battery"`
	Active          bool      `json:"active" gorm:"-"`
}

const deviceSummarySQL = `SELECT device_mac,
	MAX(device_name) AS device_name,
	MAX(firmware_version) AS firmware_version,
	COUNT(*) AS record_count,
	MIN(timestamp) AS first_seen,
	MAX(timestamp) AS last_seen,
	COALESCE(AVG(temperature), 0) AS avg_temperature,
	COALESCE(AVG(battery_level), 0) AS avg_battery
FROM sensor_samples
GROUP BY device_mac
ORDER BY record_count DESC, device_mac ASC`

// DeviceSummaries lists all devices, most records first.
func DeviceSummaries(ctx context.Context, db *gorm.DB, now time.Time) ([]DeviceSummary, error) {
	var rows []DeviceSummary
	if err := db.WithContext(ctx).Raw(deviceSummarySQL).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("device summaries: %w", err)
	}
	for i := range rows {
		rows[i].Active = now.Sub(rows[i].LastSeen) < DeviceActiveWindow
	}
	return rows, nil
}

// TimeRange is the span covered by stored samples.
type TimeRange struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// DataStats summarises the whole sample store.
type DataStats struct {
	TotalRecords int64           `json:"total_records"`
	Devices      int             `json:"devices"`
	DeviceList   []string        `json:"device_list"`
	TimeRange    TimeRange       `json:"time_range"`
	DeviceStats  []DeviceSummary `json:"device_stats"`
}

// Empty reports whether no samples are stored.
func (s DataStats) Empty() bool {
	return s.TotalRecords == 0
}

// CollectDataStats builds store-wide totals from the per-device summaries.
func CollectDataStats(ctx context.Context, db *gorm.DB, now time.Time) (DataStats, error) {
	devices, err := DeviceSummaries(ctx, db, now)
	if err != nil {
		return DataStats{}, err
	}
	stats := DataStats{Devices: len(devices), DeviceStats: devices, DeviceList: []string{}}
	for i, d := range devices {
		stats.TotalRecords += d.RecordCount
		stats.DeviceList = append(stats.DeviceList, d.DeviceMAC)
		if i == 0 || d.FirstSeen.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = d.FirstSeen
		}
		if i == 0 || d.LastSeen.After(stats.TimeRange.End) {
			stats.TimeRange.End = d.LastSeen
		}
	}
	if len(devices) > 0 {
		stats.TimeRange.DurationSeconds = stats.TimeRange.End.Sub(stats.TimeRange.Start).Seconds()
	}
	return stats, nil
}

// RealtimeWindow is the look-back of RealtimeStats.
const RealtimeWindow = 5 * time.Minute

// Range is a min/max/avg triple.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// RealtimeMetrics describes the most recent samples.
type RealtimeMetrics struct {
	CurrentTime       time.Time          `json:"current_time"`
	DataPoints        int                `json:"data_points"`
	DevicesActive     int                `json:"devices_active"`
	AvgAccelMagnitude float64            `json:"avg_accel_magnitude"`
	AvgGyroMagnitude  float64            `json:"avg_gyro_magnitude"`
	Temperature       Range              `json:"temperature_range"`
	BatteryLevels     map[string]float64 `json:"battery_levels"`
}

// RealtimeStats summarises samples received in the window ending at now.
// DataPoints is zero when nothing arrived.
func RealtimeStats(ctx context.Context, db *gorm.DB, now time.Time, window time.Duration) (RealtimeMetrics, error) {
	out := RealtimeMetrics{CurrentTime: now, BatteryLevels: map[string]float64{}}
	rows, err := LoadSamples(ctx, db, Window{Start: now.Add(-window), End: now})
	if errors.Is(err, ErrNoSamples) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	return summarizeRecent(out, rows), nil
}

func summarizeRecent(out RealtimeMetrics, rows []SensorSample) RealtimeMetrics {
	accel := make([]float64, len(rows))
	gyro := make([]float64, len(rows))
	temps := make([]float64, len(rows))
	battery := make(map[string][]float64)
	for i, r := range rows {
		accel[i] = r.AccelMagnitude()
		gyro[i] = r.GyroMagnitude()
		temps[i] = r.Temperature
		battery[r.DeviceMAC] = append(battery[r.DeviceMAC], float64(r.BatteryLevel))
	}

	out.DataPoints = len(rows)
	out.DevicesActive = len(battery)
	out.AvgAccelMagnitude = stat.Mean(accel, nil)
	out.AvgGyroMagnitude = stat.Mean(gyro, nil)
	out.Temperature = Range{Min: floats.Min(temps), Max: floats.Max(temps), Avg: stat.Mean(temps, nil)}
	for mac, levels := range battery {
		out.BatteryLevels[mac] = stat.Mean(levels, nil)
	}
	return out
}
