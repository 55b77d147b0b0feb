package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"feetfit/internal/db"
)

// WitMotion export column headers.
const (
	colTime        = "时间"
	colDevice      = "设备名称"
	colAccelX      = "加速度X(g)"
	colAccelY      = "加速度Y(g)"
	colAccelZ      = "加速度Z(g)"
	colGyroX       = "角速度X(°/s)"
	colGyroY       = "角速度Y(°/s)"
	colGyroZ       = "角速度Z(°/s)"
	colAngleX      = "角度X(°)"
	colAngleY      = "角度Y(°)"
	colAngleZ      = "角度Z(°)"
	colMagX        = "磁场X(uT)"
	colMagY        = "磁场Y(uT)"
	colMagZ        = "磁场Z(uT)"
	colQuat0       = "四元数0()"
	colQuat1       = "四元数1()"
	colQuat2       = "四元数2()"
	colQuat3       = "四元数3()"
	colTemperature = "温度(°C)"
	colVersion     = "版本号()"
	colBattery     = "电量(%)"
)

var requiredWitMotion = []string{
	colTime, colDevice,
	colAccelX, colAccelY, colAccelZ,
	colGyroX, colGyroY, colGyroZ,
	colAngleX, colAngleY, colAngleZ,
}

// witmotionLayout accepts unpadded month, day and clock fields.
const witmotionLayout = "2006-1-2 15:4:5"

// ParseWitMotionTime parses "2025-6-5 18:12:11:817" (milliseconds after the
// last colon) or "2025-06-05 18:12:11" in loc.
func ParseWitMotionTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	date, clock, ok := strings.Cut(s, " ")
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp %q: missing time of day", s)
	}

	var frac float64
	if parts := strings.Split(clock, ":"); len(parts) == 4 {
		f, err := strconv.ParseFloat("0."+parts[3], 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp %q: bad milliseconds: %w", s, err)
		}
		frac = f
		clock = strings.Join(parts[:3], ":")
	}

	t, err := time.ParseInLocation(witmotionLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t.Add(time.Duration(frac * float64(time.Second)).Round(time.Microsecond)), nil
}

type columns map[string]int

func (c columns) get(row []string, name string) (string, bool) {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

func (c columns) float(row []string, name string) (float64, error) {
	v, ok := c.get(row, name)
	if !ok || v == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if !isFinite(f) {
		return 0, fmt.Errorf("%s: non-finite value %q", name, v)
	}
	return f, nil
}

// optional returns 0 for absent or blank columns.
func (c columns) optional(row []string, name string) (float64, error) {
	if v, ok := c.get(row, name); !ok || v == "" {
		return 0, nil
	}
	return c.float(row, name)
}

// ParseWitMotion reads a tab-separated WitMotion export. Rows that fail to
// parse are skipped and counted; a missing required header is an error.
func ParseWitMotion(r io.Reader, loc *time.Location) (Decoded, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Decoded{}, ErrEmptyBatch
		}
		return Decoded{}, fmt.Errorf("read header: %w", err)
	}
	cols := make(columns, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range requiredWitMotion {
		if _, ok := cols[name]; !ok {
			return Decoded{}, fmt.Errorf("witmotion export missing column %q", name)
		}
	}

	var out Decoded
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			out.Skipped++
			continue
		}
		sample, err := witmotionRow(cols, row, loc)
		if err != nil {
			out.Skipped++
			continue
		}
		out.Samples = append(out.Samples, sample)
	}
	return out, nil
}

func witmotionRow(cols columns, row []string, loc *time.Location) (db.SensorSample, error) {
	var s db.SensorSample

	label, _ := cols.get(row, colDevice)
	s.DeviceName, s.DeviceMAC = ParseDeviceName(label)
	if s.DeviceMAC == "" {
		s.DeviceMAC = s.DeviceName
	}
	if s.DeviceMAC == "" {
		return s, errors.New("missing device")
	}

	raw, _ := cols.get(row, colTime)
	ts, err := ParseWitMotionTime(raw, loc)
	if err != nil {
		return s, err
	}
	s.Timestamp = ts

	for _, f := range []struct {
		dst  *float64
		name string
	}{
		{&s.AccelX, colAccelX}, {&s.AccelY, colAccelY}, {&s.AccelZ, colAccelZ},
		{&s.GyroX, colGyroX}, {&s.GyroY, colGyroY}, {&s.GyroZ, colGyroZ},
		{&s.AngleX, colAngleX}, {&s.AngleY, colAngleY}, {&s.AngleZ, colAngleZ},
	} {
		if *f.dst, err = cols.float(row, f.name); err != nil {
			return s, err
		}
	}
	for _, f := range []struct {
		dst  *float64
		name string
	}{
		{&s.MagX, colMagX}, {&s.MagY, colMagY}, {&s.MagZ, colMagZ},
		{&s.Quaternion0, colQuat0}, {&s.Quaternion1, colQuat1},
		{&s.Quaternion2, colQuat2}, {&s.Quaternion3, colQuat3},
		{&s.Temperature, colTemperature},
	} {
		if *f.dst, err = cols.optional(row, f.name); err != nil {
			return s, err
		}
	}

	s.FirmwareVersion, _ = cols.get(row, colVersion)
	battery, err := cols.optional(row, colBattery)
	if err != nil {
		return s, err
	}
	s.BatteryLevel = int(battery)

	if !finiteRow(s) {
		return s, errors.New("non-finite reading")
	}
	return s, nil
}
