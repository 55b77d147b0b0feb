// Package ingest decodes sensor data arriving over HTTP, MQTT and file
// exports into storage rows.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"feetfit/internal/db"
)

// ErrEmptyBatch is returned when a payload carries no samples at all.
var ErrEmptyBatch = errors.New("no samples provided")

// SampleRecord is the wire form of one IMU sample. The accelerometer,
// gyroscope and angle axes are required: a record missing any of them is
// dropped rather than read as zero.
type SampleRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	DeviceName string    `json:"device_name"`
	DeviceMAC  string    `json:"device_mac,omitempty"`

	AccelX *float64 `json:"accel_x"`
	AccelY *float64 `json:"accel_y"`
	AccelZ *float64 `json:"accel_z"`
	GyroX  *float64 `json:"gyro_x"`
	GyroY  *float64 `json:"gyro_y"`
	GyroZ  *float64 `json:"gyro_z"`
	AngleX *float64 `json:"angle_x"`
	AngleY *float64 `json:"angle_y"`
	AngleZ *float64 `json:"angle_z"`
	MagX   float64  `json:"mag_x,omitempty"`
	MagY   float64  `json:"mag_y,omitempty"`
	MagZ   float64  `json:"mag_z,omitempty"`

	Quaternion [4]float64 `json:"quaternion"`

	Temperature     float64 `json:"temperature,omitempty"`
	FirmwareVersion string  `json:"firmware_version,omitempty"`
	BatteryLevel    int     `json:"battery_level,omitempty"`
}

// SampleBatch is the body of POST /v1/samples and of MQTT sample messages.
type SampleBatch struct {
	Samples []SampleRecord `json:"samples"`
}

// Decoded is the outcome of decoding one batch.
type Decoded struct {
	Samples []db.SensorSample
	Skipped int
}

// ParseDeviceName splits a "TYPE(MAC)" device label. Labels without a
// parenthesised MAC return the label as type and an empty MAC.
func ParseDeviceName(label string) (deviceType, mac string) {
	label = strings.TrimSpace(label)
	open := strings.Index(label, "(")
	end := strings.LastIndex(label, ")")
	if open < 0 || end < open {
		return label, ""
	}
	return strings.TrimSpace(label[:open]), strings.TrimSpace(label[open+1 : end])
}

// DecodeSampleBatch parses a JSON batch. fallbackDevice is used as the MAC
// for records that carry none, e.g. the device segment of an MQTT topic.
// Records without a timestamp, device or any detection axis are skipped.
func DecodeSampleBatch(body []byte, fallbackDevice string) (Decoded, error) {
	var batch SampleBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return Decoded{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if len(batch.Samples) == 0 {
		return Decoded{}, ErrEmptyBatch
	}

	out := Decoded{Samples: make([]db.SensorSample, 0, len(batch.Samples))}
	for _, rec := range batch.Samples {
		row, ok := rec.toRow(fallbackDevice)
		if !ok {
			out.Skipped++
			continue
		}
		out.Samples = append(out.Samples, row)
	}
	return out, nil
}

func (r SampleRecord) toRow(fallbackDevice string) (db.SensorSample, bool) {
	name, mac := ParseDeviceName(r.DeviceName)
	if r.DeviceMAC != "" {
		mac = strings.TrimSpace(r.DeviceMAC)
	}
	if mac == "" {
		mac = fallbackDevice
	}
	if mac == "" || r.Timestamp.IsZero() {
		return db.SensorSample{}, false
	}
	for _, v := range []*float64{
		r.AccelX, r.AccelY, r.AccelZ,
		r.GyroX, r.GyroY, r.GyroZ,
		r.AngleX, r.AngleY, r.AngleZ,
	} {
		if v == nil {
			return db.SensorSample{}, false
		}
	}

	row := db.SensorSample{
		Timestamp:       r.Timestamp,
		DeviceName:      name,
		DeviceMAC:       mac,
		AccelX:          *r.AccelX,
		AccelY:          *r.AccelY,
		AccelZ:          *r.AccelZ,
		GyroX:           *r.GyroX,
		GyroY:           *r.GyroY,
		GyroZ:           *r.GyroZ,
		AngleX:          *r.AngleX,
		AngleY:          *r.AngleY,
		AngleZ:          *r.AngleZ,
		MagX:            r.MagX,
		MagY:            r.MagY,
		MagZ:            r.MagZ,
		Quaternion0:     r.Quaternion[0],
		Quaternion1:     r.Quaternion[1],
		Quaternion2:     r.Quaternion[2],
		Quaternion3:     r.Quaternion[3],
		Temperature:     r.Temperature,
		FirmwareVersion: r.FirmwareVersion,
		BatteryLevel:    r.BatteryLevel,
	}
	if !finiteRow(row) {
		return db.SensorSample{}, false
	}
	return row, true
}

func finiteRow(s db.SensorSample) bool {
	for _, v := range []float64{
		s.AccelX, s.AccelY, s.AccelZ,
		s.GyroX, s.GyroY, s.GyroZ,
		s.AngleX, s.AngleY, s.AngleZ,
		s.MagX, s.MagY, s.MagZ,
		s.Quaternion0, s.Quaternion1, s.Quaternion2, s.Quaternion3,
		s.Temperature,
	} {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
