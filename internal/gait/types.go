// Package gait turns foot-mounted IMU sample streams into ground-contact
// events and aggregate running-gait metrics.
//
// The pipeline is split into four pure stages: Split (per-device streams),
// DetectContacts (contact intervals per foot), MergeEvents/FlightIntervals
// (chronological pairing) and Aggregate (metrics). Analyzer chains them.
package gait

import (
	"math"
	"time"
)

// Foot identifies which foot a device is mounted on.
type Foot string

const (
	FootLeft  Foot = "left"
	FootRight Foot = "right"
)

// Zone is a foot-strike zone inferred from the sagittal orientation angle.
type Zone string

const (
	ZoneHeel     Zone = "heel"
	ZoneMidfoot  Zone = "midfoot"
	ZoneForefoot Zone = "forefoot"
)

// zoneOrder is the enumeration order used for every tie-break.
var zoneOrder = [...]Zone{ZoneHeel, ZoneMidfoot, ZoneForefoot}

// Vec3 holds a 3-axis reading.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) finite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// Sample is one sensor reading from one device.
type Sample struct {
	Time   time.Time
	Device string

	Accel Vec3 // g
	Gyro  Vec3 // °/s
	Angle Vec3 // °

	// AccelMag and GyroMag are optional precomputed norms. A zero value is
	// filled from the raw axes by Normalize.
	AccelMag float64
	GyroMag  float64
}

// Normalize returns s with missing magnitudes computed from the raw axes.
func (s Sample) Normalize() Sample {
	if s.AccelMag == 0 {
		s.AccelMag = s.Accel.Norm()
	}
	if s.GyroMag == 0 {
		s.GyroMag = s.Gyro.Norm()
	}
	return s
}

// Valid reports whether every value the detector reads is a finite number.
func (s Sample) Valid() bool {
	return !s.Time.IsZero() &&
		s.Accel.finite() && s.Gyro.finite() && s.Angle.finite() &&
		isFinite(s.AccelMag) && isFinite(s.GyroMag)
}

// ZoneTimes is the per-event zone-time breakdown in seconds. Total is derived
// from the sample count and may differ from the timestamp-based duration.
type ZoneTimes struct {
	Heel     float64 `json:"heel"`
	Midfoot  float64 `json:"midfoot"`
	Forefoot float64 `json:"forefoot"`
	Total    float64 `json:"total"`
}

// Time returns the time spent in zone z.
func (z ZoneTimes) Time(zone Zone) float64 {
	switch zone {
	case ZoneHeel:
		return z.Heel
	case ZoneMidfoot:
		return z.Midfoot
	case ZoneForefoot:
		return z.Forefoot
	}
	return 0
}

// Dominant returns the zone with the most time; heel, midfoot, forefoot win
// ties in that order.
func (z ZoneTimes) Dominant() Zone {
	best := zoneOrder[0]
	for _, zone := range zoneOrder[1:] {
		if z.Time(zone) > z.Time(best) {
			best = zone
		}
	}
	return best
}

// ContactEvent is one detected ground-contact interval for one foot.
type ContactEvent struct {
	Foot       Foot      `json:"foot"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Duration   float64   `json:"duration"` // seconds
	PeakAccel  float64   `json:"peak_accel"`
	MeanAngleX float64   `json:"mean_angle_x"`
	MeanAngleY float64   `json:"mean_angle_y"`
	Zones      ZoneTimes `json:"zones"`
}

// FlightInterval is the gap between one contact's end and the next contact's
// start, regardless of foot.
type FlightInterval struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Duration float64   `json:"duration"` // seconds, negative when contacts overlap
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
