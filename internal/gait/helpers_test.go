package gait

import (
	"math"
	"time"
)

var t0 = time.Date(2025, 6, 5, 18, 12, 0, 0, time.UTC)

const tick = 10 * time.Millisecond // 100 Hz

var (
	quietAccel   = Vec3{Z: 0.2}
	contactAccel = Vec3{Z: 1.5}
)

// stream builds n samples for one device at 100 Hz. inContact decides which
// indices carry a footstrike-like acceleration.
func stream(device string, n int, inContact func(i int) bool, angleX float64) []Sample {
	out := make([]Sample, n)
	for i := range out {
		accel := quietAccel
		if inContact(i) {
			accel = contactAccel
		}
		out[i] = Sample{
			Time:   t0.Add(time.Duration(i) * tick),
			Device: device,
			Accel:  accel,
			Angle:  Vec3{X: angleX},
		}
	}
	return out
}

// threeStrides marks 15-sample contacts starting at 0.5 s, 1.5 s and 2.5 s.
func threeStrides(i int) bool {
	off := i % 100
	return i < 300 && off >= 50 && off < 65
}

func interleave(a, b []Sample) []Sample {
	out := make([]Sample, 0, len(a)+len(b))
	for i := 0; i < len(a) || i < len(b); i++ {
		if i < len(a) {
			out = append(out, a[i])
		}
		if i < len(b) {
			out = append(out, b[i])
		}
	}
	return out
}

func at(sec float64) time.Time {
	return t0.Add(time.Duration(math.Round(sec * float64(time.Second))))
}

func event(foot Foot, startSec, dur, peak, angleX float64, zones ZoneTimes) ContactEvent {
	return ContactEvent{
		Foot:       foot,
		Start:      at(startSec),
		End:        at(startSec + dur),
		Duration:   dur,
		PeakAccel:  peak,
		MeanAngleX: angleX,
		Zones:      zones,
	}
}

var (
	heelZones    = ZoneTimes{Heel: 0.2, Total: 0.2}
	midfootZones = ZoneTimes{Midfoot: 0.2, Total: 0.2}
)
