package gait

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// inContact is the per-sample contact rule: either amplitude condition,
// gated by rotational stability. A high-amplitude sample during fast
// rotation is a swing artefact, not a footstrike.
func inContact(s Sample, cfg Config) bool {
	amplitude := s.Accel.Z > cfg.AccelZMin || s.AccelMag > cfg.AccelMagnitudeMin
	return amplitude && s.GyroMag < cfg.GyroMagnitudeMax
}

// sanitize drops malformed samples and fills missing magnitudes. It returns
// the cleaned slice and the number of samples dropped.
func sanitize(samples []Sample) ([]Sample, int) {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		s = s.Normalize()
		if !s.Valid() {
			continue
		}
		out = append(out, s)
	}
	return out, len(samples) - len(out)
}

// contactEdges returns rising-edge and falling-edge indices of the contact
// mask. A start is the first in-contact sample, an end is the first sample
// after contact. The first sample never forms an edge.
func contactEdges(mask []bool) (starts, ends []int) {
	for i := 1; i < len(mask); i++ {
		switch {
		case mask[i] && !mask[i-1]:
			starts = append(starts, i)
		case !mask[i] && mask[i-1]:
			ends = append(ends, i)
		}
	}
	if len(starts) > 0 && len(ends) > 0 {
		if starts[0] > ends[0] {
			ends = ends[1:]
		}
		if len(starts) > len(ends) {
			starts = starts[:len(starts)-1]
		}
	}
	n := min(len(starts), len(ends))
	return starts[:n], ends[:n]
}

// DetectContacts scans one device's time-ordered samples and returns the
// contact events whose timestamp duration lies within the configured band.
// Samples must be sorted by time. Malformed samples are skipped and intervals
// outside the band are dropped without error.
func DetectContacts(samples []Sample, foot Foot, cfg Config) []ContactEvent {
	clean, _ := sanitize(samples)
	if len(clean) == 0 {
		return nil
	}

	mask := make([]bool, len(clean))
	for i, s := range clean {
		mask[i] = inContact(s, cfg)
	}

	starts, ends := contactEdges(mask)
	var events []ContactEvent
	for i := range starts {
		start, end := clean[starts[i]], clean[ends[i]]
		duration := end.Time.Sub(start.Time).Seconds()
		if duration < cfg.MinContactDuration || duration > cfg.MaxContactDuration {
			continue
		}
		events = append(events, buildEvent(clean[starts[i]:ends[i]+1], foot, duration, cfg))
	}
	return events
}

func buildEvent(span []Sample, foot Foot, duration float64, cfg Config) ContactEvent {
	mags := make([]float64, len(span))
	angleX := make([]float64, len(span))
	angleY := make([]float64, len(span))
	for i, s := range span {
		mags[i] = s.AccelMag
		angleX[i] = s.Angle.X
		angleY[i] = s.Angle.Y
	}
	return ContactEvent{
		Foot:       foot,
		Start:      span[0].Time,
		End:        span[len(span)-1].Time,
		Duration:   duration,
		PeakAccel:  floats.Max(mags),
		MeanAngleX: stat.Mean(angleX, nil),
		MeanAngleY: stat.Mean(angleY, nil),
		Zones:      ClassifyZones(span, cfg),
	}
}
