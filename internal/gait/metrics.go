package gait

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// PronationRisk is a heuristic from the spread of per-event mean angles.
type PronationRisk string

const (
	RiskLow    PronationRisk = "low"
	RiskMedium PronationRisk = "medium"
	RiskHigh   PronationRisk = "high"
)

const (
	pronationHighStd   = 15.0 // degrees
	pronationMediumStd = 10.0 // degrees
)

func classifyPronation(stdX, stdY float64) PronationRisk {
	switch {
	case stdX > pronationHighStd || stdY > pronationHighStd:
		return RiskHigh
	case stdX > pronationMediumStd || stdY > pronationMediumStd:
		return RiskMedium
	default:
		return RiskLow
	}
}

// FootBalance summarises the orientation spread of one foot's contacts.
type FootBalance struct {
	AngleXStd float64       `json:"cop_angle_x_std"`
	AngleYStd float64       `json:"cop_angle_y_std"`
	AvgAngleX float64       `json:"avg_angle_x"`
	AvgAngleY float64       `json:"avg_angle_y"`
	Risk      PronationRisk `json:"overpronation_risk"`
}

// Metrics is the aggregate result of one analysis run. The zero value means
// there were not enough contact events to analyse.
type Metrics struct {
	AvgContactTime float64 `json:"avg_contact_time"`
	ContactTimeStd float64 `json:"contact_time_std"`
	AvgFlightTime  float64 `json:"avg_flight_time"`
	FlightTimeStd  float64 `json:"flight_time_std"`

	LeftAvgContactTime  float64 `json:"left_avg_contact_time"`
	RightAvgContactTime float64 `json:"right_avg_contact_time"`
	LRContactTimeDiff   float64 `json:"lr_contact_time_diff"`

	ContactFlightRatio float64 `json:"contact_flight_ratio"`
	Cadence            float64 `json:"cadence"` // steps per minute

	StepCount      int `json:"step_count"`
	LeftStepCount  int `json:"left_step_count"`
	RightStepCount int `json:"right_step_count"`

	HeelStrikeRatio       float64 `json:"heel_strike_ratio"`
	MidfootStrikeRatio    float64 `json:"midfoot_strike_ratio"`
	ForefootStrikeRatio   float64 `json:"forefoot_strike_ratio"`
	DominantStrikePattern Zone    `json:"dominant_strike_pattern,omitempty"`

	// Left and Right are nil when that foot has no events.
	Left  *FootBalance `json:"left,omitempty"`
	Right *FootBalance `json:"right,omitempty"`

	// Force fields are only set when both feet have events.
	HasForceAsymmetry bool    `json:"has_force_asymmetry"`
	ForceAsymmetry    float64 `json:"force_asymmetry"`
	LeftAvgPeakForce  float64 `json:"left_avg_peak_force"`
	RightAvgPeakForce float64 `json:"right_avg_peak_force"`
}

// Empty reports whether the run had too few events to produce metrics.
func (m Metrics) Empty() bool {
	return m.StepCount == 0
}

// Aggregate reduces per-foot events into gait metrics. Fewer than two events
// across both feet yields empty Metrics.
func Aggregate(left, right []ContactEvent, cfg Config) Metrics {
	merged := MergeEvents(left, right)
	if len(merged) < 2 {
		return Metrics{}
	}
	flights := FlightIntervals(merged, cfg)

	contact := durations(merged)
	flight := make([]float64, len(flights))
	for i, f := range flights {
		flight[i] = f.Duration
	}

	var m Metrics
	m.AvgContactTime, m.ContactTimeStd = meanStd(contact)
	m.AvgFlightTime, m.FlightTimeStd = meanStd(flight)

	m.LeftAvgContactTime, _ = meanStd(durations(left))
	m.RightAvgContactTime, _ = meanStd(durations(right))
	if len(left) > 0 && len(right) > 0 {
		m.LRContactTimeDiff = math.Abs(m.LeftAvgContactTime - m.RightAvgContactTime)
	}
	if len(flight) > 0 {
		m.ContactFlightRatio = m.AvgContactTime / m.AvgFlightTime
	}

	m.StepCount = len(merged)
	m.LeftStepCount = len(left)
	m.RightStepCount = len(right)
	m.Cadence = cadence(merged)

	applyStrikePattern(&m, merged)

	if len(left) > 0 {
		m.Left = footBalance(left)
	}
	if len(right) > 0 {
		m.Right = footBalance(right)
	}
	if len(left) > 0 && len(right) > 0 {
		m.LeftAvgPeakForce, _ = meanStd(peaks(left))
		m.RightAvgPeakForce, _ = meanStd(peaks(right))
		m.ForceAsymmetry = math.Abs(m.LeftAvgPeakForce - m.RightAvgPeakForce)
		m.HasForceAsymmetry = true
	}
	return m
}

// cadence is steps per minute over the span from the first start to the
// last merged event's end.
func cadence(merged []ContactEvent) float64 {
	if len(merged) < 2 {
		return 0
	}
	elapsed := merged[len(merged)-1].End.Sub(merged[0].Start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(len(merged)) / elapsed * 60
}

func applyStrikePattern(m *Metrics, merged []ContactEvent) {
	counts := make(map[Zone]int, len(zoneOrder))
	for _, ev := range merged {
		counts[ev.Zones.Dominant()]++
	}
	total := float64(len(merged))
	m.HeelStrikeRatio = float64(counts[ZoneHeel]) / total
	m.MidfootStrikeRatio = float64(counts[ZoneMidfoot]) / total
	m.ForefootStrikeRatio = float64(counts[ZoneForefoot]) / total

	best := zoneOrder[0]
	for _, zone := range zoneOrder[1:] {
		if counts[zone] > counts[best] {
			best = zone
		}
	}
	m.DominantStrikePattern = best
}

func footBalance(events []ContactEvent) *FootBalance {
	xs := make([]float64, len(events))
	ys := make([]float64, len(events))
	for i, ev := range events {
		xs[i] = ev.MeanAngleX
		ys[i] = ev.MeanAngleY
	}
	fb := &FootBalance{}
	fb.AvgAngleX, fb.AngleXStd = meanStd(xs)
	fb.AvgAngleY, fb.AngleYStd = meanStd(ys)
	fb.Risk = classifyPronation(fb.AngleXStd, fb.AngleYStd)
	return fb
}

// meanStd returns the mean and population standard deviation, or zeros for
// an empty slice.
func meanStd(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(x, nil)
}

func durations(events []ContactEvent) []float64 {
	out := make([]float64, len(events))
	for i, ev := range events {
		out[i] = ev.Duration
	}
	return out
}

func peaks(events []ContactEvent) []float64 {
	out := make([]float64, len(events))
	for i, ev := range events {
		out[i] = ev.PeakAccel
	}
	return out
}

// Map flattens the metrics into the key → value form used by the API and
// the stored report rows. Per-foot keys are only present for feet with events.
func (m Metrics) Map() map[string]any {
	if m.Empty() {
		return map[string]any{}
	}
	out := map[string]any{
		"avg_contact_time":        m.AvgContactTime,
		"avg_flight_time":         m.AvgFlightTime,
		"contact_time_std":        m.ContactTimeStd,
		"flight_time_std":         m.FlightTimeStd,
		"left_avg_contact_time":   m.LeftAvgContactTime,
		"right_avg_contact_time":  m.RightAvgContactTime,
		"lr_contact_time_diff":    m.LRContactTimeDiff,
		"contact_flight_ratio":    m.ContactFlightRatio,
		"step_count":              m.StepCount,
		"left_step_count":         m.LeftStepCount,
		"right_step_count":        m.RightStepCount,
		"cadence":                 m.Cadence,
		"heel_strike_ratio":       m.HeelStrikeRatio,
		"midfoot_strike_ratio":    m.MidfootStrikeRatio,
		"forefoot_strike_ratio":   m.ForefootStrikeRatio,
		"dominant_strike_pattern": string(m.DominantStrikePattern),
	}
	for prefix, fb := range map[string]*FootBalance{"left_": m.Left, "right_": m.Right} {
		if fb == nil {
			continue
		}
		out[prefix+"cop_angle_x_std"] = fb.AngleXStd
		out[prefix+"cop_angle_y_std"] = fb.AngleYStd
		out[prefix+"overpronation_risk"] = string(fb.Risk)
		out[prefix+"avg_angle_x"] = fb.AvgAngleX
		out[prefix+"avg_angle_y"] = fb.AvgAngleY
	}
	if m.HasForceAsymmetry {
		out["force_asymmetry"] = m.ForceAsymmetry
		out["left_avg_peak_force"] = m.LeftAvgPeakForce
		out["right_avg_peak_force"] = m.RightAvgPeakForce
	}
	return out
}
