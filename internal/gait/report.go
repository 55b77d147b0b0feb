package gait

import (
	"fmt"
	"strings"
)

// InsufficientDataMessage is the whole report when a run produced no metrics.
const InsufficientDataMessage = "Insufficient data: fewer than two ground-contact events were detected."

const (
	highContactFlightRatio = 1.5
	lowContactFlightRatio  = 0.8
	asymmetryThreshold     = 0.02 // seconds
)

// Recommendations maps metric values to advice lines. At least one line is
// always returned.
func Recommendations(m Metrics) []string {
	var recs []string

	switch ratio := m.ContactFlightRatio; {
	case ratio > highContactFlightRatio:
		recs = append(recs, "High contact-to-flight ratio: shorten ground contact to run lighter.")
	case ratio > 0 && ratio < lowContactFlightRatio:
		recs = append(recs, "Low contact-to-flight ratio: your stride is light, keep it up.")
	}

	if m.LRContactTimeDiff > asymmetryThreshold {
		recs = append(recs, "Left/right contact times differ noticeably: watch your gait symmetry.")
	}

	switch m.DominantStrikePattern {
	case ZoneHeel:
		recs = append(recs, "Mostly heel strikes: try a midfoot or forefoot landing to reduce impact.")
	case ZoneForefoot:
		recs = append(recs, "Mostly forefoot strikes: efficient, but give your calves time to recover.")
	}

	if (m.Left != nil && m.Left.Risk == RiskHigh) || (m.Right != nil && m.Right.Risk == RiskHigh) {
		recs = append(recs, "High overpronation risk: consider supportive shoes or a gait correction.")
	}

	if len(recs) == 0 {
		recs = append(recs, "Overall gait looks fine, keep your current form.")
	}
	return recs
}

func riskLabel(fb *FootBalance) string {
	if fb == nil {
		return "unknown"
	}
	return string(fb.Risk)
}

func patternLabel(z Zone) string {
	if z == "" {
		return "unknown"
	}
	return string(z)
}

// Report renders metrics as a multi-section text report followed by the
// recommendation lines.
func Report(m Metrics) string {
	if m.Empty() {
		return InsufficientDataMessage
	}

	var b strings.Builder
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(&b, "Running gait report\n%s\n\n", rule)

	b.WriteString("Timing:\n")
	fmt.Fprintf(&b, "  Avg contact time:     %.3f s\n", m.AvgContactTime)
	fmt.Fprintf(&b, "  Avg flight time:      %.3f s\n", m.AvgFlightTime)
	fmt.Fprintf(&b, "  Contact/flight ratio: %.2f\n", m.ContactFlightRatio)
	fmt.Fprintf(&b, "  Cadence:              %.1f steps/min\n\n", m.Cadence)

	b.WriteString("Left vs right:\n")
	fmt.Fprintf(&b, "  Left avg contact:     %.3f s\n", m.LeftAvgContactTime)
	fmt.Fprintf(&b, "  Right avg contact:    %.3f s\n", m.RightAvgContactTime)
	fmt.Fprintf(&b, "  Difference:           %.3f s\n\n", m.LRContactTimeDiff)

	b.WriteString("Strike pattern:\n")
	fmt.Fprintf(&b, "  Heel:                 %.1f%%\n", m.HeelStrikeRatio*100)
	fmt.Fprintf(&b, "  Midfoot:              %.1f%%\n", m.MidfootStrikeRatio*100)
	fmt.Fprintf(&b, "  Forefoot:             %.1f%%\n", m.ForefootStrikeRatio*100)
	fmt.Fprintf(&b, "  Dominant:             %s\n\n", patternLabel(m.DominantStrikePattern))

	b.WriteString("Impact:\n")
	fmt.Fprintf(&b, "  Left avg peak:        %.2f g\n", m.LeftAvgPeakForce)
	fmt.Fprintf(&b, "  Right avg peak:       %.2f g\n", m.RightAvgPeakForce)
	fmt.Fprintf(&b, "  Asymmetry:            %.2f g\n\n", m.ForceAsymmetry)

	b.WriteString("Pronation:\n")
	fmt.Fprintf(&b, "  Left risk:            %s\n", riskLabel(m.Left))
	fmt.Fprintf(&b, "  Right risk:           %s\n\n", riskLabel(m.Right))

	b.WriteString("Assessment:\n")
	for _, rec := range Recommendations(m) {
		fmt.Fprintf(&b, "  - %s\n", rec)
	}
	return b.String()
}
