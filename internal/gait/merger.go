package gait

import "sort"

// MergeEvents concatenates left then right events and stable-sorts them by
// start time, so a left and right contact starting together keep left first.
// The inputs are not modified.
func MergeEvents(left, right []ContactEvent) []ContactEvent {
	merged := make([]ContactEvent, 0, len(left)+len(right))
	merged = append(merged, left...)
	merged = append(merged, right...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start.Before(merged[j].Start)
	})
	return merged
}

// flightGaps returns the raw gap between each consecutive pair of merged
// events. Gaps may be negative when contacts overlap (double support).
func flightGaps(events []ContactEvent) []FlightInterval {
	if len(events) < 2 {
		return nil
	}
	gaps := make([]FlightInterval, 0, len(events)-1)
	for i := 0; i+1 < len(events); i++ {
		from, to := events[i].End, events[i+1].Start
		gaps = append(gaps, FlightInterval{
			From:     from,
			To:       to,
			Duration: to.Sub(from).Seconds(),
		})
	}
	return gaps
}

// FlightIntervals pairs consecutive merged events and keeps the gaps whose
// duration lies within the configured flight band.
func FlightIntervals(events []ContactEvent, cfg Config) []FlightInterval {
	var kept []FlightInterval
	for _, f := range flightGaps(events) {
		if f.Duration < cfg.MinFlightDuration || f.Duration > cfg.MaxFlightDuration {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
