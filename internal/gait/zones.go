package gait

// ClassifyZones computes the zone-time breakdown of one contact span from the
// X orientation angle. Each zone is checked independently, so overlapping
// ranges count a sample toward every zone that contains it.
func ClassifyZones(span []Sample, cfg Config) ZoneTimes {
	if len(span) == 0 || cfg.SamplingRate <= 0 {
		return ZoneTimes{}
	}

	var heel, midfoot, forefoot int
	for _, s := range span {
		if cfg.HeelRange.Contains(s.Angle.X) {
			heel++
		}
		if cfg.MidfootRange.Contains(s.Angle.X) {
			midfoot++
		}
		if cfg.ForefootRange.Contains(s.Angle.X) {
			forefoot++
		}
	}

	rate := cfg.SamplingRate
	return ZoneTimes{
		Heel:     float64(heel) / rate,
		Midfoot:  float64(midfoot) / rate,
		Forefoot: float64(forefoot) / rate,
		Total:    float64(len(span)) / rate,
	}
}
