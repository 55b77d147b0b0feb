package gait

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alternatingRun() (left, right []ContactEvent) {
	left = []ContactEvent{
		event(FootLeft, 0.0, 0.20, 2, 0, heelZones),
		event(FootLeft, 0.6, 0.20, 2, 30, heelZones),
	}
	right = []ContactEvent{
		event(FootRight, 0.3, 0.22, 3, 0, midfootZones),
		event(FootRight, 0.9, 0.22, 3, 40, heelZones),
	}
	return left, right
}

func TestAggregate_BothFeet(t *testing.T) {
	left, right := alternatingRun()
	m := Aggregate(left, right, DefaultConfig())

	assert.Equal(t, 4, m.StepCount)
	assert.Equal(t, 2, m.LeftStepCount)
	assert.Equal(t, 2, m.RightStepCount)

	assert.InDelta(t, 0.21, m.AvgContactTime, 1e-9)
	assert.InDelta(t, 0.01, m.ContactTimeStd, 1e-9)
	assert.InDelta(t, 0.28/3, m.AvgFlightTime, 1e-9)
	assert.InDelta(t, 0.21/(0.28/3), m.ContactFlightRatio, 1e-9)
	assert.InDelta(t, 0.20, m.LeftAvgContactTime, 1e-9)
	assert.InDelta(t, 0.22, m.RightAvgContactTime, 1e-9)
	assert.InDelta(t, 0.02, m.LRContactTimeDiff, 1e-9)
	assert.InDelta(t, 4/1.12*60, m.Cadence, 1e-6)

	assert.InDelta(t, 0.75, m.HeelStrikeRatio, 1e-12)
	assert.InDelta(t, 0.25, m.MidfootStrikeRatio, 1e-12)
	assert.Zero(t, m.ForefootStrikeRatio)
	assert.Equal(t, ZoneHeel, m.DominantStrikePattern)

	require.NotNil(t, m.Left)
	require.NotNil(t, m.Right)
	assert.InDelta(t, 15.0, m.Left.AngleXStd, 1e-9)
	assert.Equal(t, RiskMedium, m.Left.Risk)
	assert.InDelta(t, 20.0, m.Right.AngleXStd, 1e-9)
	assert.Equal(t, RiskHigh, m.Right.Risk)

	assert.True(t, m.HasForceAsymmetry)
	assert.InDelta(t, 1.0, m.ForceAsymmetry, 1e-12)
}

func TestAggregate_SingleFoot(t *testing.T) {
	left, _ := alternatingRun()
	m := Aggregate(left, nil, DefaultConfig())

	assert.Equal(t, 2, m.StepCount)
	assert.Zero(t, m.RightAvgContactTime)
	assert.Zero(t, m.LRContactTimeDiff)
	assert.Nil(t, m.Right)
	assert.NotNil(t, m.Left)
	assert.False(t, m.HasForceAsymmetry)

	// The 0.4 s gap is outside the flight band.
	assert.Zero(t, m.AvgFlightTime)
	assert.Zero(t, m.ContactFlightRatio)
}

func TestAggregate_TooFewEvents(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, Aggregate(nil, nil, cfg).Empty())

	one := []ContactEvent{event(FootLeft, 0, 0.2, 2, 0, heelZones)}
	m := Aggregate(one, nil, cfg)
	assert.True(t, m.Empty())
	assert.Equal(t, Metrics{}, m)
}

func TestAggregate_DominantTieBreak(t *testing.T) {
	left := []ContactEvent{
		event(FootLeft, 0.0, 0.2, 2, 0, midfootZones),
		event(FootLeft, 0.6, 0.2, 2, 0, heelZones),
	}
	right := []ContactEvent{
		event(FootRight, 0.3, 0.2, 2, 0, midfootZones),
		event(FootRight, 0.9, 0.2, 2, 0, heelZones),
	}
	m := Aggregate(left, right, DefaultConfig())
	assert.InDelta(t, m.HeelStrikeRatio, m.MidfootStrikeRatio, 1e-12)
	assert.Equal(t, ZoneHeel, m.DominantStrikePattern)
}

func TestClassifyPronation(t *testing.T) {
	tests := []struct {
		x, y float64
		want PronationRisk
	}{
		{0, 0, RiskLow},
		{10, 10, RiskLow},
		{10.1, 0, RiskMedium},
		{0, 15, RiskMedium},
		{15.1, 0, RiskHigh},
		{3, 22, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyPronation(tt.x, tt.y), "std (%v, %v)", tt.x, tt.y)
	}
}

func TestMetricsMap(t *testing.T) {
	left, right := alternatingRun()
	full := Aggregate(left, right, DefaultConfig()).Map()
	assert.Contains(t, full, "force_asymmetry")
	assert.Contains(t, full, "right_overpronation_risk")
	assert.Equal(t, "heel", full["dominant_strike_pattern"])
	assert.Equal(t, 4, full["step_count"])

	single := Aggregate(left, nil, DefaultConfig()).Map()
	assert.NotContains(t, single, "force_asymmetry")
	assert.NotContains(t, single, "right_overpronation_risk")
	assert.Contains(t, single, "left_overpronation_risk")

	assert.Empty(t, Metrics{}.Map())
}
