package gait

// Result carries every stage output of one analysis run.
type Result struct {
	LeftDevice     string
	RightDevice    string
	IgnoredDevices []string
	SkippedSamples int

	LeftEvents  []ContactEvent
	RightEvents []ContactEvent
	Events      []ContactEvent // merged, chronological
	Flights     []FlightInterval

	Metrics Metrics
}

// Analyzer runs the full pipeline with a fixed configuration. It holds no
// per-run state and is safe for concurrent use.
type Analyzer struct {
	cfg   Config
	roles RoleMap
}

// NewAnalyzer validates cfg and returns an Analyzer.
func NewAnalyzer(cfg Config, roles RoleMap) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg, roles: roles}, nil
}

// Config returns the analyzer's detection configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Analyze splits samples by foot, detects contacts, pairs flights and
// aggregates metrics. Samples must be time-ordered per device.
func (a *Analyzer) Analyze(samples []Sample) Result {
	clean, skipped := sanitize(samples)
	split := a.roles.Split(clean)

	left := DetectContacts(split.Left, FootLeft, a.cfg)
	right := DetectContacts(split.Right, FootRight, a.cfg)
	merged := MergeEvents(left, right)

	return Result{
		LeftDevice:     split.LeftDevice,
		RightDevice:    split.RightDevice,
		IgnoredDevices: split.Ignored,
		SkippedSamples: skipped,
		LeftEvents:     left,
		RightEvents:    right,
		Events:         merged,
		Flights:        FlightIntervals(merged, a.cfg),
		Metrics:        Aggregate(left, right, a.cfg),
	}
}
