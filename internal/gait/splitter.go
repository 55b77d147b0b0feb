package gait

// RoleMap assigns devices to feet. Empty fields fall back to first-seen
// order: the first unassigned device becomes left, the next one right.
type RoleMap struct {
	Left  string
	Right string
}

// Split is the per-foot partition of a mixed sample stream.
type Split struct {
	Left        []Sample
	Right       []Sample
	LeftDevice  string
	RightDevice string

	// Ignored lists devices beyond the two feet, in first-seen order.
	Ignored []string
}

// Split partitions samples by device, preserving the input order within each
// foot. With fewer than two distinct devices every sample goes to the left
// foot and the right foot is empty.
func (m RoleMap) Split(samples []Sample) Split {
	order := firstSeen(samples)
	if len(order) == 0 {
		return Split{}
	}
	if len(order) < 2 {
		left := make([]Sample, len(samples))
		copy(left, samples)
		return Split{Left: left, LeftDevice: order[0]}
	}

	left, right := m.resolve(order)
	out := Split{LeftDevice: left, RightDevice: right}
	for _, dev := range order {
		if dev != left && dev != right {
			out.Ignored = append(out.Ignored, dev)
		}
	}
	for _, s := range samples {
		switch s.Device {
		case left:
			out.Left = append(out.Left, s)
		case right:
			out.Right = append(out.Right, s)
		}
	}
	return out
}

func (m RoleMap) resolve(order []string) (left, right string) {
	present := make(map[string]bool, len(order))
	for _, dev := range order {
		present[dev] = true
	}
	var haveLeft, haveRight bool
	if m.Left != "" && present[m.Left] {
		left, haveLeft = m.Left, true
	}
	if m.Right != "" && present[m.Right] && m.Right != m.Left {
		right, haveRight = m.Right, true
	}
	for _, dev := range order {
		if (haveLeft && dev == left) || (haveRight && dev == right) {
			continue
		}
		if !haveLeft {
			left, haveLeft = dev, true
		} else if !haveRight {
			right, haveRight = dev, true
		}
	}
	return left, right
}

func firstSeen(samples []Sample) []string {
	seen := make(map[string]struct{})
	var order []string
	for _, s := range samples {
		if _, ok := seen[s.Device]; ok {
			continue
		}
		seen[s.Device] = struct{}{}
		order = append(order, s.Device)
	}
	return order
}
