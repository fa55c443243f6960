package triage

// Tier is the urgency classification of a case.
// Ordering is total: routine < urgent < emergency.
type Tier string

const (
	TierRoutine   Tier = "routine"
	TierUrgent    Tier = "urgent"
	TierEmergency Tier = "emergency"
)

func (t Tier) priority() int {
	switch t {
	case TierUrgent:
		return 1
	case TierEmergency:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether t sits at or above other in the urgency order.
func (t Tier) AtLeast(other Tier) bool {
	return t.priority() >= other.priority()
}

// Escalator is the sole owner of a case's urgency tier. The tier is one-way:
// Request raises it when asked for a higher tier and ignores everything else,
// so once a case reaches emergency it stays there for the session.
type Escalator struct {
	current    Tier
	onEscalate func(from, to Tier)
}

// NewEscalator starts at routine. onEscalate, if non-nil, is invoked on every
// upward transition (used for logging and the clinician report trigger).
func NewEscalator(onEscalate func(from, to Tier)) *Escalator {
	return &Escalator{current: TierRoutine, onEscalate: onEscalate}
}

func (e *Escalator) Current() Tier {
	return e.current
}

// Request asks for a tier floor. Equal or lower requests are no-ops; there is
// deliberately no way to lower the tier.
func (e *Escalator) Request(t Tier) {
	if t.priority() <= e.current.priority() {
		return
	}
	from := e.current
	e.current = t
	if e.onEscalate != nil {
		e.onEscalate(from, t)
	}
}
