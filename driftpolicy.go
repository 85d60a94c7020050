package overlay

type driftReason struct {
	Identifier string
	Stage      string
}

type driftSignal struct {
	Misses   uint64
	Attempts uint64
	Reasons  []driftReason
}

// driftPolicy watches the ratio of exhausted resolutions to total resolution
// attempts. When misses cross the threshold it emits a consumable hint that
// the engine turns into a tolerant safety-net schedule. This heals drift the
// event stream never reported.
type driftPolicy struct {
	attempts uint64
	misses   uint64
	pending  bool
	reasons  []driftReason

	threshold uint64
}

const defaultMissThresholdPerTenThousand = 25
const driftReasonLimit = 8

func newDriftPolicy(thresholdPerTenThousand int) *driftPolicy {
	threshold := uint64(thresholdPerTenThousand)
	if thresholdPerTenThousand <= 0 {
		threshold = defaultMissThresholdPerTenThousand
	}
	return &driftPolicy{
		reasons:   make([]driftReason, 0, driftReasonLimit),
		threshold: threshold,
	}
}

func (p *driftPolicy) noteAttempt() {
	if p == nil {
		return
	}
	if p.attempts == ^uint64(0) {
		p.attempts = p.attempts / 2
		p.misses = p.misses / 2
	}
	p.attempts++
}

func (p *driftPolicy) noteMiss(identifier, stage string) {
	if p == nil {
		return
	}
	p.misses++
	if len(p.reasons) < driftReasonLimit {
		p.reasons = append(p.reasons, driftReason{Identifier: identifier, Stage: stage})
	}
	p.evaluate()
}

func (p *driftPolicy) evaluate() {
	if p == nil || p.pending || p.misses == 0 {
		return
	}
	total := p.attempts
	if total == 0 {
		total = 1
	}
	if p.misses*10000 >= total*p.threshold {
		p.pending = true
	}
}

func (p *driftPolicy) consume() (driftSignal, bool) {
	if p == nil || !p.pending {
		return driftSignal{}, false
	}
	signal := driftSignal{
		Misses:   p.misses,
		Attempts: p.attempts,
		Reasons:  append([]driftReason(nil), p.reasons...),
	}
	p.pending = false
	p.attempts = 0
	p.misses = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
	return signal, true
}
