package overlay

import "strings"

// IntentSet names the sub-updates a refresh should apply. It is a set, not a
// single value: a numeric-resource tick refreshes {vitals, power} without
// paying for auras or cast state.
type IntentSet uint8

const (
	IntentVitals IntentSet = 1 << iota
	IntentAuras
	IntentStatus
	IntentPower
	IntentCast
	IntentVisibility
)

// IntentAll covers every sub-update.
const IntentAll = IntentVitals | IntentAuras | IntentStatus | IntentPower | IntentCast | IntentVisibility

// Has reports whether every flag in the argument is present in the set.
func (s IntentSet) Has(flags IntentSet) bool {
	return flags != 0 && s&flags == flags
}

// Valid reports whether the set is non-empty and contains no unknown bits.
// An invalid set is a programmer error, not a transient host state.
func (s IntentSet) Valid() bool {
	return s != 0 && s&^IntentAll == 0
}

var intentNames = []struct {
	flag IntentSet
	name string
}{
	{IntentVitals, "vitals"},
	{IntentAuras, "auras"},
	{IntentStatus, "status"},
	{IntentPower, "power"},
	{IntentCast, "cast"},
	{IntentVisibility, "visibility"},
}

func (s IntentSet) String() string {
	if s == 0 {
		return "none"
	}
	parts := make([]string, 0, len(intentNames))
	for _, entry := range intentNames {
		if s&entry.flag != 0 {
			parts = append(parts, entry.name)
		}
	}
	if rest := s &^ IntentAll; rest != 0 {
		parts = append(parts, "invalid")
	}
	return strings.Join(parts, "|")
}

// Outcome distinguishes a mutation applied immediately from one captured for
// replay after protected mode ends.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeDeferred
)

// Deferred reports whether the work was queued instead of applied.
func (o Outcome) Deferred() bool {
	return o == OutcomeDeferred
}

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}
