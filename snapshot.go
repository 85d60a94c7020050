package overlay

import "time"

// SlotAssignment is one row of a diagnostics snapshot.
type SlotAssignment struct {
	Slot        Slot     `json:"slot"`
	Element     string   `json:"element"`
	GlobalID    GlobalID `json:"globalId,omitempty"`
	DriverState string   `json:"driverState"`
}

// Snapshot is a JSON-marshalable view of the engine for the diagnostics
// stream and the preview harness.
type Snapshot struct {
	Generation  uint64           `json:"generation"`
	Protected   bool             `json:"protected"`
	Preview     bool             `json:"preview"`
	Pending     int              `json:"pending"`
	Assignments []SlotAssignment `json:"assignments"`
	Stats       EngineStats      `json:"stats"`
	CapturedAt  time.Time        `json:"capturedAt"`
}

// Snapshot captures the engine's current mapping and counters.
func (e *Engine) Snapshot() Snapshot {
	if e == nil {
		return Snapshot{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	assignments := make([]SlotAssignment, 0, len(e.slots))
	for _, slot := range e.slots {
		el, ok := e.current.slotToElement[slot]
		if !ok {
			continue
		}
		row := SlotAssignment{
			Slot:        slot,
			Element:     el.Name,
			DriverState: e.driver[slot].String(),
		}
		if gid, gidOK := el.AssignedGlobalID(); gidOK {
			row.GlobalID = gid
		}
		assignments = append(assignments, row)
	}

	return Snapshot{
		Generation:  e.generation,
		Protected:   e.protectedActive(),
		Preview:     e.preview,
		Pending:     e.pending.Len(),
		Assignments: assignments,
		Stats:       e.stats,
		CapturedAt:  e.now(),
	}
}
