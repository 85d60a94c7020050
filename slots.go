package overlay

import "fmt"

// Slot identifies a conceptual position a visual element can represent. The
// set of valid tokens is fixed at engine construction and never reused for a
// different meaning within a session.
type Slot string

// SlotSelf is the always-present position for the local participant.
const SlotSelf Slot = "self"

// MemberSlot returns the token for the n-th group member, starting at 1.
func MemberSlot(n int) Slot {
	return Slot(fmt.Sprintf("member-%d", n))
}

// GlobalID is the persistent identity of a live participant. It survives
// slot reassignment and protected-mode transitions but only resolves while
// the participant is known to the host.
type GlobalID string

func buildSlots(members int) []Slot {
	slots := make([]Slot, 0, members+1)
	slots = append(slots, SlotSelf)
	for i := 1; i <= members; i++ {
		slots = append(slots, MemberSlot(i))
	}
	return slots
}
