package overlay

// IdentityMap couples the two associative structures the engine maintains:
// slot to element, and participant identity to slot. The second map is a
// best-effort cache; it is never trusted over a live re-derivation when one
// is possible. Rebuilds produce a fresh map that replaces the old one
// atomically from the consumer's point of view; entries are never patched
// incrementally across rebuilds.
type IdentityMap struct {
	slotToElement  map[Slot]*Element
	globalIDToSlot map[GlobalID]Slot
}

func newIdentityMap(capacity int) *IdentityMap {
	return &IdentityMap{
		slotToElement:  make(map[Slot]*Element, capacity),
		globalIDToSlot: make(map[GlobalID]Slot, capacity),
	}
}

// Element returns the visual element mapped to a slot.
func (m *IdentityMap) Element(slot Slot) (*Element, bool) {
	if m == nil {
		return nil, false
	}
	el, ok := m.slotToElement[slot]
	return el, ok
}

// SlotFor returns the cached slot for a participant identity.
func (m *IdentityMap) SlotFor(gid GlobalID) (Slot, bool) {
	if m == nil {
		return "", false
	}
	slot, ok := m.globalIDToSlot[gid]
	return slot, ok
}

// Len reports the number of mapped slots.
func (m *IdentityMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.slotToElement)
}

func (m *IdentityMap) clone() *IdentityMap {
	if m == nil {
		return newIdentityMap(0)
	}
	cloned := newIdentityMap(len(m.slotToElement))
	for slot, el := range m.slotToElement {
		cloned.slotToElement[slot] = el
	}
	for gid, slot := range m.globalIDToSlot {
		cloned.globalIDToSlot[gid] = slot
	}
	return cloned
}

// Equal reports whether two maps hold identical entries. Used by tests to
// assert rebuild idempotence.
func (m *IdentityMap) Equal(other *IdentityMap) bool {
	if m == nil || other == nil {
		return m.Len() == 0 && other.Len() == 0
	}
	if len(m.slotToElement) != len(other.slotToElement) {
		return false
	}
	if len(m.globalIDToSlot) != len(other.globalIDToSlot) {
		return false
	}
	for slot, el := range m.slotToElement {
		if other.slotToElement[slot] != el {
			return false
		}
	}
	for gid, slot := range m.globalIDToSlot {
		if other.globalIDToSlot[gid] != slot {
			return false
		}
	}
	return true
}
