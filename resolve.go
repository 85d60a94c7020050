package overlay

// ResolveSlot maps a participant identifier — a GlobalID-resolvable token, a
// slot token, or a free-form identifier — to its current logical slot.
//
// The ladder runs cheapest and most trustworthy first: the reverse cache,
// the direct token match, a scan of mapped slots by resolved identity, and
// finally a scan of active elements with the host's equivalence query as the
// last resort. No single source is reliable in every state: the cache can be
// stale, direct identifiers are not always the live token, and identity
// resolution itself can be transiently unavailable under protected mode.
func (e *Engine) ResolveSlot(identifier string) (Slot, bool) {
	if e == nil || identifier == "" {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolveSlotLocked(identifier)
}

func (e *Engine) resolveSlotLocked(identifier string) (Slot, bool) {
	e.drift.noteAttempt()

	gid, gidOK := e.hostResolveGlobalID(identifier)
	if gidOK {
		if slot, ok := e.current.globalIDToSlot[gid]; ok {
			return slot, true
		}
	}

	if direct := Slot(identifier); e.current != nil {
		if _, ok := e.current.slotToElement[direct]; ok {
			return direct, true
		}
	}

	if gidOK {
		for _, slot := range e.slots {
			if _, mapped := e.current.slotToElement[slot]; !mapped {
				continue
			}
			if resolved, ok := e.hostResolveGlobalID(string(slot)); ok && resolved == gid {
				e.current.globalIDToSlot[gid] = slot
				return slot, true
			}
		}
		for _, el := range e.activeElementsLocked() {
			slot, ok := el.AssignedSlot()
			if !ok {
				continue
			}
			if shadow, shadowOK := el.AssignedGlobalID(); shadowOK && shadow == gid {
				return slot, true
			}
		}
	}

	for _, el := range e.activeElementsLocked() {
		slot, ok := el.AssignedSlot()
		if !ok {
			continue
		}
		if e.hostSameParticipant(identifier, string(slot)) {
			return slot, true
		}
	}

	e.drift.noteMiss(identifier, "exhausted")
	return "", false
}
