package overlay

import (
	"context"

	"partyframes/overlay/logging/reconcile"
)

// RebuildMap derives a fresh identity map from the active pool and replaces
// the stored map atomically. It returns the number of mapped slots.
//
// With includeHidden the rebuild tolerates drift: an element that the host
// transiently hid mid-reassignment keeps its previous slot for one more
// generation rather than flickering to "unknown" during the most
// safety-critical moments. A non-tolerant rebuild that finds protected mode
// unexpectedly active upgrades itself to the tolerant mode instead of
// producing a map with fewer slots than before.
func (e *Engine) RebuildMap(includeHidden bool) int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rebuildLocked(includeHidden, "manual")
}

func (e *Engine) rebuildLocked(includeHidden bool, reason string) int {
	protected := e.protectedActive()
	if protected && !includeHidden {
		includeHidden = true
		e.queueExactRebuildLocked(reason)
	}

	prev := e.current
	next := newIdentityMap(len(e.slots))
	readmitted := 0

	for _, el := range e.activeElementsLocked() {
		slot, ok := el.AssignedSlot()
		if !ok && !protected {
			// Shadow miss: fall back to the host's authoritative
			// assignment, which is only legal to query while safe.
			if authoritative, authOK := e.hostAssignedSlot(el); authOK {
				slot, ok = authoritative, true
				el.SetAssignedSlot(authoritative)
			}
		}
		if !ok {
			continue
		}
		if _, valid := e.slotSet[slot]; !valid {
			continue
		}

		accept := slot == SlotSelf || e.hostParticipantKnown(string(slot))
		if !accept && includeHidden && protected && prev != nil {
			if prevEl, had := prev.slotToElement[slot]; had && prevEl == el {
				accept = true
			}
		}
		if !accept {
			continue
		}

		next.slotToElement[slot] = el
		if gid, gidOK := e.hostResolveGlobalID(string(slot)); gidOK {
			next.globalIDToSlot[gid] = slot
			el.SetAssignedGlobalID(gid)
		} else if gid, gidOK := el.AssignedGlobalID(); gidOK {
			next.globalIDToSlot[gid] = slot
		}
	}

	if includeHidden && protected && prev != nil {
		// Second pass: slots the host hid mid-reassignment. Re-admit the
		// previous occupant while the participant is still plausibly valid.
		for _, slot := range e.slots {
			if _, have := next.slotToElement[slot]; have {
				continue
			}
			prevEl, had := prev.slotToElement[slot]
			if !had {
				continue
			}
			if slot != SlotSelf && !e.hostParticipantKnown(string(slot)) {
				continue
			}
			next.slotToElement[slot] = prevEl
			readmitted++
			if gid, gidOK := prevEl.AssignedGlobalID(); gidOK {
				next.globalIDToSlot[gid] = slot
			}
		}
	}

	e.previous = prev
	e.current = next
	e.generation++
	e.stats.Rebuilds++

	reconcile.MapRebuilt(context.Background(), e.pub, e.seq, reconcile.MapRebuiltPayload{
		Reason:        reason,
		IncludeHidden: includeHidden,
		MappedSlots:   len(next.slotToElement),
		Readmitted:    readmitted,
		Generation:    e.generation,
	})

	return len(next.slotToElement)
}

// queueExactRebuildLocked stages one clean rebuild for replay after the
// protected window ends. Deduplicated: a second non-tolerant request inside
// the same window rides the already-queued entry.
func (e *Engine) queueExactRebuildLocked(reason string) {
	if e.rebuildQueued {
		return
	}
	if e.deferLocked(pendingMutation{Kind: mutationRebuild, Reason: reason}) {
		e.rebuildQueued = true
	}
}

// activeElementsLocked selects the pool the rebuild derives from: the
// self-managed pool in preview mode, otherwise the host-managed enumeration.
// Before any enumeration succeeds (or when one transiently fails) the
// previously cached active list stands in.
func (e *Engine) activeElementsLocked() []*Element {
	if e.preview {
		return e.selfPool
	}
	els := e.hostManagedElements()
	if len(els) == 0 {
		return e.cachedActive
	}
	e.cachedActive = append(e.cachedActive[:0], els...)
	return els
}
