package overlay

import (
	"context"
	"fmt"

	"partyframes/overlay/logging/reconcile"
)

// Updater receives the intent-scoped sub-updates the dispatcher routes. The
// rendering it triggers — bar fills, badge icons, cast timers — belongs to
// sibling collaborators; the engine only guarantees that exactly the
// requested intents fire, never more. These calls touch non-restricted
// sub-widget state and are safe at any time.
type Updater interface {
	UpdateVitals(el *Element, slot Slot)
	UpdateAuras(el *Element, slot Slot)
	UpdateStatus(el *Element, slot Slot)
	UpdatePower(el *Element, slot Slot)
	UpdateCast(el *Element, slot Slot)
}

// NopUpdater discards every sub-update.
type NopUpdater struct{}

func (NopUpdater) UpdateVitals(*Element, Slot) {}
func (NopUpdater) UpdateAuras(*Element, Slot)  {}
func (NopUpdater) UpdateStatus(*Element, Slot) {}
func (NopUpdater) UpdatePower(*Element, Slot)  {}
func (NopUpdater) UpdateCast(*Element, Slot)   {}

// RequestRefresh resolves a slot to its current element and applies exactly
// the requested intents. If the slot is unresolved while protected mode is
// active, one tolerant rebuild is attempted before giving up with
// ErrUnresolvableSlot. Sub-updates that would mutate restricted state during
// a protected window are skipped and marked dirty for replay instead of
// being attempted and silently dropped by the host.
func (e *Engine) RequestRefresh(slot Slot, intents IntentSet) (Outcome, error) {
	if e == nil {
		return OutcomeApplied, fmt.Errorf("%w: engine not initialized", ErrInvalidConfig)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.slotSet[slot]; !ok {
		return OutcomeApplied, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	if !intents.Valid() {
		return OutcomeApplied, fmt.Errorf("%w: %s", ErrInvalidIntents, intents)
	}
	return e.refreshLocked(slot, intents)
}

func (e *Engine) refreshLocked(slot Slot, intents IntentSet) (Outcome, error) {
	e.stats.Refreshes++

	el, ok := e.current.slotToElement[slot]
	if !ok {
		protected := e.protectedActive()
		if protected {
			e.rebuildLocked(true, "refresh-retry")
			el, ok = e.current.slotToElement[slot]
		}
		if !ok {
			e.stats.Unresolved++
			e.drift.noteMiss(string(slot), "refresh")
			reconcile.RefreshUnresolved(context.Background(), e.pub, e.seq, string(slot), reconcile.UnresolvedPayload{
				Intents:   intents.String(),
				Protected: protected,
			})
			return OutcomeApplied, fmt.Errorf("%w: %q", ErrUnresolvableSlot, slot)
		}
	}

	if e.updater != nil {
		if intents.Has(IntentVitals) {
			e.updater.UpdateVitals(el, slot)
		}
		if intents.Has(IntentAuras) {
			e.updater.UpdateAuras(el, slot)
		}
		if intents.Has(IntentStatus) {
			e.updater.UpdateStatus(el, slot)
		}
		if intents.Has(IntentPower) {
			e.updater.UpdatePower(el, slot)
		}
		if intents.Has(IntentCast) {
			e.updater.UpdateCast(el, slot)
		}
	}

	outcome := OutcomeApplied
	if intents.Has(IntentVisibility) {
		visible := slot == SlotSelf || e.hostParticipantKnown(string(slot))
		if e.setVisibleLocked(slot, el, visible).Deferred() {
			e.dirty[slot] |= IntentVisibility
			outcome = OutcomeDeferred
		}
	}
	return outcome, nil
}
