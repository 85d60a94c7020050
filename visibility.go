package overlay

import (
	"context"
	"fmt"

	"partyframes/overlay/logging/reconcile"
)

// DriverState tracks who owns a dynamic-existence slot's visibility. The
// pending states are first-class because a migration attempted inside a
// protected window must survive across the boundary and complete on exit.
type DriverState int

const (
	// DriverUnmanaged means visibility is driven imperatively through
	// show/hide calls.
	DriverUnmanaged DriverState = iota
	// DriverOwned means a host-evaluated existence expression owns
	// visibility exclusively. The engine must not issue direct show/hide
	// while in this state; fighting the evaluator produces flicker or
	// rejected calls.
	DriverOwned
	// DriverPendingOn records a delegation blocked by protected mode.
	DriverPendingOn
	// DriverPendingOff records a revocation blocked by protected mode.
	DriverPendingOff
)

func (s DriverState) String() string {
	switch s {
	case DriverUnmanaged:
		return "unmanaged"
	case DriverOwned:
		return "driver_owned"
	case DriverPendingOn:
		return "pending_driver_on"
	case DriverPendingOff:
		return "pending_driver_off"
	default:
		return "unknown"
	}
}

// existenceExpression builds the attribute-language condition the host
// evaluates continuously. Registration is declarative, which is why it stays
// legal during protected mode while imperative show/hide does not.
func existenceExpression(slot Slot) string {
	return fmt.Sprintf("@%s,exists;show;hide", slot)
}

// DriverState reports the visibility-ownership state for a slot.
func (e *Engine) DriverState(slot Slot) DriverState {
	if e == nil {
		return DriverUnmanaged
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driver[slot]
}

// SetVisibilityDriver toggles delegation of member-slot visibility to the
// host's expression evaluator and reconciles every dynamic slot toward the
// new policy. Migrations blocked by protected mode land in a pending state
// and complete on NotifyProtectedModeExited.
func (e *Engine) SetVisibilityDriver(enabled bool) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.driverEnabled = enabled
	e.reconcileAllDriversLocked()
}

func (e *Engine) reconcileAllDriversLocked() {
	for _, slot := range e.slots {
		if slot == SlotSelf {
			continue
		}
		e.reconcileDriverLocked(slot)
	}
}

// reconcileDriverLocked moves one slot toward the currently desired
// visibility ownership. Transitions only happen while mutation is safe; an
// unsafe attempt parks the slot in a pending state and queues a replay.
func (e *Engine) reconcileDriverLocked(slot Slot) Outcome {
	el, mapped := e.current.slotToElement[slot]
	if !mapped {
		return OutcomeApplied
	}

	want := e.driverEnabled && !e.preview
	state := e.driver[slot]

	switch {
	case want && (state == DriverUnmanaged || state == DriverPendingOn):
		if !e.mutationSafeLocked() {
			e.driver[slot] = DriverPendingOn
			if !e.driverQueued[slot] && e.deferLocked(pendingMutation{Kind: mutationDriverRegister, Slot: slot, Element: el}) {
				e.driverQueued[slot] = true
			}
			return OutcomeDeferred
		}
		expr := existenceExpression(slot)
		if err := e.hostRegisterDriver(el, expr); err != nil {
			// Host refusal outside protected mode: stay imperative and let
			// the next reconcile retry.
			e.driver[slot] = DriverUnmanaged
			return OutcomeApplied
		}
		el.SetDriverExpression(expr)
		e.driver[slot] = DriverOwned
		e.publishDriverMigration(slot, state, DriverOwned)
		return OutcomeApplied

	case !want && (state == DriverOwned || state == DriverPendingOff):
		if !e.mutationSafeLocked() {
			e.driver[slot] = DriverPendingOff
			if !e.driverQueued[slot] && e.deferLocked(pendingMutation{Kind: mutationDriverUnregister, Slot: slot, Element: el}) {
				e.driverQueued[slot] = true
			}
			return OutcomeDeferred
		}
		_ = e.hostUnregisterDriver(el)
		el.SetDriverExpression("")
		e.driver[slot] = DriverUnmanaged
		e.publishDriverMigration(slot, state, DriverUnmanaged)
		return OutcomeApplied

	case want && state == DriverPendingOff:
		// Policy flipped back before the revocation replayed; the
		// registration is still in place.
		e.driver[slot] = DriverOwned
		return OutcomeApplied

	case !want && state == DriverPendingOn:
		// Delegation never landed; nothing to undo.
		e.driver[slot] = DriverUnmanaged
		return OutcomeApplied
	}

	return OutcomeApplied
}

// setVisibleLocked drives an element's visibility through the imperative
// path. A driver-owned slot is left alone: the expression evaluator owns it.
func (e *Engine) setVisibleLocked(slot Slot, el *Element, visible bool) Outcome {
	if el == nil {
		return OutcomeApplied
	}
	if e.driver[slot] == DriverOwned {
		return OutcomeApplied
	}
	if !e.mutationSafeLocked() {
		kind := mutationShow
		if !visible {
			kind = mutationHide
		}
		e.deferLocked(pendingMutation{Kind: kind, Slot: slot, Element: el})
		return OutcomeDeferred
	}
	if visible {
		if e.hostShow(el) == nil {
			el.SetVisible(true)
		}
	} else {
		if e.hostHide(el) == nil {
			el.SetVisible(false)
		}
	}
	return OutcomeApplied
}

func (e *Engine) publishDriverMigration(slot Slot, from, to DriverState) {
	reconcile.DriverMigrated(context.Background(), e.pub, e.seq, string(slot), reconcile.DriverMigratedPayload{
		From: from.String(),
		To:   to.String(),
	})
}
