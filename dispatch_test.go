package overlay_test

import (
	"errors"
	"testing"

	"partyframes/overlay"
)

// recordingUpdater logs every sub-update in dispatch order.
type recordingUpdater struct {
	calls []string
}

func (r *recordingUpdater) UpdateVitals(_ *overlay.Element, slot overlay.Slot) {
	r.calls = append(r.calls, "vitals:"+string(slot))
}

func (r *recordingUpdater) UpdateAuras(_ *overlay.Element, slot overlay.Slot) {
	r.calls = append(r.calls, "auras:"+string(slot))
}

func (r *recordingUpdater) UpdateStatus(_ *overlay.Element, slot overlay.Slot) {
	r.calls = append(r.calls, "status:"+string(slot))
}

func (r *recordingUpdater) UpdatePower(_ *overlay.Element, slot overlay.Slot) {
	r.calls = append(r.calls, "power:"+string(slot))
}

func (r *recordingUpdater) UpdateCast(_ *overlay.Element, slot overlay.Slot) {
	r.calls = append(r.calls, "cast:"+string(slot))
}

func TestRequestRefreshRoutesExactIntents(t *testing.T) {
	updater := &recordingUpdater{}
	engine, host, _ := newTestEngine(t, updater, nil)
	seedRoster(host, 4)
	engine.RebuildMap(false)

	outcome, err := engine.RequestRefresh(overlay.MemberSlot(1), overlay.IntentVitals|overlay.IntentPower)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if outcome.Deferred() {
		t.Fatalf("unexpected deferral while safe")
	}

	want := []string{"vitals:member-1", "power:member-1"}
	if len(updater.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, updater.calls)
	}
	for i, call := range want {
		if updater.calls[i] != call {
			t.Fatalf("call %d: expected %q, got %q", i, call, updater.calls[i])
		}
	}
	if got := host.MutationCount(); got != 0 {
		t.Fatalf("non-visibility intents must not touch the host, got %v", host.Mutations)
	}
}

func TestRequestRefreshAllIntents(t *testing.T) {
	updater := &recordingUpdater{}
	engine, host, _ := newTestEngine(t, updater, nil)
	seedRoster(host, 4)
	engine.RebuildMap(false)

	if _, err := engine.RequestRefresh(overlay.SlotSelf, overlay.IntentAll); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(updater.calls) != 5 {
		t.Fatalf("expected 5 sub-updates, got %v", updater.calls)
	}
	if len(host.Mutations) != 1 || host.Mutations[0] != "show:HostFrameSelf" {
		t.Fatalf("expected visibility applied for self, got %v", host.Mutations)
	}
}

func TestRequestRefreshRejectsUnknownSlot(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, nil)
	seedRoster(host, 4)
	engine.RebuildMap(false)

	if _, err := engine.RequestRefresh("member-99", overlay.IntentVitals); !errors.Is(err, overlay.ErrUnknownSlot) {
		t.Fatalf("expected ErrUnknownSlot, got %v", err)
	}
}

func TestRequestRefreshRejectsInvalidIntents(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, nil)
	seedRoster(host, 4)
	engine.RebuildMap(false)

	for _, intents := range []overlay.IntentSet{0, overlay.IntentSet(1 << 7)} {
		if _, err := engine.RequestRefresh(overlay.SlotSelf, intents); !errors.Is(err, overlay.ErrInvalidIntents) {
			t.Fatalf("intents %v: expected ErrInvalidIntents, got %v", intents, err)
		}
	}
}

func TestRequestRefreshUnresolvableSlot(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, nil)
	seedRoster(host, 4)
	host.SetKnown("member-2", false)
	engine.RebuildMap(false)

	_, err := engine.RequestRefresh(overlay.MemberSlot(2), overlay.IntentVitals)
	if !errors.Is(err, overlay.ErrUnresolvableSlot) {
		t.Fatalf("expected ErrUnresolvableSlot, got %v", err)
	}
	if got := engine.Stats().Unresolved; got != 1 {
		t.Fatalf("expected 1 unresolved refresh, got %d", got)
	}
}

func TestRequestRefreshRetriesRebuildUnderProtection(t *testing.T) {
	updater := &recordingUpdater{}
	engine, host, _ := newTestEngine(t, updater, nil)
	seedRoster(host, 4)

	// The map has never been built; a refresh arriving mid-window triggers
	// one tolerant rebuild before giving up.
	host.SetProtected(true)
	outcome, err := engine.RequestRefresh(overlay.SlotSelf, overlay.IntentVitals)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if outcome.Deferred() {
		t.Fatalf("vitals-only refresh must not defer")
	}
	if len(updater.calls) != 1 || updater.calls[0] != "vitals:self" {
		t.Fatalf("unexpected calls: %v", updater.calls)
	}
	if engine.Generation() != 1 {
		t.Fatalf("expected retry rebuild, got generation %d", engine.Generation())
	}
}

func TestRequestRefreshVisibilityHidesDepartedMember(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, nil)
	els := seedRoster(host, 4)
	engine.RebuildMap(false)

	host.SetKnown("member-1", false)
	if _, err := engine.RequestRefresh(overlay.MemberSlot(1), overlay.IntentVisibility); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(host.Mutations) != 1 || host.Mutations[0] != "hide:HostFrame1" {
		t.Fatalf("expected hide for departed member, got %v", host.Mutations)
	}
	if els[1].Visible() {
		t.Fatalf("expected shadow visibility cleared")
	}
}
