package overlay_test

import (
	"testing"

	"partyframes/overlay"
)

func TestResolveSlotByGlobalID(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, nil)
	seedRoster(host, 4)
	engine.RebuildMap(false)

	slot, ok := engine.ResolveSlot("gid-2")
	if !ok || slot != overlay.MemberSlot(2) {
		t.Fatalf("expected member-2, got %v (ok=%v)", slot, ok)
	}
}

func TestResolveSlotDirectToken(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, nil)
	seedRoster(host, 4)
	engine.RebuildMap(false)

	// Identity resolution refuses once; the direct token match still answers.
	host.FailGlobalID("member-3", 1)
	slot, ok := engine.ResolveSlot("member-3")
	if !ok || slot != overlay.MemberSlot(3) {
		t.Fatalf("expected member-3 via direct token, got %v (ok=%v)", slot, ok)
	}
}

func TestResolveSlotRefillsIdentityCache(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, func(cfg *overlay.Config) {
		cfg.Members = 2
	})
	host.AddElement("HostFrameSelf", overlay.SlotSelf, "gid-self")
	host.AddElement("HostFrame1", overlay.MemberSlot(1), "gid-1")
	// member-2's identity is unresolvable at rebuild time, so the cache has
	// no entry for it.
	host.AddElement("HostFrame2", overlay.MemberSlot(2), "")
	engine.RebuildMap(false)

	if _, ok := engine.GetCurrentMap().SlotFor("gid-2"); ok {
		t.Fatalf("expected no cache entry before identity becomes resolvable")
	}

	host.AddAlias("member-2", "gid-2")
	host.AddAlias("Greeny", "gid-2")

	slot, ok := engine.ResolveSlot("Greeny")
	if !ok || slot != overlay.MemberSlot(2) {
		t.Fatalf("expected mapped-slot scan to find member-2, got %v (ok=%v)", slot, ok)
	}
	if slot, ok := engine.GetCurrentMap().SlotFor("gid-2"); !ok || slot != overlay.MemberSlot(2) {
		t.Fatalf("expected cache refilled by the scan, got %v (ok=%v)", slot, ok)
	}
}

func TestResolveSlotByShadowIdentity(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, nil)
	seedRoster(host, 4)
	host.SetKnown("member-3", false)
	engine.RebuildMap(false)

	// member-3 is unmapped, but its frame still carries the shadow identity.
	slot, ok := engine.ResolveSlot("gid-3")
	if !ok || slot != overlay.MemberSlot(3) {
		t.Fatalf("expected shadow-identity scan to answer, got %v (ok=%v)", slot, ok)
	}
}

func TestResolveSlotEquivalenceFallback(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, nil)
	seedRoster(host, 4)
	engine.RebuildMap(false)

	host.AddEquivalence("pet-of-2", "member-2")
	slot, ok := engine.ResolveSlot("pet-of-2")
	if !ok || slot != overlay.MemberSlot(2) {
		t.Fatalf("expected equivalence fallback to answer, got %v (ok=%v)", slot, ok)
	}
}

func TestResolveSlotExhausted(t *testing.T) {
	engine, host, _ := newTestEngine(t, overlay.NopUpdater{}, nil)
	seedRoster(host, 4)
	engine.RebuildMap(false)

	if slot, ok := engine.ResolveSlot("nobody"); ok {
		t.Fatalf("expected miss for unknown identifier, got %v", slot)
	}
	if slot, ok := engine.ResolveSlot(""); ok {
		t.Fatalf("expected miss for empty identifier, got %v", slot)
	}
}
