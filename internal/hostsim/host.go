// Package hostsim provides a scripted in-memory stand-in for the embedding
// application's restricted widget layer. Tests and the preview harness drive
// it through explicit state changes: protected-mode windows, roster churn,
// transient identity-resolution refusals, and mid-window reassignment.
package hostsim

import (
	"errors"
	"fmt"
	"sync"

	"partyframes/overlay"
)

// ErrProtected is returned for imperative mutations attempted during a
// protected window.
var ErrProtected = errors.New("hostsim: mutation rejected during protected mode")

// Host implements overlay.Host with fully scripted behavior.
type Host struct {
	mu sync.Mutex

	protected bool
	elements  []*overlay.Element
	assigned  map[*overlay.Element]overlay.Slot
	hidden    map[*overlay.Element]bool

	participants map[string]overlay.GlobalID
	known        map[string]bool
	gidFailures  map[string]int
	equivalents  map[string]string

	expressions map[*overlay.Element]string

	// Mutations records every accepted mutating call in order.
	// RejectedMutations records imperative calls refused while protected.
	Mutations         []string
	RejectedMutations []string
}

// New constructs an empty scripted host.
func New() *Host {
	return &Host{
		assigned:     make(map[*overlay.Element]overlay.Slot),
		hidden:       make(map[*overlay.Element]bool),
		participants: make(map[string]overlay.GlobalID),
		known:        make(map[string]bool),
		gidFailures:  make(map[string]int),
		equivalents:  make(map[string]string),
		expressions:  make(map[*overlay.Element]string),
	}
}

// AddElement creates a host-managed element assigned to a slot whose
// participant carries the given identity. The shadow fields start in sync
// with the authoritative assignment, as they would after the restricted
// layer's own configuration pass.
func (h *Host) AddElement(name string, slot overlay.Slot, gid overlay.GlobalID) *overlay.Element {
	h.mu.Lock()
	defer h.mu.Unlock()
	el := overlay.NewElement(name)
	el.SetAssignedSlot(slot)
	if gid != "" {
		el.SetAssignedGlobalID(gid)
		h.participants[string(slot)] = gid
		h.participants[string(gid)] = gid
	}
	h.assigned[el] = slot
	h.known[string(slot)] = true
	h.elements = append(h.elements, el)
	return el
}

// SetProtected toggles the protected-mode flag.
func (h *Host) SetProtected(active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.protected = active
}

// HideFromEnumeration removes or restores an element in ManagedElements,
// simulating the host transiently hiding a frame mid-reassignment.
func (h *Host) HideFromEnumeration(el *overlay.Element, hidden bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hidden[el] = hidden
}

// SetKnown scripts whether an identifier names a currently known
// participant.
func (h *Host) SetKnown(identifier string, known bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.known[identifier] = known
}

// FailGlobalID makes the next n ResolveGlobalID calls for the identifier
// fail, simulating a transient host refusal.
func (h *Host) FailGlobalID(identifier string, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gidFailures[identifier] = n
}

// AddAlias makes an extra identifier resolve to a participant identity.
func (h *Host) AddAlias(identifier string, gid overlay.GlobalID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.participants[identifier] = gid
}

// AddEquivalence scripts a SameParticipant match for a pair of identifiers
// that do not share a resolvable identity.
func (h *Host) AddEquivalence(a, b string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.equivalents[a] = b
	h.equivalents[b] = a
}

// Reassign moves an element to a different slot the way the restricted
// layer does: both the authoritative assignment and the shadow fields move.
// Legal at any time, including inside a protected window.
func (h *Host) Reassign(el *overlay.Element, slot overlay.Slot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assigned[el] = slot
	el.SetAssignedSlot(slot)
	if gid, ok := h.participants[string(slot)]; ok {
		el.SetAssignedGlobalID(gid)
	} else {
		el.ClearAssignedGlobalID()
	}
}

// ClearShadow drops an element's shadow slot, forcing the engine down the
// authoritative-query path on the next rebuild.
func (h *Host) ClearShadow(el *overlay.Element) {
	h.mu.Lock()
	defer h.mu.Unlock()
	el.ClearAssignedSlot()
	el.ClearAssignedGlobalID()
}

// Expression reports the existence expression registered for an element.
func (h *Host) Expression(el *overlay.Element) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	expr, ok := h.expressions[el]
	return expr, ok
}

// MutationCount reports how many mutating calls the host accepted.
func (h *Host) MutationCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Mutations)
}

// ProtectedModeActive implements overlay.Host.
func (h *Host) ProtectedModeActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.protected
}

// ManagedElements implements overlay.Host.
func (h *Host) ManagedElements() []*overlay.Element {
	h.mu.Lock()
	defer h.mu.Unlock()
	els := make([]*overlay.Element, 0, len(h.elements))
	for _, el := range h.elements {
		if h.hidden[el] {
			continue
		}
		els = append(els, el)
	}
	return els
}

// AssignedSlot implements overlay.Host. Panics during a protected window,
// as the restricted layer rejects the query there.
func (h *Host) AssignedSlot(el *overlay.Element) (overlay.Slot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.protected {
		panic("hostsim: AssignedSlot queried during protected mode")
	}
	slot, ok := h.assigned[el]
	return slot, ok
}

// RegisterExistenceExpression implements overlay.Host. Accepted at all
// times; the expression is evaluated continuously by the host.
func (h *Host) RegisterExistenceExpression(el *overlay.Element, expr string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expressions[el] = expr
	h.Mutations = append(h.Mutations, fmt.Sprintf("register_driver:%s", el.Name))
	return nil
}

// UnregisterExistenceExpression implements overlay.Host.
func (h *Host) UnregisterExistenceExpression(el *overlay.Element) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.expressions, el)
	h.Mutations = append(h.Mutations, fmt.Sprintf("unregister_driver:%s", el.Name))
	return nil
}

// ShowElement implements overlay.Host.
func (h *Host) ShowElement(el *overlay.Element) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.protected {
		h.RejectedMutations = append(h.RejectedMutations, fmt.Sprintf("show:%s", el.Name))
		return ErrProtected
	}
	el.SetVisible(true)
	h.Mutations = append(h.Mutations, fmt.Sprintf("show:%s", el.Name))
	return nil
}

// HideElement implements overlay.Host.
func (h *Host) HideElement(el *overlay.Element) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.protected {
		h.RejectedMutations = append(h.RejectedMutations, fmt.Sprintf("hide:%s", el.Name))
		return ErrProtected
	}
	el.SetVisible(false)
	h.Mutations = append(h.Mutations, fmt.Sprintf("hide:%s", el.Name))
	return nil
}

// ResolveGlobalID implements overlay.Host.
func (h *Host) ResolveGlobalID(identifier string) (overlay.GlobalID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if remaining := h.gidFailures[identifier]; remaining > 0 {
		h.gidFailures[identifier] = remaining - 1
		return "", false
	}
	gid, ok := h.participants[identifier]
	return gid, ok
}

// ParticipantKnown implements overlay.Host.
func (h *Host) ParticipantKnown(identifier string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.known[identifier]
}

// SameParticipant implements overlay.Host.
func (h *Host) SameParticipant(a, b string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.equivalents[a] == b {
		return true
	}
	ga, okA := h.participants[a]
	gb, okB := h.participants[b]
	return okA && okB && ga == gb
}
