package overlay

import "errors"

// errHostRaised reports a mutating host call that panicked inside a
// restricted context. Callers treat it like any other rejected mutation; the
// shadow state is left untouched.
var errHostRaised = errors.New("overlay: host raised during mutation")

// Host is the boundary to the embedding application's restricted widget
// layer. Reads may fail or panic inside a restricted context; the engine
// wraps every call so a transient refusal degrades to "unknown" instead of
// aborting a refresh cycle. Mutating calls are only issued when
// ProtectedModeActive reports false, with the single exception of the
// existence-expression pair, which the host evaluates declaratively and
// accepts at all times.
type Host interface {
	// ProtectedModeActive reports whether the host currently rejects
	// widget mutations. Re-queried before every attempted mutation.
	ProtectedModeActive() bool

	// ManagedElements enumerates the host-managed element pool.
	ManagedElements() []*Element

	// AssignedSlot returns the host's authoritative slot assignment for an
	// element. Only safe to call outside protected mode.
	AssignedSlot(el *Element) (Slot, bool)

	// RegisterExistenceExpression delegates an element's visibility to a
	// host-evaluated boolean expression. Safe at all times.
	RegisterExistenceExpression(el *Element, expr string) error

	// UnregisterExistenceExpression returns visibility control to the
	// caller. Safe at all times.
	UnregisterExistenceExpression(el *Element) error

	// ShowElement and HideElement are imperative visibility mutations.
	// Rejected during protected mode.
	ShowElement(el *Element) error
	HideElement(el *Element) error

	// ResolveGlobalID maps a slot token or free-form identifier to a
	// persistent participant identity.
	ResolveGlobalID(identifier string) (GlobalID, bool)

	// ParticipantKnown reports whether the identifier names a participant
	// the host can currently see.
	ParticipantKnown(identifier string) bool

	// SameParticipant reports whether two identifiers refer to the same
	// live participant.
	SameParticipant(a, b string) bool
}

// protectedActive polls the host flag. A panicking host is treated as
// protected: assuming the stricter state can only defer work, never issue a
// rejected mutation.
func (e *Engine) protectedActive() (active bool) {
	if e == nil || e.host == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			active = true
		}
	}()
	return e.host.ProtectedModeActive()
}

func (e *Engine) hostManagedElements() (els []*Element) {
	if e == nil || e.host == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			els = nil
		}
	}()
	return e.host.ManagedElements()
}

func (e *Engine) hostAssignedSlot(el *Element) (slot Slot, ok bool) {
	if e == nil || e.host == nil || el == nil {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			slot, ok = "", false
		}
	}()
	return e.host.AssignedSlot(el)
}

func (e *Engine) hostResolveGlobalID(identifier string) (gid GlobalID, ok bool) {
	if e == nil || e.host == nil || identifier == "" {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			gid, ok = "", false
		}
	}()
	return e.host.ResolveGlobalID(identifier)
}

func (e *Engine) hostParticipantKnown(identifier string) (known bool) {
	if e == nil || e.host == nil || identifier == "" {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			known = false
		}
	}()
	return e.host.ParticipantKnown(identifier)
}

func (e *Engine) hostSameParticipant(a, b string) (same bool) {
	if e == nil || e.host == nil || a == "" || b == "" {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			same = false
		}
	}()
	return e.host.SameParticipant(a, b)
}

func (e *Engine) hostShow(el *Element) (err error) {
	if e == nil || e.host == nil || el == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errHostRaised
		}
	}()
	return e.host.ShowElement(el)
}

func (e *Engine) hostHide(el *Element) (err error) {
	if e == nil || e.host == nil || el == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errHostRaised
		}
	}()
	return e.host.HideElement(el)
}

func (e *Engine) hostRegisterDriver(el *Element, expr string) (err error) {
	if e == nil || e.host == nil || el == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errHostRaised
		}
	}()
	return e.host.RegisterExistenceExpression(el, expr)
}

func (e *Engine) hostUnregisterDriver(el *Element) (err error) {
	if e == nil || e.host == nil || el == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errHostRaised
		}
	}()
	return e.host.UnregisterExistenceExpression(el)
}
