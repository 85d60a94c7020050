package overlay

// Element is the engine's view of one visual frame in the host's widget
// layer. The assigned slot and global ID are shadow fields: plain read/write
// state mirroring whatever the host's restricted layer currently believes.
// The host may reassign an element out from under the engine inside a
// protected window, so a shadow read is never trusted beyond a single
// rebuild cycle.
type Element struct {
	Name string

	assignedSlot Slot
	hasSlot      bool
	assignedGID  GlobalID
	hasGID       bool

	visible    bool
	driverExpr string
}

// NewElement constructs an element with no slot assignment.
func NewElement(name string) *Element {
	return &Element{Name: name}
}

// AssignedSlot reports the shadow slot assignment, if any.
func (e *Element) AssignedSlot() (Slot, bool) {
	if e == nil || !e.hasSlot {
		return "", false
	}
	return e.assignedSlot, true
}

// SetAssignedSlot records the shadow slot assignment.
func (e *Element) SetAssignedSlot(slot Slot) {
	if e == nil {
		return
	}
	e.assignedSlot = slot
	e.hasSlot = true
}

// ClearAssignedSlot drops the shadow slot assignment.
func (e *Element) ClearAssignedSlot() {
	if e == nil {
		return
	}
	e.assignedSlot = ""
	e.hasSlot = false
}

// AssignedGlobalID reports the shadow participant identity, if any.
func (e *Element) AssignedGlobalID() (GlobalID, bool) {
	if e == nil || !e.hasGID {
		return "", false
	}
	return e.assignedGID, true
}

// SetAssignedGlobalID records the shadow participant identity.
func (e *Element) SetAssignedGlobalID(gid GlobalID) {
	if e == nil {
		return
	}
	e.assignedGID = gid
	e.hasGID = true
}

// ClearAssignedGlobalID drops the shadow participant identity.
func (e *Element) ClearAssignedGlobalID() {
	if e == nil {
		return
	}
	e.assignedGID = ""
	e.hasGID = false
}

// Visible reports the last visibility the element was driven to through the
// imperative path. While a slot is driver-owned this field is not updated.
func (e *Element) Visible() bool {
	return e != nil && e.visible
}

// SetVisible records the imperative visibility shadow. Called by the host
// layer when a show/hide lands.
func (e *Element) SetVisible(visible bool) {
	if e == nil {
		return
	}
	e.visible = visible
}

// DriverExpression reports the existence expression currently registered for
// the element, or empty when visibility is imperative.
func (e *Element) DriverExpression() string {
	if e == nil {
		return ""
	}
	return e.driverExpr
}

// SetDriverExpression records the registered existence expression shadow.
func (e *Element) SetDriverExpression(expr string) {
	if e == nil {
		return
	}
	e.driverExpr = expr
}
