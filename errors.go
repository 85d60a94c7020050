package overlay

import "errors"

// ErrUnresolvableSlot reports that the resolution ladder was exhausted.
// Non-fatal: the caller should treat the slot as temporarily absent and rely
// on the next safety-net pass.
var ErrUnresolvableSlot = errors.New("overlay: slot unresolvable")

// ErrUnknownSlot reports a slot token outside the fixed set defined at
// construction. Always a programmer error.
var ErrUnknownSlot = errors.New("overlay: unknown slot token")

// ErrInvalidIntents reports an empty or malformed intent set. Always a
// programmer error.
var ErrInvalidIntents = errors.New("overlay: invalid intent set")

// ErrInvalidConfig reports a configuration that cannot produce a working
// engine.
var ErrInvalidConfig = errors.New("overlay: invalid config")
