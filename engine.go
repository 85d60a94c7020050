package overlay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"partyframes/overlay/logging"
	"partyframes/overlay/logging/reconcile"
)

// Deps carries the shared infrastructure the engine is wired with.
type Deps struct {
	Host      Host
	Updater   Updater
	Publisher logging.Publisher
	Metrics   *logging.Metrics
	Clock     logging.Clock
}

// EngineStats counts the engine's observable work since construction.
type EngineStats struct {
	Rebuilds   uint64 `json:"rebuilds"`
	Deferred   uint64 `json:"deferred"`
	Replayed   uint64 `json:"replayed"`
	Refreshes  uint64 `json:"refreshes"`
	Unresolved uint64 `json:"unresolved"`
	Superseded uint64 `json:"superseded"`
}

// Engine owns the identity map, the pending-mutation buffer, the safety-net
// ladder, and the per-slot visibility ownership states. All state is
// single-owner: only the engine's own entry points write it, driven by the
// host's event callbacks. External readers get snapshots.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	host    Host
	updater Updater
	pub     logging.Publisher
	metrics *logging.Metrics
	clock   logging.Clock

	slots   []Slot
	slotSet map[Slot]struct{}

	current      *IdentityMap
	previous     *IdentityMap
	cachedActive []*Element
	selfPool     []*Element
	preview      bool
	generation   uint64

	pending       *pendingBuffer
	rebuildQueued bool
	dirty         map[Slot]IntentSet

	driver        map[Slot]DriverState
	driverEnabled bool
	driverQueued  map[Slot]bool

	net   safetyNet
	drift *driftPolicy

	seq   uint64
	stats EngineStats
}

// NewEngine validates the configuration and builds an engine with an empty
// identity map and a fully constructed self-managed pool.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Host == nil {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Clock == nil {
		deps.Clock = logging.ClockFunc(time.Now)
	}

	slots := buildSlots(cfg.Members)
	slotSet := make(map[Slot]struct{}, len(slots))
	for _, slot := range slots {
		slotSet[slot] = struct{}{}
	}

	selfPool := make([]*Element, 0, len(slots))
	for i, slot := range slots {
		el := NewElement(fmt.Sprintf("PreviewFrame%d", i+1))
		el.SetAssignedSlot(slot)
		selfPool = append(selfPool, el)
	}

	e := &Engine{
		cfg:           cfg,
		host:          deps.Host,
		updater:       deps.Updater,
		pub:           deps.Publisher,
		metrics:       deps.Metrics,
		clock:         deps.Clock,
		slots:         slots,
		slotSet:       slotSet,
		current:       newIdentityMap(len(slots)),
		selfPool:      selfPool,
		preview:       cfg.Preview,
		dirty:         make(map[Slot]IntentSet),
		driver:        make(map[Slot]DriverState, len(slots)),
		driverEnabled: cfg.VisibilityDriver,
		driverQueued:  make(map[Slot]bool),
		drift:         newDriftPolicy(cfg.DriftMissesPerTenThousand),
	}
	e.pending = newPendingBuffer(cfg.PendingCapacity, metricsAdapter{metrics: deps.Metrics})
	e.net.ladder = cfg.ladder()
	return e, nil
}

// metricsAdapter narrows *logging.Metrics to the buffer's needs without
// importing the telemetry package from the root.
type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m metricsAdapter) Add(key string, delta uint64) {
	m.metrics.TelemetryAdd(key, delta)
}

func (m metricsAdapter) Store(key string, value uint64) {
	m.metrics.TelemetryStore(key, value)
}

func (e *Engine) now() time.Time {
	if e.clock == nil {
		return time.Now()
	}
	return e.clock.Now()
}

// MutationSafe reports whether a host mutation issued right now would be
// accepted. Re-queried at every attempted mutation; protected mode can begin
// between two statements.
func (e *Engine) MutationSafe() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutationSafeLocked()
}

func (e *Engine) mutationSafeLocked() bool {
	return !e.protectedActive()
}

// deferLocked captures a mutation for replay after the protected window.
func (e *Engine) deferLocked(m pendingMutation) bool {
	e.seq++
	pushed := e.pending.Push(m)
	if pushed {
		e.stats.Deferred++
	}
	reconcile.MutationDeferred(context.Background(), e.pub, e.seq, string(m.Slot), reconcile.DeferredPayload{
		Mutation: string(m.Kind),
		Pending:  e.pending.Len(),
	})
	return pushed
}

// PendingMutations reports how many deferred mutations await replay.
func (e *Engine) PendingMutations() int {
	if e == nil {
		return 0
	}
	return e.pending.Len()
}

// HasPendingMutations reports whether any deferred work awaits replay.
func (e *Engine) HasPendingMutations() bool {
	return e.PendingMutations() > 0
}

// NotifyRosterChanged is the entry point for group composition events. A
// change observed while safe schedules an exact ladder; one observed during
// a protected window schedules the drift-tolerant ladder, since the host may
// still be mid-reassignment.
func (e *Engine) NotifyRosterChanged() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	includeHidden := e.protectedActive()
	e.scheduleRebuildLocked("roster-changed", includeHidden)
	e.reconcileAllDriversLocked()
}

// NotifyProtectedModeExited replays every pending mutation exactly once in
// FIFO order, re-runs dirty refresh intents, and schedules one exact rebuild
// ladder to converge on the host's settled assignment.
func (e *Engine) NotifyProtectedModeExited() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++

	muts := e.pending.Drain()
	e.rebuildQueued = false
	for _, m := range muts {
		e.replayLocked(m)
	}

	if len(e.dirty) > 0 {
		dirty := e.dirty
		e.dirty = make(map[Slot]IntentSet)
		for _, slot := range e.slots {
			intents, ok := dirty[slot]
			if !ok {
				continue
			}
			e.refreshLocked(slot, intents)
		}
	}

	e.scheduleRebuildLocked("protected-exit", false)
}

func (e *Engine) replayLocked(m pendingMutation) {
	e.stats.Replayed++
	applied := true
	switch m.Kind {
	case mutationShow:
		applied = !e.setVisibleLocked(m.Slot, m.Element, true).Deferred()
	case mutationHide:
		applied = !e.setVisibleLocked(m.Slot, m.Element, false).Deferred()
	case mutationDriverRegister, mutationDriverUnregister:
		e.driverQueued[m.Slot] = false
		applied = !e.reconcileDriverLocked(m.Slot).Deferred()
	case mutationRebuild:
		e.rebuildLocked(m.IncludeHidden, m.Reason+"/replay")
	}
	reconcile.MutationReplayed(context.Background(), e.pub, e.seq, string(m.Slot), reconcile.ReplayedPayload{
		Mutation: string(m.Kind),
		Applied:  applied,
	})
}

// SetPreview switches between the host-managed pool and the self-managed
// preview pool and reconciles the map and visibility ownership toward the
// new mode.
func (e *Engine) SetPreview(enabled bool) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.preview == enabled {
		return
	}
	e.seq++
	e.preview = enabled
	e.scheduleRebuildLocked("preview-toggle", false)
	e.reconcileAllDriversLocked()
}

// Preview reports whether the self-managed pool is active.
func (e *Engine) Preview() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preview
}

// GetCurrentMap returns a read-only snapshot of the identity map. Consumers
// reading between a roster change and the next scheduled rebuild may see an
// outdated mapping; the safety-net ladder bounds how long that lasts.
func (e *Engine) GetCurrentMap() *IdentityMap {
	if e == nil {
		return newIdentityMap(0)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.clone()
}

// Slots returns the fixed slot tokens in display order.
func (e *Engine) Slots() []Slot {
	if e == nil {
		return nil
	}
	return append([]Slot(nil), e.slots...)
}

// Generation reports how many rebuilds have replaced the map.
func (e *Engine) Generation() uint64 {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() EngineStats {
	if e == nil {
		return EngineStats{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) publishDriftHint(signal driftSignal) {
	reconcile.DriftHint(context.Background(), e.pub, e.seq, reconcile.DriftHintPayload{
		Misses:   signal.Misses,
		Attempts: signal.Attempts,
	})
}
