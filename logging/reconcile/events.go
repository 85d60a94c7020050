package reconcile

import (
	"context"

	"partyframes/overlay/logging"
)

const (
	// EventMapRebuilt is emitted after the identity map is replaced.
	EventMapRebuilt logging.EventType = "reconcile.map_rebuilt"
	// EventMutationDeferred is emitted when a mutation is captured for replay
	// instead of being applied during a protected window.
	EventMutationDeferred logging.EventType = "reconcile.mutation_deferred"
	// EventMutationReplayed is emitted when a pending mutation is replayed.
	EventMutationReplayed logging.EventType = "reconcile.mutation_replayed"
	// EventDriverMigrated is emitted when a slot's visibility ownership moves
	// between the imperative path and the host-evaluated driver.
	EventDriverMigrated logging.EventType = "visibility.driver_migrated"
	// EventRefreshUnresolved is emitted when the dispatcher exhausts the
	// resolution ladder for a slot.
	EventRefreshUnresolved logging.EventType = "dispatch.refresh_unresolved"
	// EventDriftHint is emitted when the drift policy requests a resync.
	EventDriftHint logging.EventType = "reconcile.drift_hint"
)

// MapRebuiltPayload captures the outcome of a rebuild pass.
type MapRebuiltPayload struct {
	Reason        string `json:"reason"`
	IncludeHidden bool   `json:"includeHidden"`
	MappedSlots   int    `json:"mappedSlots"`
	Readmitted    int    `json:"readmitted,omitempty"`
	Generation    uint64 `json:"generation"`
}

// MapRebuilt publishes a rebuild completion event.
func MapRebuilt(ctx context.Context, pub logging.Publisher, seq uint64, payload MapRebuiltPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMapRebuilt,
		Seq:      seq,
		Subject:  logging.SubjectRef{ID: "identity-map", Kind: logging.SubjectKindEngine},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryReconcile,
		Payload:  payload,
	})
}

// DeferredPayload describes a mutation captured during a protected window.
type DeferredPayload struct {
	Mutation string `json:"mutation"`
	Pending  int    `json:"pending"`
}

// MutationDeferred publishes a deferral event for the given slot.
func MutationDeferred(ctx context.Context, pub logging.Publisher, seq uint64, slot string, payload DeferredPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMutationDeferred,
		Seq:      seq,
		Subject:  logging.SubjectRef{ID: slot, Kind: logging.SubjectKindSlot},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryReconcile,
		Payload:  payload,
	})
}

// ReplayedPayload describes a replayed mutation and its result.
type ReplayedPayload struct {
	Mutation string `json:"mutation"`
	Applied  bool   `json:"applied"`
}

// MutationReplayed publishes a replay event for the given slot.
func MutationReplayed(ctx context.Context, pub logging.Publisher, seq uint64, slot string, payload ReplayedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMutationReplayed,
		Seq:      seq,
		Subject:  logging.SubjectRef{ID: slot, Kind: logging.SubjectKindSlot},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryReconcile,
		Payload:  payload,
	})
}

// DriverMigratedPayload captures a visibility ownership transition.
type DriverMigratedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DriverMigrated publishes a visibility driver transition for a slot.
func DriverMigrated(ctx context.Context, pub logging.Publisher, seq uint64, slot string, payload DriverMigratedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDriverMigrated,
		Seq:      seq,
		Subject:  logging.SubjectRef{ID: slot, Kind: logging.SubjectKindSlot},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryVisibility,
		Payload:  payload,
	})
}

// UnresolvedPayload captures a failed refresh resolution.
type UnresolvedPayload struct {
	Intents   string `json:"intents"`
	Protected bool   `json:"protected"`
}

// RefreshUnresolved publishes a resolution failure for a slot.
func RefreshUnresolved(ctx context.Context, pub logging.Publisher, seq uint64, slot string, payload UnresolvedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRefreshUnresolved,
		Seq:      seq,
		Subject:  logging.SubjectRef{ID: slot, Kind: logging.SubjectKindSlot},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryDispatch,
		Payload:  payload,
	})
}

// DriftHintPayload summarizes the drift policy counters behind a hint.
type DriftHintPayload struct {
	Misses   uint64 `json:"misses"`
	Attempts uint64 `json:"attempts"`
}

// DriftHint publishes a drift-policy resync hint.
func DriftHint(ctx context.Context, pub logging.Publisher, seq uint64, payload DriftHintPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDriftHint,
		Seq:      seq,
		Subject:  logging.SubjectRef{ID: "drift-policy", Kind: logging.SubjectKindEngine},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryReconcile,
		Payload:  payload,
	})
}
