package overlay

import "time"

const (
	scheduleTotalMetricKey    = "overlay_schedule_total"
	supersededTotalMetricKey  = "overlay_schedule_superseded_total"
	ladderFiredTotalMetricKey = "overlay_schedule_ladder_fired_total"
)

// scheduledRebuild is one rung of the safety-net ladder. The token is
// compared against the latest issued token at fire time; a superseded entry
// is a no-op. Token comparison is the only cancellation primitive — there
// are no cancellable timers.
type scheduledRebuild struct {
	token         uint64
	due           time.Time
	includeHidden bool
	reason        string
}

type safetyNet struct {
	latest  uint64
	entries []scheduledRebuild
	ladder  []time.Duration
}

func defaultLadder() []time.Duration {
	return []time.Duration{
		100 * time.Millisecond,
		400 * time.Millisecond,
		time.Second,
	}
}

// ScheduleRebuild issues a fresh generation token, performs one immediate
// rebuild, and schedules the delayed ladder relative to now. Any previously
// scheduled series is superseded. A single rebuild immediately after an
// event is insufficient because the host's restricted layer may not have
// finished reassigning elements within the same tick; the ladder trades a
// small amount of redundant work for eventual consistency without requiring
// the caller to know when the host has settled.
func (e *Engine) ScheduleRebuild(reason string, includeHidden bool) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduleRebuildLocked(reason, includeHidden)
}

func (e *Engine) scheduleRebuildLocked(reason string, includeHidden bool) {
	e.net.latest++
	token := e.net.latest
	if e.metrics != nil {
		e.metrics.TelemetryAdd(scheduleTotalMetricKey, 1)
	}

	e.rebuildLocked(includeHidden, reason)

	now := e.now()
	for _, delay := range e.net.ladder {
		e.net.entries = append(e.net.entries, scheduledRebuild{
			token:         token,
			due:           now.Add(delay),
			includeHidden: includeHidden,
			reason:        reason + "/ladder",
		})
	}
}

// Tick runs due ladder entries and consumes drift hints. The embedding host
// pumps it from its frame or timer callback; nothing here blocks.
func (e *Engine) Tick(now time.Time) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runDueLocked(now)

	if signal, ok := e.drift.consume(); ok {
		e.publishDriftHint(signal)
		e.scheduleRebuildLocked("drift-policy", true)
	}
}

func (e *Engine) runDueLocked(now time.Time) {
	if len(e.net.entries) == 0 {
		return
	}
	remaining := e.net.entries[:0]
	for _, entry := range e.net.entries {
		if entry.token != e.net.latest {
			e.stats.Superseded++
			if e.metrics != nil {
				e.metrics.TelemetryAdd(supersededTotalMetricKey, 1)
			}
			continue
		}
		if entry.due.After(now) {
			remaining = append(remaining, entry)
			continue
		}
		if e.metrics != nil {
			e.metrics.TelemetryAdd(ladderFiredTotalMetricKey, 1)
		}
		e.rebuildLocked(entry.includeHidden, entry.reason)
	}
	e.net.entries = remaining
}

// PendingScheduled reports how many ladder entries are still waiting to
// fire, superseded entries included until the next Tick prunes them.
func (e *Engine) PendingScheduled() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.net.entries)
}
