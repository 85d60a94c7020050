package overlay

import "sync"

const (
	pendingOccupancyMetricKey = "overlay_pending_occupancy"
	pendingOverflowMetricKey  = "overlay_pending_overflow_total"
)

type mutationKind string

const (
	mutationShow             mutationKind = "show"
	mutationHide             mutationKind = "hide"
	mutationDriverRegister   mutationKind = "driver_register"
	mutationDriverUnregister mutationKind = "driver_unregister"
	mutationRebuild          mutationKind = "rebuild"
)

// pendingMutation is a deferred intent captured when a mutation was attempted
// during protected mode. Replayed exactly once when protected mode exits,
// then discarded.
type pendingMutation struct {
	Kind          mutationKind
	Slot          Slot
	Element       *Element
	IncludeHidden bool
	Reason        string
}

type pendingMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// pendingBuffer stores deferred mutations in a fixed-size FIFO ring. A full
// buffer rejects the newest entry; the post-exit rebuild recovers whatever a
// lost replay would have fixed.
type pendingBuffer struct {
	mu      sync.Mutex
	data    []pendingMutation
	head    int
	tail    int
	count   int
	metrics pendingMetrics
}

func newPendingBuffer(capacity int, metrics pendingMetrics) *pendingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &pendingBuffer{
		data:    make([]pendingMutation, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of mutations the buffer can hold.
func (b *pendingBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Push stages a mutation, returning false if the buffer is full.
func (b *pendingBuffer) Push(m pendingMutation) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.data) {
		if b.metrics != nil {
			b.metrics.Add(pendingOverflowMetricKey, 1)
		}
		return false
	}
	b.data[b.tail] = m
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	b.storeOccupancyLocked()
	return true
}

// Drain returns all staged mutations in FIFO order and clears the buffer.
func (b *pendingBuffer) Drain() []pendingMutation {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	muts := make([]pendingMutation, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % len(b.data)
		muts[i] = b.data[idx]
	}
	b.head = 0
	b.tail = 0
	b.count = 0
	b.storeOccupancyLocked()
	return muts
}

// Len reports the number of staged mutations.
func (b *pendingBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *pendingBuffer) storeOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(pendingOccupancyMetricKey, uint64(b.count))
}
