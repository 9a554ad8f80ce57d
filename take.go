package queryz

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
)

// Metric keys for the Take operator.
const (
	TakeProcessedTotal  = metricz.Key("take.processed.total")
	TakeYieldedTotal    = metricz.Key("take.yielded.total")
	TakeExhaustedTotal  = metricz.Key("take.exhausted.total")
	TakeRemainingBudget = metricz.Key("take.remaining.budget")
)

// Hook event keys for the Take operator.
const (
	TakeEventExhausted = hookz.Key("take.exhausted")
)

// TakeEvent represents a Take operator closing for the current pass.
// This is emitted via hookz once per pass, either because the budget was
// spent or because upstream ran out first.
type TakeEvent struct {
	Name            Name      // Operator name
	Capacity        int       // Fixed per-pass budget
	Yielded         int       // Values yielded this pass
	UpstreamDrained bool      // True when upstream ended before the budget was spent
	Timestamp       time.Time // When the event occurred
}

// Take truncates a pass to at most capacity values.
//
// Take holds a remaining-count that restart resets to the fixed capacity.
// Once the budget for the current pass is spent, Pull yields empty without
// touching upstream - the short-circuit is what makes a Take-bounded chain
// skip upstream work entirely rather than compute and discard it. If
// upstream runs out first, the budget is forced to zero for the rest of the
// pass even if some remained.
//
// Capacity is fixed for the operator's life. Capacity 0 is a valid
// degenerate case: the operator yields an empty pass forever.
//
// Example:
//
//	firstFive := queryz.NewTake[int]("first-five", 5)
//
// # Observability
//
// Metrics:
//   - take.processed.total: Counter of pulls received
//   - take.yielded.total: Counter of values passed through
//   - take.exhausted.total: Counter of passes closed
//   - take.remaining.budget: Gauge of budget left in the current pass
//
// Events (via hooks):
//   - take.exhausted: Fired once per pass when the operator closes
type Take[T any] struct {
	upstream  Operator[T]
	name      Name
	remaining int
	yielded   int
	reported  bool
	capacity  int
	mu        sync.RWMutex

	metrics *metricz.Registry
	hooks   *hookz.Hooks[TakeEvent]
}

// NewTake creates a new Take operator with the given capacity.
// A negative capacity is treated as zero.
func NewTake[T any](name Name, capacity int) *Take[T] {
	if capacity < 0 {
		capacity = 0
	}

	metrics := metricz.New()
	metrics.Counter(TakeProcessedTotal)
	metrics.Counter(TakeYieldedTotal)
	metrics.Counter(TakeExhaustedTotal)
	metrics.Gauge(TakeRemainingBudget)

	return &Take[T]{
		name:      name,
		capacity:  capacity,
		remaining: capacity,
		metrics:   metrics,
		hooks:     hookz.New[TakeEvent](),
	}
}

// Pull implements the Operator interface.
func (t *Take[T]) Pull(ctx context.Context, restart bool) (T, bool) {
	t.mu.RLock()
	upstream := t.upstream
	t.mu.RUnlock()

	t.metrics.Counter(TakeProcessedTotal).Inc()

	if restart {
		t.remaining = t.capacity
		t.yielded = 0
		t.reported = false
		t.metrics.Gauge(TakeRemainingBudget).Set(float64(t.remaining))
	}

	if t.remaining == 0 {
		t.reportExhausted(ctx, false)
		var zero T
		return zero, false
	}

	t.remaining--
	t.metrics.Gauge(TakeRemainingBudget).Set(float64(t.remaining))

	value, ok := upstream.Pull(ctx, restart)
	if !ok {
		// Upstream ran dry: close the operator for the rest of this pass
		// even though budget remained.
		t.remaining = 0
		t.metrics.Gauge(TakeRemainingBudget).Set(0)
		t.reportExhausted(ctx, true)
		var zero T
		return zero, false
	}

	t.yielded++
	t.metrics.Counter(TakeYieldedTotal).Inc()
	return value, true
}

// reportExhausted emits the pass-closed event at most once per pass.
func (t *Take[T]) reportExhausted(ctx context.Context, upstreamDrained bool) {
	if t.reported {
		return
	}
	t.reported = true
	t.metrics.Counter(TakeExhaustedTotal).Inc()
	_ = t.hooks.Emit(ctx, TakeEventExhausted, TakeEvent{ //nolint:errcheck
		Name:            t.name,
		Capacity:        t.capacity,
		Yielded:         t.yielded,
		UpstreamDrained: upstreamDrained,
		Timestamp:       time.Now(),
	})
}

// SetUpstream implements the Operator interface.
func (t *Take[T]) SetUpstream(op Operator[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.upstream = op
}

// Upstream implements the Operator interface.
func (t *Take[T]) Upstream() Operator[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.upstream
}

// Clone implements the Operator interface. The clone carries the current
// pass state (remaining budget) but shares no mutable storage; its upstream
// chain is cloned recursively. Hook registrations do not carry over.
func (t *Take[T]) Clone() Operator[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	clone := NewTake[T](t.name, t.capacity)
	clone.remaining = t.remaining
	clone.yielded = t.yielded
	clone.reported = t.reported
	if t.upstream != nil {
		clone.upstream = t.upstream.Clone()
	}
	return clone
}

// Capacity returns the fixed per-pass budget.
func (t *Take[T]) Capacity() int { return t.capacity }

// Name returns the name of this operator.
func (t *Take[T]) Name() Name { return t.name }

// Metrics returns the metrics registry for this operator.
func (t *Take[T]) Metrics() *metricz.Registry { return t.metrics }

// Close gracefully shuts down observability components.
func (t *Take[T]) Close() error {
	t.hooks.Close()
	return nil
}

// OnExhausted registers a handler for when the operator closes for a pass,
// either by spending its budget or because upstream ran out first.
// The handler is called asynchronously at most once per pass.
func (t *Take[T]) OnExhausted(handler func(context.Context, TakeEvent) error) error {
	_, err := t.hooks.Hook(TakeEventExhausted, handler)
	return err
}
