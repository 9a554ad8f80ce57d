package queryz

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
)

// Metric keys for the Where operator.
const (
	WhereProcessedTotal = metricz.Key("where.processed.total")
	WherePassedTotal    = metricz.Key("where.passed.total")
	WhereSkippedTotal   = metricz.Key("where.skipped.total")
)

// Hook event keys for the Where operator.
const (
	WhereEventPassed  = hookz.Key("where.passed")
	WhereEventSkipped = hookz.Key("where.skipped")
)

// WhereEvent represents a filter decision event.
// This is emitted via hookz for every candidate the predicate evaluates,
// allowing external systems to track filtering decisions.
type WhereEvent struct {
	Name      Name      // Operator name
	Passed    bool      // Whether the candidate satisfied the predicate
	Timestamp time.Time // When the event occurred
}

// Where yields only the values that satisfy a predicate.
//
// Each Pull loops over upstream candidates until one passes the predicate
// or upstream signals end of pass. The restart flag is forwarded on the
// first inner pull only; every inner pull triggered by a rejected candidate
// uses restart=false, so a pass is restarted at most once per outer call no
// matter how many candidates are skipped. Output is a subsequence of the
// upstream output preserving relative order.
//
// A predicate no value satisfies simply produces an empty pass - the loop
// terminates when the finite upstream is exhausted.
//
// Example:
//
//	positives := queryz.NewWhere("positive", func(_ context.Context, n int) bool {
//	    return n > 0
//	})
//
// # Observability
//
// Metrics:
//   - where.processed.total: Counter of outer pulls received
//   - where.passed.total: Counter of candidates that satisfied the predicate
//   - where.skipped.total: Counter of candidates rejected
//
// Events (via hooks):
//   - where.passed: Fired when a candidate satisfies the predicate
//   - where.skipped: Fired when a candidate is rejected
type Where[T any] struct {
	upstream  Operator[T]
	predicate func(context.Context, T) bool
	name      Name
	mu        sync.RWMutex

	metrics *metricz.Registry
	hooks   *hookz.Hooks[WhereEvent]
}

// NewWhere creates a new Where operator with the given predicate.
func NewWhere[T any](name Name, predicate func(context.Context, T) bool) *Where[T] {
	metrics := metricz.New()
	metrics.Counter(WhereProcessedTotal)
	metrics.Counter(WherePassedTotal)
	metrics.Counter(WhereSkippedTotal)

	return &Where[T]{
		name:      name,
		predicate: predicate,
		metrics:   metrics,
		hooks:     hookz.New[WhereEvent](),
	}
}

// Pull implements the Operator interface.
func (w *Where[T]) Pull(ctx context.Context, restart bool) (T, bool) {
	w.mu.RLock()
	predicate := w.predicate
	upstream := w.upstream
	w.mu.RUnlock()

	w.metrics.Counter(WhereProcessedTotal).Inc()

	needRestart := restart
	for {
		value, ok := upstream.Pull(ctx, needRestart)
		needRestart = false
		if !ok {
			var zero T
			return zero, false
		}

		if predicate(ctx, value) {
			w.metrics.Counter(WherePassedTotal).Inc()
			_ = w.hooks.Emit(ctx, WhereEventPassed, WhereEvent{ //nolint:errcheck
				Name:      w.name,
				Passed:    true,
				Timestamp: time.Now(),
			})
			return value, true
		}

		w.metrics.Counter(WhereSkippedTotal).Inc()
		_ = w.hooks.Emit(ctx, WhereEventSkipped, WhereEvent{ //nolint:errcheck
			Name:      w.name,
			Passed:    false,
			Timestamp: time.Now(),
		})
	}
}

// SetUpstream implements the Operator interface.
func (w *Where[T]) SetUpstream(op Operator[T]) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.upstream = op
}

// Upstream implements the Operator interface.
func (w *Where[T]) Upstream() Operator[T] {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.upstream
}

// Clone implements the Operator interface. The clone shares the predicate
// but nothing mutable; its upstream chain is cloned recursively. Hook
// registrations do not carry over.
func (w *Where[T]) Clone() Operator[T] {
	w.mu.RLock()
	defer w.mu.RUnlock()

	clone := NewWhere(w.name, w.predicate)
	if w.upstream != nil {
		clone.upstream = w.upstream.Clone()
	}
	return clone
}

// SetPredicate updates the predicate function.
// This allows for dynamic behavior changes at runtime.
func (w *Where[T]) SetPredicate(predicate func(context.Context, T) bool) *Where[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.predicate = predicate
	return w
}

// Predicate returns the current predicate function.
func (w *Where[T]) Predicate() func(context.Context, T) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.predicate
}

// Name returns the name of this operator.
func (w *Where[T]) Name() Name { return w.name }

// Metrics returns the metrics registry for this operator.
func (w *Where[T]) Metrics() *metricz.Registry { return w.metrics }

// Close gracefully shuts down observability components.
func (w *Where[T]) Close() error {
	w.hooks.Close()
	return nil
}

// OnPassed registers a handler for candidates that satisfy the predicate.
// The handler is called asynchronously for each passing candidate.
func (w *Where[T]) OnPassed(handler func(context.Context, WhereEvent) error) error {
	_, err := w.hooks.Hook(WhereEventPassed, handler)
	return err
}

// OnSkipped registers a handler for candidates rejected by the predicate.
// The handler is called asynchronously for each rejected candidate.
func (w *Where[T]) OnSkipped(handler func(context.Context, WhereEvent) error) error {
	_, err := w.hooks.Hook(WhereEventSkipped, handler)
	return err
}
