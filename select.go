package queryz

import (
	"context"
	"sync"

	"github.com/zoobzio/metricz"
)

// Metric keys for the Select operator.
const (
	SelectProcessedTotal = metricz.Key("select.processed.total")
	SelectYieldedTotal   = metricz.Key("select.yielded.total")
)

// Select applies a pure transformation function to every value pulled
// through it.
//
// Select is the simplest operator: it keeps no state between pulls beyond
// its upstream link. Each Pull forwards the restart flag upstream unchanged,
// and either propagates end-of-pass or yields the transformed value. Output
// length always equals upstream length.
//
// The transformation cannot fail, making Select ideal for:
//   - Field mapping or restructuring
//   - Mathematical calculations
//   - Formatting that cannot error
//
// Side effects are confined to whatever the supplied function performs; the
// operator itself is effect-free.
//
// Example:
//
//	square := queryz.NewSelect("square", func(_ context.Context, n int) int {
//	    return n * n
//	})
//
// # Observability
//
// Metrics:
//   - select.processed.total: Counter of pulls received
//   - select.yielded.total: Counter of transformed values produced
type Select[T any] struct {
	upstream Operator[T]
	fn       func(context.Context, T) T
	name     Name
	mu       sync.RWMutex

	metrics *metricz.Registry
}

// NewSelect creates a new Select operator with the given transform.
func NewSelect[T any](name Name, fn func(context.Context, T) T) *Select[T] {
	metrics := metricz.New()
	metrics.Counter(SelectProcessedTotal)
	metrics.Counter(SelectYieldedTotal)

	return &Select[T]{
		name:    name,
		fn:      fn,
		metrics: metrics,
	}
}

// Pull implements the Operator interface.
func (s *Select[T]) Pull(ctx context.Context, restart bool) (T, bool) {
	s.mu.RLock()
	fn := s.fn
	upstream := s.upstream
	s.mu.RUnlock()

	s.metrics.Counter(SelectProcessedTotal).Inc()

	value, ok := upstream.Pull(ctx, restart)
	if !ok {
		var zero T
		return zero, false
	}

	s.metrics.Counter(SelectYieldedTotal).Inc()
	return fn(ctx, value), true
}

// SetUpstream implements the Operator interface.
func (s *Select[T]) SetUpstream(op Operator[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upstream = op
}

// Upstream implements the Operator interface.
func (s *Select[T]) Upstream() Operator[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upstream
}

// Clone implements the Operator interface. The clone shares the transform
// function but nothing mutable; its upstream chain is cloned recursively.
func (s *Select[T]) Clone() Operator[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := NewSelect(s.name, s.fn)
	if s.upstream != nil {
		clone.upstream = s.upstream.Clone()
	}
	return clone
}

// SetTransform updates the transform function.
// This allows for dynamic behavior changes at runtime.
func (s *Select[T]) SetTransform(fn func(context.Context, T) T) *Select[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	return s
}

// Name returns the name of this operator.
func (s *Select[T]) Name() Name { return s.name }

// Metrics returns the metrics registry for this operator.
func (s *Select[T]) Metrics() *metricz.Registry { return s.metrics }

// Close gracefully shuts down observability components. Select owns no
// tracer or hooks; Close exists for uniformity across operators.
func (s *Select[T]) Close() error { return nil }
