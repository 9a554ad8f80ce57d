package queryz

import (
	"context"
	"iter"
	"slices"

	"github.com/zoobzio/metricz"
)

// Metric keys for the Iterate source adapter.
const (
	IteratePulledTotal  = metricz.Key("iterate.pulled.total")
	IterateYieldedTotal = metricz.Key("iterate.yielded.total")
)

// Iterate adapts a finite sequence as a one-shot source for a query chain.
//
// Iterate is a terminal operator: it has no upstream of its own, SetUpstream
// is a no-op, and Upstream always returns nil. It holds a cursor into its
// values and advances on every Pull, ignoring the restart flag entirely - a
// source never rewinds. Once the cursor reaches the end, the adapter yields
// empty permanently. A fresh adapter must be constructed for every
// independent pass over the same underlying sequence; Composer does exactly
// that on each materialization.
//
// # Observability
//
// Metrics:
//   - iterate.pulled.total: Counter of pulls received
//   - iterate.yielded.total: Counter of values produced
type Iterate[T any] struct {
	values  []T
	cursor  int
	name    Name
	metrics *metricz.Registry
}

// NewIterate creates a source adapter over a copy of values. Copying keeps
// the adapter independent of later mutation of the caller's slice.
func NewIterate[T any](name Name, values []T) *Iterate[T] {
	metrics := metricz.New()
	metrics.Counter(IteratePulledTotal)
	metrics.Counter(IterateYieldedTotal)

	return &Iterate[T]{
		name:    name,
		values:  slices.Clone(values),
		metrics: metrics,
	}
}

// NewIterateSeq creates a source adapter from an iterator. The sequence is
// collected eagerly; it must be finite.
func NewIterateSeq[T any](name Name, seq iter.Seq[T]) *Iterate[T] {
	return NewIterate(name, slices.Collect(seq))
}

// Pull implements the Operator interface. The restart flag is ignored:
// the adapter always advances from its current cursor position.
func (it *Iterate[T]) Pull(_ context.Context, _ bool) (T, bool) {
	it.metrics.Counter(IteratePulledTotal).Inc()

	if it.cursor >= len(it.values) {
		var zero T
		return zero, false
	}

	value := it.values[it.cursor]
	it.cursor++
	it.metrics.Counter(IterateYieldedTotal).Inc()
	return value, true
}

// SetUpstream is a no-op: a source adapter rejects attachment attempts.
func (*Iterate[T]) SetUpstream(Operator[T]) {}

// Upstream implements the Operator interface. A source has no upstream.
func (*Iterate[T]) Upstream() Operator[T] { return nil }

// Clone implements the Operator interface. The clone continues from the
// same cursor position over its own copy of the values.
func (it *Iterate[T]) Clone() Operator[T] {
	clone := NewIterate(it.name, it.values)
	clone.cursor = it.cursor
	return clone
}

// Name returns the name of this source adapter.
func (it *Iterate[T]) Name() Name { return it.name }

// Metrics returns the metrics registry for this source adapter.
func (it *Iterate[T]) Metrics() *metricz.Registry { return it.metrics }

// Close gracefully shuts down observability components. Iterate owns no
// tracer or hooks; Close exists for uniformity across operators.
func (it *Iterate[T]) Close() error { return nil }
