package queryz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys for the OrderBy operator.
const (
	OrderByProcessedTotal = metricz.Key("orderby.processed.total")
	OrderByDrainsTotal    = metricz.Key("orderby.drains.total")
	OrderByBufferSize     = metricz.Key("orderby.buffer.size")
)

// Span names and tags for the OrderBy operator.
const (
	OrderByDrainSpan = tracez.Key("orderby.drain")

	OrderByTagOperator = tracez.Tag("orderby.operator")
	OrderByTagBuffered = tracez.Tag("orderby.buffered")
)

// Hook event keys for the OrderBy operator.
const (
	OrderByEventDrained = hookz.Key("orderby.drained")
)

// OrderByEvent represents the completion of a drain phase.
// This is emitted via hookz once per pass, after upstream has been pulled
// to exhaustion and the buffer sorted.
type OrderByEvent struct {
	Name      Name      // Operator name
	Buffered  int       // Values drained from upstream
	Timestamp time.Time // When the event occurred
}

// OrderBy sorts the values of a pass according to a comparator.
//
// OrderBy is the one eager operator in an otherwise lazy chain: it cannot
// emit anything until its upstream is exhausted. On the first Pull of a pass
// it drains upstream completely - forwarding the restart flag on the first
// inner pull only - sorts the buffer, and then replays it one value per
// Pull. restart=true discards the buffer and clears the drained mark, so
// the next pull drains afresh.
//
// An empty upstream produces an empty pass without the comparator ever
// being invoked.
//
// The sort is not stable: values that compare equal may emerge in any
// order. Output is always a permutation of the upstream output.
//
// Example:
//
//	descending := queryz.NewOrderBy("descending", func(_ context.Context, a, b int) bool {
//	    return a > b
//	})
//
// # Observability
//
// Metrics:
//   - orderby.processed.total: Counter of pulls received
//   - orderby.drains.total: Counter of drain phases completed
//   - orderby.buffer.size: Gauge of values buffered in the last drain
//
// Traces:
//   - orderby.drain: Span covering the drain and sort phase
//
// Events (via hooks):
//   - orderby.drained: Fired when a drain phase completes
type OrderBy[T any] struct {
	upstream Operator[T]
	less     func(context.Context, T, T) bool
	name     Name
	drained  bool
	buf      []T
	pos      int
	mu       sync.RWMutex

	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[OrderByEvent]
}

// NewOrderBy creates a new OrderBy operator with the given comparator.
// less reports whether a should sort before b.
func NewOrderBy[T any](name Name, less func(context.Context, T, T) bool) *OrderBy[T] {
	metrics := metricz.New()
	metrics.Counter(OrderByProcessedTotal)
	metrics.Counter(OrderByDrainsTotal)
	metrics.Gauge(OrderByBufferSize)

	return &OrderBy[T]{
		name:    name,
		less:    less,
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[OrderByEvent](),
	}
}

// Pull implements the Operator interface.
func (o *OrderBy[T]) Pull(ctx context.Context, restart bool) (T, bool) {
	o.mu.RLock()
	less := o.less
	upstream := o.upstream
	o.mu.RUnlock()

	o.metrics.Counter(OrderByProcessedTotal).Inc()

	if restart {
		o.drained = false
		o.buf = o.buf[:0]
		o.pos = 0
	}

	if !o.drained {
		drainCtx, span := o.tracer.StartSpan(ctx, OrderByDrainSpan)
		span.SetTag(OrderByTagOperator, string(o.name))

		needRestart := restart
		for {
			value, ok := upstream.Pull(drainCtx, needRestart)
			needRestart = false
			if !ok {
				break
			}
			o.buf = append(o.buf, value)
		}

		sort.Slice(o.buf, func(i, j int) bool {
			return less(ctx, o.buf[i], o.buf[j])
		})
		o.drained = true

		o.metrics.Counter(OrderByDrainsTotal).Inc()
		o.metrics.Gauge(OrderByBufferSize).Set(float64(len(o.buf)))
		span.SetTag(OrderByTagBuffered, fmt.Sprintf("%d", len(o.buf)))
		span.Finish()

		_ = o.hooks.Emit(ctx, OrderByEventDrained, OrderByEvent{ //nolint:errcheck
			Name:      o.name,
			Buffered:  len(o.buf),
			Timestamp: time.Now(),
		})
	}

	if o.pos >= len(o.buf) {
		var zero T
		return zero, false
	}

	value := o.buf[o.pos]
	o.pos++
	return value, true
}

// SetUpstream implements the Operator interface.
func (o *OrderBy[T]) SetUpstream(op Operator[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.upstream = op
}

// Upstream implements the Operator interface.
func (o *OrderBy[T]) Upstream() Operator[T] {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.upstream
}

// Clone implements the Operator interface. The clone carries the current
// pass state (buffer contents, replay position, drained mark) in its own
// storage; its upstream chain is cloned recursively. Hook registrations do
// not carry over.
func (o *OrderBy[T]) Clone() Operator[T] {
	o.mu.RLock()
	defer o.mu.RUnlock()

	clone := NewOrderBy(o.name, o.less)
	clone.drained = o.drained
	clone.pos = o.pos
	clone.buf = append(clone.buf, o.buf...)
	if o.upstream != nil {
		clone.upstream = o.upstream.Clone()
	}
	return clone
}

// Name returns the name of this operator.
func (o *OrderBy[T]) Name() Name { return o.name }

// Metrics returns the metrics registry for this operator.
func (o *OrderBy[T]) Metrics() *metricz.Registry { return o.metrics }

// Tracer returns the tracer for this operator.
func (o *OrderBy[T]) Tracer() *tracez.Tracer { return o.tracer }

// Close gracefully shuts down observability components.
func (o *OrderBy[T]) Close() error {
	if o.tracer != nil {
		o.tracer.Close()
	}
	o.hooks.Close()
	return nil
}

// OnDrained registers a handler for drain completion.
// The handler is called asynchronously once per pass, after upstream has
// been exhausted and the buffer sorted.
func (o *OrderBy[T]) OnDrained(handler func(context.Context, OrderByEvent) error) error {
	_, err := o.hooks.Hook(OrderByEventDrained, handler)
	return err
}
