package queryz

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys for the Composer.
const (
	ComposerPassesTotal    = metricz.Key("composer.passes.total")
	ComposerItemsTotal     = metricz.Key("composer.items.total")
	ComposerOperatorCount  = metricz.Key("composer.operator.count")
	ComposerPassDurationMs = metricz.Key("composer.pass.duration.ms")
)

// Span names and tags for the Composer.
const (
	ComposerPassSpan = tracez.Key("composer.pass")

	ComposerTagOperatorCount = tracez.Tag("composer.operator_count")
	ComposerTagSourceLen     = tracez.Tag("composer.source_len")
	ComposerTagItems         = tracez.Tag("composer.items")
)

// Hook event keys for the Composer.
const (
	ComposerEventPassComplete = hookz.Key("composer.pass_complete")
)

// ComposerEvent represents the completion of one materialization pass.
// This is emitted via hookz after the chain has been drained to exhaustion
// and the temporary source detached.
type ComposerEvent struct {
	Name      Name          // Composer name
	Operators int           // Operators in the chain
	SourceLen int           // Length of the input sequence
	Items     int           // Values collected
	Duration  time.Duration // How long the pass took
	Timestamp time.Time     // When the event occurred
}

// Composer builds and drives a pull-based query chain.
//
// A Composer owns the head (sink-most, first pulled) and tail (source-most)
// of a linked operator chain. Operators are appended in source-to-sink
// order: the last appended operator is the pull entry point, the first
// appended sits nearest the eventual source. Appending stores an
// independent clone of the argument, never an alias - this is what lets a
// fully built Composer be appended into another chain, or even into itself,
// without creating a reference cycle.
//
// Materialization (ToSlice) grafts a fresh Iterate source onto the tail,
// drives the head with restart=true then restart=false until exhaustion,
// collects every yielded value in order, and detaches the source again.
// Because stateful operators honor the restart contract, the same Composer
// is reusable across any number of independent inputs with no leaked state
// between calls.
//
// Composer itself satisfies Operator, so composers nest: Pull delegates to
// the head, SetUpstream and Upstream delegate to the tail.
//
// Chain modification methods (Append, Clear, the fluent builders) are
// thread-safe. Pulling is not: a chain has exactly one logical consumer.
//
// Example:
//
//	q := queryz.NewComposer[int]("top-scores").
//	    Where("passing", func(_ context.Context, s int) bool { return s >= 60 }).
//	    OrderBy("descending", func(_ context.Context, a, b int) bool { return a > b }).
//	    Take("top-three", 3)
//
//	best := q.ToSlice(ctx, scores)
//
// # Observability
//
// Metrics:
//   - composer.passes.total: Counter of materialization passes
//   - composer.items.total: Counter of values collected across passes
//   - composer.operator.count: Gauge of operators in the chain
//   - composer.pass.duration.ms: Gauge of last pass duration
//
// Traces:
//   - composer.pass: Span covering one whole materialization pass
//
// Events (via hooks):
//   - composer.pass_complete: Fired when a materialization pass finishes
type Composer[T any] struct {
	head  Operator[T]
	tail  Operator[T]
	name  Name
	clock clockz.Clock
	mu    sync.RWMutex

	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[ComposerEvent]
}

// NewComposer creates a new Composer with optional initial operators,
// appended in source-to-sink order. Each operator is cloned on append, so
// the caller's instances remain independent of the chain.
func NewComposer[T any](name Name, ops ...Operator[T]) *Composer[T] {
	metrics := metricz.New()
	metrics.Counter(ComposerPassesTotal)
	metrics.Counter(ComposerItemsTotal)
	metrics.Gauge(ComposerOperatorCount)
	metrics.Gauge(ComposerPassDurationMs)

	c := &Composer[T]{
		name:    name,
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[ComposerEvent](),
	}
	for _, op := range ops {
		c.Append(op)
	}
	return c
}

// Append clones op, wires the clone's upstream to the current head, and
// makes it the new head. The first operator appended also becomes the tail.
//
// Cloning first is a hard rule, not an optimization: the stored node is a
// snapshot of the argument at this point in time. Appending a live Composer
// (including this one) therefore cannot alias its chain or form a cycle.
//
// Appending an empty Composer is a no-op: it has no stage to splice in, and
// linking it would orphan every operator already in the chain.
func (c *Composer[T]) Append(op Operator[T]) *Composer[T] {
	node := op.Clone()
	if nested, ok := node.(*Composer[T]); ok && nested.isEmpty() {
		return c
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	node.SetUpstream(c.head)
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
	c.metrics.Gauge(ComposerOperatorCount).Set(float64(c.chainLen()))
	return c
}

// Select appends a Select operator built from the given transform.
func (c *Composer[T]) Select(name Name, fn func(context.Context, T) T) *Composer[T] {
	return c.Append(NewSelect(name, fn))
}

// Where appends a Where operator built from the given predicate.
func (c *Composer[T]) Where(name Name, predicate func(context.Context, T) bool) *Composer[T] {
	return c.Append(NewWhere(name, predicate))
}

// Take appends a Take operator with the given capacity.
func (c *Composer[T]) Take(name Name, capacity int) *Composer[T] {
	return c.Append(NewTake[T](name, capacity))
}

// OrderBy appends an OrderBy operator built from the given comparator.
func (c *Composer[T]) OrderBy(name Name, less func(context.Context, T, T) bool) *Composer[T] {
	return c.Append(NewOrderBy(name, less))
}

// Clear detaches the head and tail, releasing the whole chain.
func (c *Composer[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = nil
	c.tail = nil
	c.metrics.Gauge(ComposerOperatorCount).Set(0)
}

// ToSlice materializes the chain against values: it attaches a fresh source
// adapter at the tail, drains the chain to exhaustion collecting every
// yielded value in order, then restores the tail's original upstream. The
// returned slice is freshly allocated and order-preserving. An empty chain
// materializes to an empty slice.
func (c *Composer[T]) ToSlice(ctx context.Context, values []T) []T {
	c.mu.RLock()
	head := c.head
	tail := c.tail
	c.mu.RUnlock()

	// Handle nil context
	if ctx == nil {
		ctx = context.Background()
	}

	clock := c.getClock()
	start := clock.Now()
	operators := c.Len()

	c.metrics.Counter(ComposerPassesTotal).Inc()
	c.metrics.Gauge(ComposerOperatorCount).Set(float64(operators))

	ctx, span := c.tracer.StartSpan(ctx, ComposerPassSpan)
	span.SetTag(ComposerTagOperatorCount, fmt.Sprintf("%d", operators))
	span.SetTag(ComposerTagSourceLen, fmt.Sprintf("%d", len(values)))

	results := make([]T, 0, len(values))
	if head != nil {
		base := tail.Upstream()
		tail.SetUpstream(NewIterate(c.name+".source", values))

		restart := true
		for {
			value, ok := head.Pull(ctx, restart)
			if !ok {
				break
			}
			results = append(results, value)
			c.metrics.Counter(ComposerItemsTotal).Inc()
			restart = false
		}

		tail.SetUpstream(base)
	}

	elapsed := clock.Since(start)
	c.metrics.Gauge(ComposerPassDurationMs).Set(float64(elapsed.Milliseconds()))
	span.SetTag(ComposerTagItems, fmt.Sprintf("%d", len(results)))
	span.Finish()

	_ = c.hooks.Emit(ctx, ComposerEventPassComplete, ComposerEvent{ //nolint:errcheck
		Name:      c.name,
		Operators: operators,
		SourceLen: len(values),
		Items:     len(results),
		Duration:  elapsed,
		Timestamp: clock.Now(),
	})

	return results
}

// ToSliceSeq materializes the chain against an iterator. The sequence is
// collected eagerly; it must be finite.
func (c *Composer[T]) ToSliceSeq(ctx context.Context, seq iter.Seq[T]) []T {
	return c.ToSlice(ctx, slices.Collect(seq))
}

// Copy returns a value-semantic copy of this Composer: the entire chain is
// cloned recursively, so the copy and the original share no mutable state.
// Appending further operators to one, or driving their stateful operators
// independently, never affects the other. The copy starts with fresh
// observability state and no hook registrations.
func (c *Composer[T]) Copy() *Composer[T] {
	c.mu.RLock()
	head := c.head
	tail := c.tail
	c.mu.RUnlock()

	clone := NewComposer[T](c.name)
	if head == nil {
		return clone
	}

	// Locate the clone's tail by taking the same number of hops that
	// separate head from tail on the original. Walking the clone to a nil
	// upstream instead would step through a nested composer into its inner
	// chain and absorb the source-most operators into the nested node.
	hops := 0
	for node := head; node != tail; node = node.Upstream() {
		hops++
	}

	newHead := head.Clone()
	newTail := newHead
	for i := 0; i < hops; i++ {
		newTail = newTail.Upstream()
	}

	clone.mu.Lock()
	clone.head = newHead
	clone.tail = newTail
	clone.metrics.Gauge(ComposerOperatorCount).Set(float64(clone.chainLen()))
	clone.mu.Unlock()
	return clone
}

// Pull implements the Operator interface by delegating to the head.
// An empty Composer pulls empty.
func (c *Composer[T]) Pull(ctx context.Context, restart bool) (T, bool) {
	c.mu.RLock()
	head := c.head
	c.mu.RUnlock()

	if head == nil {
		var zero T
		return zero, false
	}
	return head.Pull(ctx, restart)
}

// SetUpstream implements the Operator interface by delegating to the tail,
// so a nested Composer splices transparently into an outer chain.
// A no-op on an empty Composer.
func (c *Composer[T]) SetUpstream(op Operator[T]) {
	c.mu.RLock()
	tail := c.tail
	c.mu.RUnlock()

	if tail != nil {
		tail.SetUpstream(op)
	}
}

// Upstream implements the Operator interface by delegating to the tail.
func (c *Composer[T]) Upstream() Operator[T] {
	c.mu.RLock()
	tail := c.tail
	c.mu.RUnlock()

	if tail == nil {
		return nil
	}
	return tail.Upstream()
}

// Clone implements the Operator interface. Equivalent to Copy.
func (c *Composer[T]) Clone() Operator[T] {
	return c.Copy()
}

// isEmpty reports whether no operator has been appended.
func (c *Composer[T]) isEmpty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head == nil
}

// Len returns the number of operators in the chain. A nested Composer
// counts as one operator.
func (c *Composer[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chainLen()
}

// chainLen walks the chain from head to tail. Callers hold c.mu.
func (c *Composer[T]) chainLen() int {
	n := 0
	for node := c.head; node != nil; node = node.Upstream() {
		n++
	}
	return n
}

// Names returns the names of all operators from head (sink) to tail
// (source).
func (c *Composer[T]) Names() []Name {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var names []Name
	for node := c.head; node != nil; node = node.Upstream() {
		names = append(names, node.Name())
	}
	return names
}

// Name returns the name of this Composer.
func (c *Composer[T]) Name() Name { return c.name }

// WithClock sets a custom clock for pass timing. Pass timestamps and
// durations come from this clock; use clockz.NewFakeClock in tests.
func (c *Composer[T]) WithClock(clock clockz.Clock) *Composer[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
	return c
}

// getClock returns the clock to use for timing operations.
func (c *Composer[T]) getClock() clockz.Clock {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.clock == nil {
		return clockz.RealClock
	}
	return c.clock
}

// Metrics returns the metrics registry for this Composer.
func (c *Composer[T]) Metrics() *metricz.Registry { return c.metrics }

// Tracer returns the tracer for this Composer.
func (c *Composer[T]) Tracer() *tracez.Tracer { return c.tracer }

// Close gracefully shuts down observability components.
func (c *Composer[T]) Close() error {
	if c.tracer != nil {
		c.tracer.Close()
	}
	c.hooks.Close()
	return nil
}

// OnPassComplete registers a handler for materialization pass completion.
// The handler is called asynchronously after each ToSlice call finishes.
func (c *Composer[T]) OnPassComplete(handler func(context.Context, ComposerEvent) error) error {
	_, err := c.hooks.Hook(ComposerEventPassComplete, handler)
	return err
}
