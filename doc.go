// Package queryz provides a lightweight, type-safe library for building lazy,
// pull-based query pipelines in Go.
//
// # Overview
//
// queryz lets you describe a sequence transformation once - map, filter,
// limit, sort - and evaluate it later against any finite input. Nothing
// executes when the chain is built; values are pulled one at a time through
// the chain only when a materialization is requested. Operators that can
// stop early (Take) never pull more than they need, so upstream work is
// skipped entirely rather than computed and discarded.
//
// # Installation
//
//	go get github.com/zoobzio/queryz
//
// Requires Go 1.23+ for generic type constraints and iter.Seq support.
//
// # Core Concepts
//
// The library is built around a single, uniform interface:
//
//	type Operator[T any] interface {
//	    Pull(ctx context.Context, restart bool) (T, bool)
//	    SetUpstream(Operator[T])
//	    Upstream() Operator[T]
//	    Clone() Operator[T]
//	    Name() Name
//	}
//
// Key components:
//   - Operators: individual pipeline stages (Select, Where, Take, OrderBy)
//   - Iterate: the source adapter that feeds a finite sequence into a chain
//   - Composer: builds chains fluently and drives materialization
//
// Design philosophy:
//   - Chains are descriptions, not computations; Pull drives everything
//   - Appending an operator stores an independent clone, never an alias
//   - Copying a Composer deep-copies the whole chain; copies share no state
//
// Everything implements Operator[T], so a fully built Composer can itself be
// appended as one stage inside another chain. Execution is synchronous and
// single-consumer: exactly one caller drives pulls, and end of sequence is an
// ordinary (zero, false) return.
//
// # The Pull Contract
//
// A pass is one end-to-end drive of the chain. The first Pull of a pass
// carries restart=true, which tells stateful operators to reset (Take
// restores its budget, OrderBy discards its buffer). Every subsequent Pull
// carries restart=false. Operators that pull upstream more than once per
// call (Where while skipping, OrderBy while draining) forward the restart
// signal on their first inner pull only. These propagation rules are
// load-bearing: they are what make a chain reusable across independent
// inputs without leaking state between runs.
//
// # Quick Start
//
//	q := queryz.NewComposer[int]("evens-squared").
//	    Where("even", func(_ context.Context, n int) bool { return n%2 == 0 }).
//	    Select("square", func(_ context.Context, n int) int { return n * n }).
//	    Take("first-three", 3)
//
//	result := q.ToSlice(context.Background(), []int{1, 2, 3, 4, 5, 6, 7, 8})
//	// result: [4, 16, 36] - 8 is never pulled, let alone squared
//
// The same Composer can be materialized again with a different input; each
// call grafts a fresh source onto the chain and detaches it afterward.
//
// # Choosing the Right Operator
//
//   - Select: transform every value (cannot fail, cannot drop values)
//   - Where: keep only values satisfying a predicate
//   - Take: truncate to a prefix; short-circuits upstream once spent
//   - OrderBy: sort; eager - drains its upstream fully before emitting
//   - Iterate: adapt a finite slice or iter.Seq as a one-shot source
//
// OrderBy is the one eager stage in an otherwise lazy chain: every upstream
// side effect for a pass happens before any downstream consumer sees the
// first sorted value. Its sort is not stable; equal elements may emerge in
// any order.
//
// # Value Semantics
//
// Composer.Copy performs a full recursive clone of the chain. Driving the
// copy and the original independently - even appending different further
// operators to each - behaves exactly like two pipelines built separately.
// Because Append also clones its argument, appending a Composer into another
// chain (or into itself) stores a snapshot, never a live alias, so no
// reference cycle or shared-mutation hazard can arise.
//
// Element values move through the chain by assignment. For element types
// holding pointers, slices, or maps, the supplied transform and comparator
// functions see shared references; keep them pure with respect to their
// arguments.
//
// # Observability
//
// Operators follow the zoobzio observability conventions:
//
//   - metricz: every operator owns a registry; counters track pulls, yields,
//     and skips, gauges track Take's remaining budget and OrderBy's buffer
//   - tracez: Composer wraps each materialization pass in a span, OrderBy
//     wraps its drain phase
//   - hookz: typed events fire on filter decisions, budget exhaustion,
//     drain completion, and pass completion
//   - clockz: Composer timestamps come from an injectable clock; use
//     WithClock with a fake clock in tests
//
// Clones get fresh observability state: metrics, spans, and hook
// registrations never cross between a chain and its copies.
package queryz
