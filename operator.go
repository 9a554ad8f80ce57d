package queryz

import "context"

// Name is a type alias for operator and composer names.
// Using this type encourages storing names as constants rather than
// using inline strings throughout your code.
//
// Example:
//
//	const (
//	    SquareName    Name = "square"
//	    PositivesName Name = "positives"
//	)
//
//	square := queryz.NewSelect(SquareName, squareFunc)
type Name = string

// Operator defines the interface for one stage of a pull-based query chain.
// This interface is the foundation of queryz - every operator, source
// adapter, and composer implements it. The uniform interface enables
// seamless composition while maintaining type safety through Go generics.
//
// Pull produces the next value of the current pass, or (zero, false) to
// signal end of pass. restart=true begins a fresh pass from this call
// forward; restart=false continues the pass started by the most recent
// restarting call. Stateful operators reset their per-pass state when they
// see restart=true. The context is threaded through for span and event
// propagation; it does not carry a cancellation contract - the only way a
// pass ends early is an operator (Take) declining to pull upstream.
//
// SetUpstream and Upstream wire and read the predecessor in the chain.
// Source adapters have no upstream: their SetUpstream is a no-op and their
// Upstream returns nil.
//
// Clone produces a structurally independent copy of this operator and its
// entire upstream chain, recursively. Current state values (a Take's
// remaining budget, an OrderBy's buffer) carry over to the clone, but no
// mutable storage is shared: mutating one chain never affects the other.
// Observability state does not carry over - clones start with fresh
// metrics, tracer, and hook registrations.
//
// Operators are not safe for concurrent pulling. A chain has exactly one
// logical consumer; chain modification methods on Composer are the only
// operations guarded for concurrent use.
type Operator[T any] interface {
	Pull(ctx context.Context, restart bool) (T, bool)
	SetUpstream(Operator[T])
	Upstream() Operator[T]
	Clone() Operator[T]
	Name() Name
}
