package queryz

import (
	"context"
	"testing"
)

func TestSelect_TransformsEveryValue(t *testing.T) {
	op := NewSelect("double", func(_ context.Context, n int) int { return n * 2 })
	op.SetUpstream(NewIterate("source", []int{1, 2, 3}))

	got := drain(t, op)

	if !equalInts(got, []int{2, 4, 6}) {
		t.Errorf("Expected [2 4 6], got %v", got)
	}
}

func TestSelect_OutputLengthEqualsInput(t *testing.T) {
	input := []int{5, 0, -3, 12}
	op := NewSelect("identity", func(_ context.Context, n int) int { return n })
	op.SetUpstream(NewIterate("source", input))

	got := drain(t, op)

	if len(got) != len(input) {
		t.Errorf("Expected %d values, got %d", len(input), len(got))
	}
}

func TestSelect_PropagatesEndOfPass(t *testing.T) {
	op := NewSelect("double", func(_ context.Context, n int) int { return n * 2 })
	op.SetUpstream(NewIterate("source", []int{}))

	if _, ok := op.Pull(context.Background(), true); ok {
		t.Error("Expected end of pass from an empty upstream")
	}
}

func TestSelect_ForwardsRestart(t *testing.T) {
	src := &rewindSource{values: []int{1, 2}}
	op := NewSelect("identity", func(_ context.Context, n int) int { return n })
	op.SetUpstream(src)

	op.Pull(context.Background(), true)
	op.Pull(context.Background(), false)

	if len(src.restarts) != 2 || !src.restarts[0] || src.restarts[1] {
		t.Errorf("Expected restart flags [true false], got %v", src.restarts)
	}
}

func TestSelect_SetTransform(t *testing.T) {
	op := NewSelect("transform", func(_ context.Context, n int) int { return n * 2 })
	op.SetUpstream(NewIterate("source", []int{3}))

	op.SetTransform(func(_ context.Context, n int) int { return n + 10 })

	got := drain(t, op)
	if !equalInts(got, []int{13}) {
		t.Errorf("Expected new transform result [13], got %v", got)
	}
}

func TestSelect_Clone_IndependentChain(t *testing.T) {
	op := NewSelect("double", func(_ context.Context, n int) int { return n * 2 })
	op.SetUpstream(NewIterate("source", []int{1, 2, 3}))

	clone := op.Clone()

	// Exhaust the original; the clone's cloned source must be untouched.
	drain(t, op)

	got := drain(t, clone)
	if !equalInts(got, []int{2, 4, 6}) {
		t.Errorf("Expected clone to yield [2 4 6] independently, got %v", got)
	}
}

func TestSelect_Close(t *testing.T) {
	op := NewSelect("double", func(_ context.Context, n int) int { return n * 2 })

	if err := op.Close(); err != nil {
		t.Errorf("Expected no error from Close, got %v", err)
	}
}

func TestSelect_Metrics(t *testing.T) {
	op := NewSelect("double", func(_ context.Context, n int) int { return n * 2 })
	op.SetUpstream(NewIterate("source", []int{1, 2}))

	drain(t, op)

	processed := op.Metrics().Counter(SelectProcessedTotal).Value()
	if processed != 3 {
		t.Errorf("Expected 3 pulls, got %v", processed)
	}

	yielded := op.Metrics().Counter(SelectYieldedTotal).Value()
	if yielded != 2 {
		t.Errorf("Expected 2 transformed values, got %v", yielded)
	}
}
