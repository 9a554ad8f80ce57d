package queryz

import (
	"context"
	"testing"
	"time"
)

func TestWhere_KeepsSatisfyingValuesInOrder(t *testing.T) {
	op := NewWhere("even", func(_ context.Context, n int) bool { return n%2 == 0 })
	op.SetUpstream(NewIterate("source", []int{1, 2, 3, 4, 5, 6}))

	got := drain(t, op)

	if !equalInts(got, []int{2, 4, 6}) {
		t.Errorf("Expected [2 4 6], got %v", got)
	}
}

func TestWhere_NoMatchYieldsEmptyPass(t *testing.T) {
	op := NewWhere("never", func(_ context.Context, _ int) bool { return false })
	op.SetUpstream(NewIterate("source", []int{1, 2, 3}))

	got := drain(t, op)

	if len(got) != 0 {
		t.Errorf("Expected empty pass, got %v", got)
	}
}

func TestWhere_RestartForwardedOncePerPull(t *testing.T) {
	src := &rewindSource{values: []int{1, 2, 3, 4}}
	op := NewWhere("gt2", func(_ context.Context, n int) bool { return n > 2 })
	op.SetUpstream(src)

	// One outer pull skips 1 and 2 before yielding 3: three inner pulls,
	// only the first carrying the restart signal.
	value, ok := op.Pull(context.Background(), true)
	if !ok || value != 3 {
		t.Fatalf("Expected 3, got %d (ok=%t)", value, ok)
	}

	want := []bool{true, false, false}
	if len(src.restarts) != len(want) {
		t.Fatalf("Expected %d inner pulls, got %d", len(want), len(src.restarts))
	}
	for i := range want {
		if src.restarts[i] != want[i] {
			t.Errorf("Inner pull %d: expected restart=%t, got %t", i, want[i], src.restarts[i])
		}
	}
}

func TestWhere_SetPredicate(t *testing.T) {
	op := NewWhere("filter", func(_ context.Context, n int) bool { return n > 2 })
	op.SetUpstream(NewIterate("source", []int{1, 2, 3}))

	op.SetPredicate(func(_ context.Context, n int) bool { return n < 3 })

	got := drain(t, op)
	if !equalInts(got, []int{1, 2}) {
		t.Errorf("Expected new predicate result [1 2], got %v", got)
	}
}

func TestWhere_Predicate(t *testing.T) {
	op := NewWhere("positive", func(_ context.Context, n int) bool { return n > 0 })

	if op.Predicate() == nil {
		t.Error("Expected predicate to be set")
	}
	if !op.Predicate()(context.Background(), 1) {
		t.Error("Expected predicate to accept 1")
	}
}

func TestWhere_Clone_IndependentChain(t *testing.T) {
	op := NewWhere("odd", func(_ context.Context, n int) bool { return n%2 == 1 })
	op.SetUpstream(NewIterate("source", []int{1, 2, 3}))

	clone := op.Clone()
	drain(t, op)

	got := drain(t, clone)
	if !equalInts(got, []int{1, 3}) {
		t.Errorf("Expected clone to yield [1 3] independently, got %v", got)
	}
}

func TestWhere_Metrics(t *testing.T) {
	op := NewWhere("even", func(_ context.Context, n int) bool { return n%2 == 0 })
	op.SetUpstream(NewIterate("source", []int{1, 2, 3, 4, 5}))

	drain(t, op)

	passed := op.Metrics().Counter(WherePassedTotal).Value()
	if passed != 2 {
		t.Errorf("Expected 2 passed candidates, got %v", passed)
	}

	skipped := op.Metrics().Counter(WhereSkippedTotal).Value()
	if skipped != 3 {
		t.Errorf("Expected 3 skipped candidates, got %v", skipped)
	}
}

func TestWhere_Events(t *testing.T) {
	op := NewWhere("even", func(_ context.Context, n int) bool { return n%2 == 0 })
	op.SetUpstream(NewIterate("source", []int{1, 2}))
	defer op.Close()

	passed := make(chan WhereEvent, 4)
	skipped := make(chan WhereEvent, 4)
	if err := op.OnPassed(func(_ context.Context, e WhereEvent) error {
		passed <- e
		return nil
	}); err != nil {
		t.Fatalf("OnPassed failed: %v", err)
	}
	if err := op.OnSkipped(func(_ context.Context, e WhereEvent) error {
		skipped <- e
		return nil
	}); err != nil {
		t.Fatalf("OnSkipped failed: %v", err)
	}

	drain(t, op)

	select {
	case e := <-passed:
		if !e.Passed {
			t.Error("Expected passed event to have Passed=true")
		}
		if e.Name != "even" {
			t.Errorf("Expected event name 'even', got %s", e.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for passed event")
	}

	select {
	case e := <-skipped:
		if e.Passed {
			t.Error("Expected skipped event to have Passed=false")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for skipped event")
	}
}
