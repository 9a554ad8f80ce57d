package queryz

import (
	"context"
	"testing"
)

// rewindSource is a test double for an upstream that honors the restart
// signal by rewinding to the start of its values. It records every pull it
// receives so tests can assert restart propagation and short-circuiting.
// Real sources (Iterate) are one-shot; the rewinding double is what lets a
// single test drive multiple passes through a stateful operator.
type rewindSource struct {
	values   []int
	cursor   int
	pulls    int
	restarts []bool
}

func (s *rewindSource) Pull(_ context.Context, restart bool) (int, bool) {
	s.pulls++
	s.restarts = append(s.restarts, restart)
	if restart {
		s.cursor = 0
	}
	if s.cursor >= len(s.values) {
		return 0, false
	}
	value := s.values[s.cursor]
	s.cursor++
	return value, true
}

func (s *rewindSource) SetUpstream(Operator[int]) {}

func (s *rewindSource) Upstream() Operator[int] { return nil }

func (s *rewindSource) Clone() Operator[int] {
	return &rewindSource{values: s.values, cursor: s.cursor}
}

func (s *rewindSource) Name() Name { return "rewind-source" }

// drain drives op through one full pass and collects everything it yields.
func drain(t *testing.T, op Operator[int]) []int {
	t.Helper()
	results := []int{}
	restart := true
	for {
		value, ok := op.Pull(context.Background(), restart)
		if !ok {
			break
		}
		results = append(results, value)
		restart = false
	}
	return results
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
