package stream

import (
	"slices"
	"strings"
	"testing"
)

func TestMap(t *testing.T) {
	s := NewSubject("a")
	upper := Map[string, string](s, strings.ToUpper)

	var rec recorder[string]
	upper.Subscribe(rec.add)
	s.Next("b")

	if got := rec.got(); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("received %v, want [A B]", got)
	}
}

func TestFilter(t *testing.T) {
	s := NewSubject(0)
	even := Filter[int](s, func(v int) bool { return v%2 == 0 })

	var rec recorder[int]
	even.Subscribe(rec.add)
	for i := 1; i <= 4; i++ {
		s.Next(i)
	}

	if got := rec.got(); !slices.Equal(got, []int{0, 2, 4}) {
		t.Errorf("received %v, want [0 2 4]", got)
	}
}

// TestMap_RecomputesPerSubscriber verifies the derived stream holds no
// state: a late subscriber recomputes from the replayed upstream value.
func TestMap_RecomputesPerSubscriber(t *testing.T) {
	s := NewSubject(1)
	calls := 0
	doubled := Map[int, int](s, func(v int) int {
		calls++
		return v * 2
	})

	var first recorder[int]
	doubled.Subscribe(first.add)
	s.Next(2)

	var late recorder[int]
	doubled.Subscribe(late.add)

	if got := late.got(); !slices.Equal(got, []int{4}) {
		t.Errorf("late subscriber received %v, want [4]", got)
	}
	if calls != 3 {
		t.Errorf("transform called %d times, want 3", calls)
	}
}

func TestMap_UnsubscribeStopsUpstream(t *testing.T) {
	s := NewSubject(1)
	sub := Map[int, int](s, func(v int) int { return v }).Subscribe(func(int) {})

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	sub.Unsubscribe()
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after Unsubscribe", s.Len())
	}
}
