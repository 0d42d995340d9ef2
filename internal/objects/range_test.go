package objects

import "testing"

func TestRangeExclusiveEnumeration(t *testing.T) {
	r := NewRange(0, 5, 1, false)
	if got := r.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
	var sum int64
	for i := 0; i < r.Len(); i++ {
		sum += r.ElemAt(i).Int()
	}
	if sum != 10 {
		t.Fatalf("sum = %d, want 10", sum)
	}
}

func TestRangeInclusiveEnumeration(t *testing.T) {
	r := NewRange(0, 5, 1, true)
	if got := r.Len(); got != 6 {
		t.Fatalf("Len() = %d, want 6", got)
	}
	if got := r.ElemAt(r.Len() - 1).Int(); got != 5 {
		t.Fatalf("last element = %d, want 5", got)
	}
}

func TestRangeDescendingStep(t *testing.T) {
	r := NewRange(10, 0, -2, false)
	if got := r.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
	if got := r.ElemAt(0).Int(); got != 10 {
		t.Fatalf("first element = %d, want 10", got)
	}
	if got := r.ElemAt(4).Int(); got != 2 {
		t.Fatalf("last element = %d, want 2", got)
	}
}

func TestRangeIsInfiniteLoop(t *testing.T) {
	cases := []struct {
		name             string
		start, end, step int64
		inclusive        bool
		want             bool
	}{
		{"ascending with positive step", 0, 5, 1, false, false},
		{"ascending with negative step never progresses", 0, 5, -1, false, true},
		{"descending with negative step", 5, 0, -1, false, false},
		{"descending with positive step never progresses", 5, 0, 1, false, true},
		{"zero step never progresses", 0, 5, 0, false, true},
		{"empty exclusive range at equal bounds", 3, 3, 1, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRange(tc.start, tc.end, tc.step, tc.inclusive)
			if got := r.IsInfiniteLoop(); got != tc.want {
				t.Fatalf("IsInfiniteLoop() = %v, want %v", got, tc.want)
			}
		})
	}
}
