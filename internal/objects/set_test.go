package objects

import (
	"testing"

	"poise/internal/value"
)

func setOf(nums ...int64) *Set {
	s := NewSet()
	for _, n := range nums {
		s.TryInsert(value.Int(n))
	}
	return s
}

func setMembers(t *testing.T, s *Set) map[int64]bool {
	t.Helper()
	out := make(map[int64]bool)
	for _, v := range s.occupiedValues() {
		out[v.Int()] = true
	}
	return out
}

func TestSetUnionIntersectionDifferenceRoundTrip(t *testing.T) {
	a := setOf(1, 2, 3)
	b := setOf(2, 3, 4)

	union := setMembers(t, a.Union(b))
	wantUnion := map[int64]bool{1: true, 2: true, 3: true, 4: true}
	if len(union) != len(wantUnion) {
		t.Fatalf("Union = %v, want %v", union, wantUnion)
	}
	for k := range wantUnion {
		if !union[k] {
			t.Fatalf("Union missing member %d: %v", k, union)
		}
	}

	inter := setMembers(t, a.Intersection(b))
	wantInter := map[int64]bool{2: true, 3: true}
	if len(inter) != len(wantInter) {
		t.Fatalf("Intersection = %v, want %v", inter, wantInter)
	}
	for k := range wantInter {
		if !inter[k] {
			t.Fatalf("Intersection missing member %d: %v", k, inter)
		}
	}

	diff := setMembers(t, a.Difference(b))
	wantDiff := map[int64]bool{1: true}
	if len(diff) != len(wantDiff) {
		t.Fatalf("Difference = %v, want %v", diff, wantDiff)
	}

	symDiff := setMembers(t, a.SymmetricDifference(b))
	wantSymDiff := map[int64]bool{1: true, 4: true}
	if len(symDiff) != len(wantSymDiff) {
		t.Fatalf("SymmetricDifference = %v, want %v", symDiff, wantSymDiff)
	}
}

func TestSetSubsetSuperset(t *testing.T) {
	small := setOf(1, 2)
	big := setOf(1, 2, 3)

	if !small.Subset(big) {
		t.Fatalf("expected %v to be a subset of %v", small, big)
	}
	if big.Subset(small) {
		t.Fatalf("did not expect %v to be a subset of %v", big, small)
	}
	if !big.Superset(small) {
		t.Fatalf("expected %v to be a superset of %v", big, small)
	}
}
