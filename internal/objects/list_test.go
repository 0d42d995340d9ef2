package objects

import (
	"testing"

	"poise/internal/value"
)

func TestListSelfReferenceStringifiesAsEllipsis(t *testing.T) {
	l := NewList([]value.Value{value.Int(1), value.Int(2)})
	l.Append(value.FromObject(l))

	got := l.String()
	want := "[1, 2, ...]"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestListConcatAndRepeat(t *testing.T) {
	a := NewList([]value.Value{value.Int(1), value.Int(2)})
	b := NewList([]value.Value{value.Int(3)})

	combined := a.Concat(b)
	if got := combined.String(); got != "[1, 2, 3]" {
		t.Fatalf("Concat String() = %q, want %q", got, "[1, 2, 3]")
	}

	repeated := a.Repeat(3)
	if got := repeated.String(); got != "[1, 2, 1, 2, 1, 2]" {
		t.Fatalf("Repeat String() = %q, want %q", got, "[1, 2, 1, 2, 1, 2]")
	}

	if got := a.Repeat(0).Len(); got != 0 {
		t.Fatalf("Repeat(0) length = %d, want 0", got)
	}
}

func TestListAppendInvalidatesIterators(t *testing.T) {
	l := NewList([]value.Value{value.Int(1)})
	it := NewIterator(l)
	if !it.Valid() {
		t.Fatalf("freshly constructed iterator should be valid")
	}
	l.Append(value.Int(2))
	if it.Valid() {
		t.Fatalf("iterator should be invalidated by Append")
	}
}

func TestListSetAtReleasesDisplacedValue(t *testing.T) {
	inner := NewList(nil)
	l := NewList([]value.Value{value.FromObject(inner)})
	if got := inner.RefCount(); got != 1 {
		t.Fatalf("expected refcount 1 before overwrite, got %d", got)
	}
	if exc := l.SetAt(0, value.Int(7)); exc != nil {
		t.Fatalf("unexpected exception: %v", exc)
	}
	if got := inner.RefCount(); got != 0 {
		t.Fatalf("expected SetAt to release the displaced value, refcount = %d", got)
	}
}
