package value_test

import (
	"testing"

	"poise/internal/objects"
	"poise/internal/value"
)

// TestCloneReleaseBalancesRefCount exercises the "every Clone must be
// balanced by a Release" contract value.go documents, using a List as a
// stand-in for any Header-embedding heap object.
func TestCloneReleaseBalancesRefCount(t *testing.T) {
	l := objects.NewList(nil)
	v := value.FromObject(l)
	if got := l.RefCount(); got != 1 {
		t.Fatalf("FromObject: expected refcount 1, got %d", got)
	}

	c1 := v.Clone()
	c2 := c1.Clone()
	if got := l.RefCount(); got != 3 {
		t.Fatalf("after two clones: expected refcount 3, got %d", got)
	}

	c2.Release()
	if got := l.RefCount(); got != 2 {
		t.Fatalf("after one release: expected refcount 2, got %d", got)
	}
	c1.Release()
	v.Release()
	if got := l.RefCount(); got != 0 {
		t.Fatalf("after releasing every clone: expected refcount 0, got %d", got)
	}
}

func TestFromObjectNilYieldsNone(t *testing.T) {
	v := value.FromObject(nil)
	if !v.IsNone() {
		t.Fatalf("expected FromObject(nil) to be none, got tag %v", v.Tag())
	}
}

func TestToBoolTruthiness(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want bool
	}{
		{"none", value.None(), false},
		{"false", value.Bool(false), false},
		{"true", value.Bool(true), true},
		{"zero int", value.Int(0), false},
		{"nonzero int", value.Int(1), true},
		{"zero float", value.Float(0), false},
		{"empty string", value.String(""), false},
		{"nonempty string", value.String("x"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.ToBool(); got != tc.want {
				t.Fatalf("ToBool() = %v, want %v", got, tc.want)
			}
		})
	}
}
