package basis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEmptyStamp(t *testing.T) {
	if !Empty.IsEmpty() {
		t.Fatal("Empty.IsEmpty() = false, want true")
	}
	x := ReactiveRef{Service: "s", Name: "x"}
	if got := Empty.Latest(x); got != 0 {
		t.Fatalf("Empty.Latest() = %d, want 0", got)
	}
}

func TestAddTakesMax(t *testing.T) {
	x := ReactiveRef{Service: "s", Name: "x"}
	b := Empty.Add(x, 3)
	b = b.Add(x, 1) // lower iteration must not regress
	if got := b.Latest(x); got != 3 {
		t.Fatalf("Latest() = %d, want 3", got)
	}
	b = b.Add(x, 5)
	if got := b.Latest(x); got != 5 {
		t.Fatalf("Latest() = %d, want 5", got)
	}
}

func TestAddIsImmutable(t *testing.T) {
	x := ReactiveRef{Service: "s", Name: "x"}
	b1 := Empty.Add(x, 1)
	b2 := b1.Add(x, 2)
	if got := b1.Latest(x); got != 1 {
		t.Fatalf("original Stamp mutated: Latest() = %d, want 1", got)
	}
	if got := b2.Latest(x); got != 2 {
		t.Fatalf("Latest() = %d, want 2", got)
	}
}

func TestMergeFrom(t *testing.T) {
	x := ReactiveRef{Service: "s", Name: "x"}
	y := ReactiveRef{Service: "s", Name: "y"}
	a := Empty.Add(x, 2).Add(y, 1)
	b := Empty.Add(x, 1).Add(y, 4)
	merged := a.MergeFrom(b)

	want := map[ReactiveRef]Iteration{x: 2, y: 4}
	if diff := cmp.Diff(want, merged.Entries()); diff != "" {
		t.Errorf("MergeFrom() mismatch (-want +got):\n%s", diff)
	}
}

func TestPrecEqRestrictedTo(t *testing.T) {
	x := ReactiveRef{Service: "s", Name: "x"}
	y := ReactiveRef{Service: "s", Name: "y"}
	older := Empty.Add(x, 1).Add(y, 1)
	newer := Empty.Add(x, 2).Add(y, 1)

	roots := map[ReactiveRef]struct{}{x: {}, y: {}}
	if !older.PrecEqRestrictedTo(newer, roots) {
		t.Error("older should be no newer than newer")
	}
	if newer.PrecEqRestrictedTo(older, roots) {
		t.Error("newer should not be no newer than older")
	}

	// Restricting to a root set that excludes the differing root makes
	// both bases equivalent.
	onlyY := map[ReactiveRef]struct{}{y: {}}
	if !newer.PrecEqRestrictedTo(older, onlyY) {
		t.Error("restricted to {y}, newer should be no newer than older")
	}
}

func TestReactiveRefString(t *testing.T) {
	r := ReactiveRef{Service: "main", Name: "z"}
	if got, want := r.String(), "main/z"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
