package mdp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStateKeyCanonical(t *testing.T) {
	a := NewState([]string{"b", "a"}, map[string]int{"y": 2, "x": 1})
	b := NewState([]string{"a", "b"}, map[string]int{"x": 1, "y": 2})
	if a.Key() != b.Key() {
		t.Errorf("Key() should be order-independent: %q vs %q", a.Key(), b.Key())
	}
	if !a.Equal(b) {
		t.Error("Equal should hold for states differing only in construction order")
	}
}

func TestStateHasAllAndGet(t *testing.T) {
	s := NewState([]string{"p1", "p2"}, map[string]int{"x": 3})
	pre := NewState([]string{"p1"}, nil)
	if !s.HasAll(pre) {
		t.Error("HasAll should hold for a subset of locations")
	}
	if s.Get("missing") != 0 {
		t.Error("unset variable should default to zero")
	}
	if s.Get("x") != 3 {
		t.Error("Get should read the stored value")
	}
}

func TestStateIsGoal(t *testing.T) {
	s := NewState([]string{"p1", "p2"}, map[string]int{"x": 3, "y": 9})
	goal := NewState([]string{"p1"}, map[string]int{"x": 3})
	if !s.IsGoal(goal) {
		t.Error("state matching a partial goal should satisfy IsGoal")
	}
	badGoal := NewState([]string{"p1"}, map[string]int{"x": 4})
	if s.IsGoal(badGoal) {
		t.Error("mismatched variable constraint should fail IsGoal")
	}
	missingLoc := NewState([]string{"p3"}, nil)
	if s.IsGoal(missingLoc) {
		t.Error("missing location should fail IsGoal")
	}
}

func TestStateAddSubtract(t *testing.T) {
	a := NewState([]string{"p1"}, map[string]int{"x": 1})
	b := NewState([]string{"q1"}, map[string]int{"y": 2})
	sum := Add(a, b)
	if !sum.Has("p1") || !sum.Has("q1") {
		t.Error("Add should union locations")
	}
	if sum.Get("x") != 1 || sum.Get("y") != 2 {
		t.Error("Add should merge stores")
	}

	diff := Subtract(sum, a)
	if diff.Has("p1") {
		t.Error("Subtract should remove the subtracted locations")
	}
	if !diff.Has("q1") {
		t.Error("Subtract should keep untouched locations")
	}
	if diff.Get("x") != 1 {
		t.Error("Subtract must not touch the store")
	}
}

func TestStateAddRightBiased(t *testing.T) {
	a := NewState(nil, map[string]int{"x": 1})
	b := NewState(nil, map[string]int{"x": 2})
	if Add(a, b).Get("x") != 2 {
		t.Error("Add should be right-biased on store collisions")
	}
}

func TestStateRename(t *testing.T) {
	s := NewState([]string{"p1", "p2"}, map[string]int{"x": 1})
	renamed := s.Rename(map[string]string{"p1": "q1"})
	if !renamed.Has("q1") || renamed.Has("p1") {
		t.Error("Rename should substitute mapped labels")
	}
	if !renamed.Has("p2") {
		t.Error("Rename should leave unmapped labels untouched")
	}
	if renamed.Get("x") != 1 {
		t.Error("Rename must not touch the store")
	}
}

// TestStateRenameRoundTrip is the spec.md §8 "Renaming round-trip" universal
// property: applying a renaming and then its inverse must reproduce the
// original state exactly, checked structurally with cmp.Diff rather than
// field-by-field.
func TestStateRenameRoundTrip(t *testing.T) {
	s := NewState([]string{"p1", "p2"}, map[string]int{"x": 1, "y": 2})
	forward := map[string]string{"p1": "q1", "p2": "q2"}
	backward := map[string]string{"q1": "p1", "q2": "p2"}

	roundTripped := s.Rename(forward).Rename(backward)
	if diff := cmp.Diff(s, roundTripped); diff != "" {
		t.Errorf("Rename(f) then Rename(f⁻¹) should reproduce the original state (-orig +round-tripped):\n%s", diff)
	}
}
