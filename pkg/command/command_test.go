package command

import "testing"

func TestParseGuardEval(t *testing.T) {
	cases := []struct {
		name string
		text string
		ctx  map[string]int
		want bool
	}{
		{"empty is true", "", nil, true},
		{"simple eq", "x=1", map[string]int{"x": 1}, true},
		{"simple eq false", "x=1", map[string]int{"x": 2}, false},
		{"unset reads zero", "x=0", nil, true},
		{"conjunction", "x<=5 & y!=0", map[string]int{"x": 5, "y": 1}, true},
		{"conjunction fails", "x<=5 & y!=0", map[string]int{"x": 5, "y": 0}, false},
		{"disjunction", "x=1 | x=2", map[string]int{"x": 2}, true},
		{"parens flattened", "(x=1) & (y=2)", map[string]int{"x": 1, "y": 2}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g, err := ParseGuard(c.text)
			if err != nil {
				t.Fatalf("ParseGuard(%q): %v", c.text, err)
			}
			if got := g.Eval(c.ctx); got != c.want {
				t.Errorf("Eval(%v) = %v, want %v", c.ctx, got, c.want)
			}
		})
	}
}

func TestParseGuardSyntaxError(t *testing.T) {
	if _, err := ParseGuard("not a guard at all :="); err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestParseUpdateApply(t *testing.T) {
	u, err := ParseUpdate("x:=0, y:=x+1")
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	out := u.Apply(map[string]int{"x": 5, "z": 9})
	if out["x"] != 0 {
		t.Errorf("x = %d, want 0", out["x"])
	}
	// y:=x+1 reads the OLD x (5), per "updates applied simultaneously".
	if out["y"] != 6 {
		t.Errorf("y = %d, want 6", out["y"])
	}
	if out["z"] != 9 {
		t.Errorf("z = %d, want 9 (preserved)", out["z"])
	}
}

func TestParseUpdateEmpty(t *testing.T) {
	u, err := ParseUpdate("")
	if err != nil {
		t.Fatalf("ParseUpdate: %v", err)
	}
	in := map[string]int{"a": 1}
	out := u.Apply(in)
	if out["a"] != 1 {
		t.Errorf("empty update should preserve store, got %v", out)
	}
}

func TestUpdateMergeConflict(t *testing.T) {
	a := MustParseUpdate("x:=1")
	b := MustParseUpdate("x:=2")
	if _, err := a.Merge(b); err == nil {
		t.Fatal("expected conflicting update error")
	}
	c := MustParseUpdate("x:=1")
	merged, err := a.Merge(c)
	if err != nil {
		t.Fatalf("identical assignment should merge: %v", err)
	}
	if len(merged.Uses()) != 1 {
		t.Errorf("expected deduped single assignment, got %d", len(merged.Uses()))
	}
}

func TestDependent(t *testing.T) {
	readX, _ := parseAtom("x=1")
	writeX, _ := parseAssignment("x:=2")
	writeY, _ := parseAssignment("y:=2")

	if !Dependent(readX, writeX) {
		t.Error("read x and write x should be dependent")
	}
	if Dependent(readX, writeY) {
		t.Error("read x and write y should not be dependent")
	}
	if !writeX.CanBeDependent(writeX) {
		t.Error("write x and write x should be dependent (both write)")
	}
}

func TestIsGuardIsUpdate(t *testing.T) {
	if !IsGuard("x<=5") {
		t.Error("x<=5 should be a guard")
	}
	if IsGuard("x:=5") {
		t.Error("x:=5 should not be a guard")
	}
	if !IsUpdate("x:=y+1") {
		t.Error("x:=y+1 should be an update")
	}
	if IsUpdate("x<=5") {
		t.Error("x<=5 should not be an update")
	}
	if IsGuard("s0") || IsUpdate("s0") {
		t.Error("a bare label should be neither guard nor update")
	}
}
