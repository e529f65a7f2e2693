package validate

import (
	"testing"

	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/search"
)

// TestCheckDeadlockViolatesR1 is the E6 seed case: a process whose only
// reachable location has no outgoing transition trips RuleEnabledNonEmpty.
func TestCheckDeadlockViolatesR1(t *testing.T) {
	sys, err := mdp.BuildSystem(mdp.ProcessDescription{
		Name: "P",
		Init: []string{"s0"},
		Trans: []mdp.TransitionDescription{
			{Pre: []string{"s0"}, Action: "a", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"s1"}}}},
		},
	})
	if err != nil {
		t.Fatalf("BuildSystem: %v", err)
	}
	g := search.Explore(sys, nil, search.LIFO, nil)

	ok, violations := Valid(sys, g)
	if ok {
		t.Fatal("expected a deadlock violation for the terminal state s1")
	}
	found := false
	for _, v := range violations {
		if v.Rule == RuleEnabledNonEmpty {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a RuleEnabledNonEmpty violation, got %v", violations)
	}
}

// TestCheckDistributionSumViolation is the E5 seed case: a transition whose
// postset sums to 1.5 is accepted by BuildSystem (R2 is a non-fatal
// validation-layer diagnostic, not a construction-time rejection — see
// mdp.TestScenarioDistributionSumViolation) and trips exactly RuleSumToOne
// once explored, with zero RuleEnabledNonEmpty violations: s1 carries a tau
// self-loop so it stays enabled, matching E5's literal claim of "zero R1
// errors".
func TestCheckDistributionSumViolation(t *testing.T) {
	sys, err := mdp.BuildSystem(mdp.ProcessDescription{
		Name: "P",
		Init: []string{"s0"},
		Trans: []mdp.TransitionDescription{
			{
				Pre:    []string{"s0"},
				Action: "a",
				Post: []mdp.BranchDescription{
					{Prob: 1.0, Tokens: []string{"s0"}},
					{Prob: 0.5, Tokens: []string{"s1"}},
				},
			},
			{
				Pre:    []string{"s1"},
				Action: "tau",
				Post:   []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"s1"}}},
			},
		},
	})
	if err != nil {
		t.Fatalf("BuildSystem: %v", err)
	}
	g := search.Explore(sys, nil, search.LIFO, nil)

	violations := Check(sys, g)
	var sumViolations int
	var deadlockViolation bool
	for _, v := range violations {
		switch v.Rule {
		case RuleSumToOne:
			sumViolations++
		case RuleEnabledNonEmpty:
			deadlockViolation = true
		}
	}
	if sumViolations != 1 {
		t.Errorf("expected exactly one RuleSumToOne violation for a 1.5 postset, got %v", violations)
	}
	if deadlockViolation {
		t.Errorf("expected zero RuleEnabledNonEmpty violations (s1 has a tau self-loop), got %v", violations)
	}
}

// TestCheckTwoCoinIsValid confirms a well-formed, fully-recurrent system
// (every terminal outcome loops back to the start) has zero violations. A
// coin with no reset transition would itself trip R1 at its post-flip
// states, as TestCheckDeadlockViolatesR1 above already demonstrates — R1
// requires every reachable state to have an enabled transition, so this
// system adds the reset leg a bare flip-once coin lacks.
func TestCheckTwoCoinIsValid(t *testing.T) {
	coin := func(name string) *mdp.Process {
		flip := &mdp.Transition{
			Action: "flip" + name,
			Pre:    mdp.NewState([]string{"s0_" + name}, nil),
			Post: []mdp.Outcome{
				{Locs: mdp.NewState([]string{"h_" + name}, nil), Prob: 0.5},
				{Locs: mdp.NewState([]string{"t_" + name}, nil), Prob: 0.5},
			},
		}
		resetH := &mdp.Transition{
			Action: "tau_reset" + name,
			Pre:    mdp.NewState([]string{"h_" + name}, nil),
			Post:   []mdp.Outcome{{Locs: mdp.NewState([]string{"s0_" + name}, nil), Prob: 1.0}},
		}
		resetT := &mdp.Transition{
			Action: "tau_reset" + name,
			Pre:    mdp.NewState([]string{"t_" + name}, nil),
			Post:   []mdp.Outcome{{Locs: mdp.NewState([]string{"s0_" + name}, nil), Prob: 1.0}},
		}
		return mdp.NewProcess("C"+name, mdp.NewState([]string{"s0_" + name}, nil), []*mdp.Transition{flip, resetH, resetT})
	}
	sys, err := mdp.Compose(coin("1"), coin("2"))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	g := search.Explore(sys, nil, search.LIFO, nil)

	ok, violations := Valid(sys, g)
	if !ok {
		t.Errorf("expected no violations in the fully-recurrent two-coin system, got %v", violations)
	}
}
