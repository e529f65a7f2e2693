// Package selector implements the partial-order-reduction algorithms from
// [godefroid1996]: conflicting-transitions, Overman's algorithm and
// stubborn sets, plus a goal-biased seed wrapper. Conflicting-transitions
// falls back to the full enabled set when its closure reaches a disabled
// transition; Overman's algorithm and stubborn sets have no such fallback.
package selector

import (
	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/mdplog"
	"github.com/rfielding/mdptools/pkg/search"
)

// takeOne picks a deterministic representative transition to seed an
// algorithm from, matching the reference implementation's
// `enabled_take_one` (first element of `enabled(s)` in system order).
func takeOne(enabled []*mdp.Transition) *mdp.Transition {
	if len(enabled) == 0 {
		return nil
	}
	return enabled[0]
}

func containsTransition(set []*mdp.Transition, t *mdp.Transition) bool {
	for _, x := range set {
		if x == t {
			return true
		}
	}
	return false
}

func containsProcess(set []*mdp.Process, p *mdp.Process) bool {
	for _, x := range set {
		if x == p {
			return true
		}
	}
	return false
}

func processSet(t *mdp.Transition) []*mdp.Process {
	out := make([]*mdp.Process, 0, len(t.Active))
	for p := range t.Active {
		out = append(out, p)
	}
	return out
}

// fallback logs and returns the full enabled set — the soundness escape
// hatch ConflictingTransitions uses (spec.md §9: "semantically
// load-bearing; must not be optimized away").
func fallback(algorithm string, t *mdp.Transition, sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition {
	mdplog.SelectorFallback(algorithm, t.String())
	return enabled
}

var (
	_ search.Selector = ConflictingTransitions
	_ search.Selector = Overman
	_ search.Selector = StubbornSets
)
