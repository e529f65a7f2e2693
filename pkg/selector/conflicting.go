package selector

import (
	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/mdplog"
)

// ConflictingTransitions is Algorithm 1 from [godefroid1996]
// (`algorithm1_conflicting_transitions.py`): seed with one enabled
// transition, then close the set under "in conflict" and "parallel and
// can-be-dependent". If closure would ever need to add a transition that
// is disabled in s, soundness requires falling back to the full enabled
// set instead.
func ConflictingTransitions(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition {
	t := takeOne(enabled)
	if t == nil {
		return nil
	}
	T := []*mdp.Transition{t}

	for i := 0; i < len(T); i++ {
		t1 := T[i]
		for _, t2 := range sys.Transitions {
			if containsTransition(T, t2) {
				continue
			}
			if t1.InConflict(t2) || (t1.IsParallel(t2) && t1.CanBeDependent(t2)) {
				mdplog.SelectorAppend("conflicting_transitions", t2.String(), "conflict-or-parallel-dependent")
				if !t2.IsEnabled(s) {
					return fallback("conflicting_transitions", t2, sys, s, enabled)
				}
				T = append(T, t2)
			}
		}
	}
	return T
}
