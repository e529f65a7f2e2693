package selector

import "github.com/rfielding/mdptools/pkg/mdp"

// Overman is Algorithm 2 from [godefroid1996]
// (`algorithm2_overmans_algorithm.py`): grow a process set P starting from
// one transition's active processes, adding any process that is active in
// a transition reachable from a process already in P (directly, or via a
// parallel+can-be-dependent transition), then return every transition
// whose active set is contained in P and which is enabled in s.
//
// Present per spec.md §4.6.2 but not exercised by the default selector
// pipeline: its reduction on the mutex scenario is not empirically fixed,
// so tests assert soundness (equal Pmax) only, never an exact state count.
func Overman(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition {
	t := takeOne(enabled)
	if t == nil {
		return nil
	}
	P := processSet(t)

	for i := 0; i < len(P); i++ {
		pi := P[i]
		label, ok := pi.Project(s)
		if !ok {
			continue
		}
		for _, t1 := range sys.Transitions {
			if !t1.Pre.Has(label) {
				continue
			}
			for _, pj := range sys.Processes {
				if containsProcess(P, pj) {
					continue
				}
				if _, active := t1.Active[pj]; active || activeInDependentTransition(sys, pj, t1) {
					P = append(P, pj)
				}
			}
		}
	}

	var T []*mdp.Transition
	for _, t := range sys.Transitions {
		if transitionActiveSubsetOf(t, P) && t.IsEnabled(s) {
			T = append(T, t)
		}
	}
	return T
}

func activeInDependentTransition(sys *mdp.System, p *mdp.Process, t1 *mdp.Transition) bool {
	for _, t2 := range sys.Transitions {
		if t1 == t2 {
			continue
		}
		if !t1.IsParallel(t2) || !t1.CanBeDependent(t2) {
			continue
		}
		if _, active := t2.Active[p]; active {
			return true
		}
	}
	return false
}

func transitionActiveSubsetOf(t *mdp.Transition, P []*mdp.Process) bool {
	for p := range t.Active {
		if !containsProcess(P, p) {
			return false
		}
	}
	return true
}
