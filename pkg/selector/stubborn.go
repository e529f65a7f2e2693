package selector

import (
	"github.com/rfielding/mdptools/pkg/command"
	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/mdplog"
)

// StubbornSets is Algorithm 3 from [godefroid1996]
// (`algorithm3_stubborn_sets.py`). It grows a working set Ts from one
// transition: a disabled member either pulls in transitions that can
// enable it (rule a.i, when some active process's local state differs
// from the transition's own preset) or transitions dependent on the false
// guard condition blocking it (rule a.ii); an enabled member pulls in
// every transition it conflicts or can-be-dependent-in-parallel with
// (rule b). The result is Ts filtered down to the transitions actually
// enabled in s.
func StubbornSets(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition {
	t := takeOne(enabled)
	if t == nil {
		return nil
	}
	Ts := []*mdp.Transition{t}

	addWhere := func(reason string, cond func(*mdp.Transition) bool) {
		for _, t2 := range sys.Transitions {
			if containsTransition(Ts, t2) {
				continue
			}
			if cond(t2) {
				mdplog.SelectorAppend("stubborn_sets", t2.String(), reason)
				Ts = append(Ts, t2)
			}
		}
	}

	for i := 0; i < len(Ts); i++ {
		t1 := Ts[i]
		if !t1.IsEnabled(s) {
			if label, ok := chooseBlockingProcess(s, t1); ok {
				addWhere("rule a.i", func(t2 *mdp.Transition) bool {
					for _, o := range t2.Post {
						if o.Locs.Has(label) {
							return true
						}
					}
					return false
				})
				continue
			}
			if cj, ok := chooseFalseDisjunct(s, t1); ok {
				addWhere("rule a.ii", func(t2 *mdp.Transition) bool {
					for _, op1 := range cj {
						for _, op2 := range t2.Used() {
							if command.Dependent(op1, op2) {
								return true
							}
						}
					}
					return false
				})
			}
		} else {
			addWhere("rule b", func(t2 *mdp.Transition) bool {
				return t1.InConflict(t2) || (t1.IsParallel(t2) && t1.CanBeDependent(t2))
			})
		}
	}

	var T []*mdp.Transition
	for _, t := range Ts {
		if t.IsEnabled(s) {
			T = append(T, t)
		}
	}
	return T
}

// chooseBlockingProcess picks a process active in t whose current local
// state isn't the one t's own preset expects of it — the process
// responsible for t being disabled — and returns that expected label.
func chooseBlockingProcess(s mdp.State, t *mdp.Transition) (string, bool) {
	for p := range t.Active {
		want, ok := p.Project(t.Pre)
		if !ok {
			continue
		}
		have, _ := p.Project(s)
		if have != want {
			return want, true
		}
	}
	return "", false
}

// chooseFalseDisjunct returns the first top-level guard conjunct (a
// disjunction of atoms) that evaluates to false in s.
func chooseFalseDisjunct(s mdp.State, t *mdp.Transition) ([]command.Op, bool) {
	for _, disj := range t.Guard.Disjuncts() {
		satisfied := false
		for _, atom := range disj {
			if evalAtom(atom, s.Ctx) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return disj, true
		}
	}
	return nil, false
}

func evalAtom(op command.Op, ctx map[string]int) bool {
	return op.Eval(ctx)
}
