package mdp

import "sort"

// compositionSeparator joins constituent process names into a composed
// System's display name; overridable via SetCompositionSeparator the same
// way the reference implementation's `parallel.py` lets callers pick the
// infix used by `System.__repr__`.
var compositionSeparator = "||"

// SetCompositionSeparator overrides the infix Compose uses to build a
// composed System's Name.
func SetCompositionSeparator(sep string) {
	compositionSeparator = sep
}

// System is the parallel composition of one or more Processes: a single
// flat set of Transitions operating over the union of their location
// namespaces, plus the element-wise sum of their initial states.
type System struct {
	Name        string
	Processes   []*Process
	Transitions []*Transition
	Init        State
}

// Equal reports whether two systems have the same name, the same initial
// state, and the same transitions (by String() rendering) in the same
// order.
func (s *System) Equal(other *System) bool {
	if s.Name != other.Name || len(s.Transitions) != len(other.Transitions) {
		return false
	}
	if !s.Init.Equal(other.Init) {
		return false
	}
	for i, t := range s.Transitions {
		if t.String() != other.Transitions[i].String() {
			return false
		}
	}
	return true
}

// Compose builds the parallel composition of the given processes following
// spec.md §4.4 / the reference implementation's `parallel.py` `compose`:
//
//  1. an action label is internal if it is tau* or used by exactly one
//     process, and is copied into the composed system unchanged;
//  2. a non-tau label used by two or more processes is synchronizable: it
//     is removed from those processes individually and replaced by their
//     synchronization products;
//  3. among a synchronizable label's participants, any transition suffixed
//     "!" is a driver: the composed transitions are the cross product of
//     each driver with one transition from every *other* participating
//     process. With no driver, every participating process must supply one
//     transition to the product (full Cartesian product across
//     participants).
//
// The resulting Transitions are ordered deterministically: internal
// transitions first (processes in input order, then declaration order),
// then synchronized products (actions in first-seen order, drivers and
// their partners enumerated in ascending process-index order).
func Compose(processes ...*Process) (*System, error) {
	if len(processes) == 0 {
		return nil, ErrNoProcesses
	}
	if len(processes) == 1 {
		p := processes[0]
		return &System{Name: p.Name, Processes: processes, Transitions: append([]*Transition{}, p.Transitions...), Init: p.Init}, nil
	}

	// processLabels[i] is the set of stripped action labels process i uses.
	processLabels := make([]map[string]struct{}, len(processes))
	for i, p := range processes {
		set := map[string]struct{}{}
		for _, t := range p.Transitions {
			if IsTau(t.Action) {
				continue
			}
			set[StrippedAction(t.Action)] = struct{}{}
		}
		processLabels[i] = set
	}

	histogram := map[string]int{}
	for _, set := range processLabels {
		for label := range set {
			histogram[label]++
		}
	}

	var internal []*Transition
	// bucket[label][pid] = that process's transitions for label, in
	// declaration order. actionOrder preserves first-seen order.
	bucket := map[string]map[int][]*Transition{}
	var actionOrder []string

	for pid, p := range processes {
		for _, t := range p.Transitions {
			label := StrippedAction(t.Action)
			if IsTau(t.Action) || histogram[label] < 2 {
				internal = append(internal, t)
				continue
			}
			byPid, ok := bucket[label]
			if !ok {
				byPid = map[int][]*Transition{}
				bucket[label] = byPid
				actionOrder = append(actionOrder, label)
			}
			byPid[pid] = append(byPid[pid], t)
		}
	}

	var synchronized []*Transition
	for _, label := range actionOrder {
		byPid := bucket[label]
		participants := make([]int, 0, len(byPid))
		for pid := range byPid {
			participants = append(participants, pid)
		}
		sort.Ints(participants)

		var drivers []struct {
			pid int
			tr  *Transition
		}
		for _, pid := range participants {
			for _, t := range byPid[pid] {
				if IsSend(t.Action) {
					drivers = append(drivers, struct {
						pid int
						tr  *Transition
					}{pid, t})
				}
			}
		}

		if len(drivers) > 0 {
			for _, d := range drivers {
				others := make([]int, 0, len(participants)-1)
				for _, pid := range participants {
					if pid != d.pid {
						others = append(others, pid)
					}
				}
				combos, err := cartesianProduct(byPid, others)
				if err != nil {
					return nil, err
				}
				for _, combo := range combos {
					combo = append([]indexedTransition{{d.pid, d.tr}}, combo...)
					sort.Slice(combo, func(i, j int) bool { return combo[i].pid < combo[j].pid })
					merged, err := foldProduct(combo)
					if err != nil {
						return nil, err
					}
					synchronized = append(synchronized, merged)
				}
			}
			continue
		}

		combos, err := cartesianProduct(byPid, participants)
		if err != nil {
			return nil, err
		}
		for _, combo := range combos {
			sort.Slice(combo, func(i, j int) bool { return combo[i].pid < combo[j].pid })
			merged, err := foldProduct(combo)
			if err != nil {
				return nil, err
			}
			synchronized = append(synchronized, merged)
		}
	}

	transitions := make([]*Transition, 0, len(internal)+len(synchronized))
	transitions = append(transitions, internal...)
	transitions = append(transitions, synchronized...)

	init := processes[0].Init
	names := make([]string, len(processes))
	for i, p := range processes {
		if i > 0 {
			init = Add(init, p.Init)
		}
		names[i] = p.Name
	}

	return &System{
		Name:        joinNames(names),
		Processes:   processes,
		Transitions: transitions,
		Init:        init,
	}, nil
}

type indexedTransition struct {
	pid int
	tr  *Transition
}

// cartesianProduct enumerates, for the given pids in order, every
// combination of one transition from each pid's list in byPid, in
// lexicographic order of the per-pid list indices.
func cartesianProduct(byPid map[int][]*Transition, pids []int) ([][]indexedTransition, error) {
	if len(pids) == 0 {
		return [][]indexedTransition{{}}, nil
	}
	var out [][]indexedTransition
	var rec func(i int, acc []indexedTransition)
	rec = func(i int, acc []indexedTransition) {
		if i == len(pids) {
			combo := make([]indexedTransition, len(acc))
			copy(combo, acc)
			out = append(out, combo)
			return
		}
		pid := pids[i]
		for _, t := range byPid[pid] {
			rec(i+1, append(acc, indexedTransition{pid, t}))
		}
	}
	rec(0, nil)
	return out, nil
}

func foldProduct(combo []indexedTransition) (*Transition, error) {
	result := combo[0].tr
	for i := 1; i < len(combo); i++ {
		var err error
		result, err = Product(result, combo[i].tr)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func joinNames(names []string) string {
	out := names[0]
	for i := 1; i < len(names); i++ {
		out = out + compositionSeparator + names[i]
	}
	return out
}
