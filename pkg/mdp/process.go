package mdp

// Process is a single-component MDP: a set of transitions sharing a
// location-label namespace, plus a distinguished initial state fragment.
type Process struct {
	Name        string
	Labels      map[string]struct{}
	Transitions []*Transition
	Init        State
}

// NewProcess builds a Process from its transitions and initial state,
// tagging every transition's Active set with this process (spec.md §3:
// "single-element for original process transitions") and collecting the
// label set from the transitions' pre/post locations and the initial
// state.
func NewProcess(name string, init State, transitions []*Transition) *Process {
	p := &Process{Name: name, Init: init, Labels: map[string]struct{}{}}
	for l := range init.Locs {
		p.Labels[l] = struct{}{}
	}
	for _, t := range transitions {
		t.Active = map[*Process]struct{}{p: {}}
		for l := range t.Pre.Locs {
			p.Labels[l] = struct{}{}
		}
		for _, o := range t.Post {
			for l := range o.Locs.Locs {
				p.Labels[l] = struct{}{}
			}
		}
	}
	p.Transitions = transitions
	return p
}

// Project returns the single location label of s belonging to this
// process.
func (p *Process) Project(s State) (string, bool) {
	for l := range s.Locs {
		if _, ok := p.Labels[l]; ok {
			return l, true
		}
	}
	return "", false
}

// Rename applies the labels and actions renamings to every transition and
// the initial state, returning a new Process. A nil map is treated as the identity.
func (p *Process) Rename(labels, actions map[string]string) *Process {
	renamedLabels := map[string]struct{}{}
	for l := range p.Labels {
		if nl, ok := labels[l]; ok {
			renamedLabels[nl] = struct{}{}
		} else {
			renamedLabels[l] = struct{}{}
		}
	}
	out := &Process{
		Name:   p.Name,
		Labels: renamedLabels,
		Init:   p.Init.Rename(labels),
	}
	out.Transitions = make([]*Transition, len(p.Transitions))
	for i, t := range p.Transitions {
		rt := t.Rename(labels, actions)
		rt.Active = map[*Process]struct{}{out: {}}
		out.Transitions[i] = rt
	}
	return out
}
