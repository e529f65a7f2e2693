// Package mdp is the data model and composition engine: immutable States
// and Transitions (C2), single-component Processes (C3), and parallel
// composition into a System (C4). State, Transition and Process live
// together because a Transition's Active set holds Process identities and
// a Process holds its own Transitions — the reference implementation keeps
// the same three types in one `model` package for the same reason.
package mdp

import (
	"sort"
	"strconv"
	"strings"
)

// State is a global state: an unordered set of location labels (one per
// participating process) plus an integer variable store. States are
// immutable; every operation below returns a new value.
type State struct {
	Locs map[string]struct{}
	Ctx  map[string]int
}

// NewState builds a State from a slice of location labels and a variable
// store. The store is copied so the caller's map can be reused or mutated.
func NewState(locs []string, ctx map[string]int) State {
	ls := make(map[string]struct{}, len(locs))
	for _, l := range locs {
		ls[l] = struct{}{}
	}
	cx := make(map[string]int, len(ctx))
	for k, v := range ctx {
		cx[k] = v
	}
	return State{Locs: ls, Ctx: cx}
}

// Key returns a canonical, comparable string encoding of the state, used
// everywhere a State must be a map key (Go maps cannot key on maps) and as
// the structural-equality/hash surrogate spec.md §9 asks for.
func (s State) Key() string {
	labels := s.sortedLocs()
	kvs := s.sortedCtx()
	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(strings.Join(labels, ","))
	b.WriteByte('|')
	for i, k := range kvs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(s.Ctx[k]))
	}
	b.WriteByte('}')
	return b.String()
}

func (s State) sortedLocs() []string {
	out := make([]string, 0, len(s.Locs))
	for l := range s.Locs {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (s State) sortedCtx() []string {
	out := make([]string, 0, len(s.Ctx))
	for k := range s.Ctx {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Equal is structural equality on both the location set and the store.
func (s State) Equal(other State) bool {
	return s.Key() == other.Key()
}

// Has reports whether the state includes the given location label.
func (s State) Has(label string) bool {
	_, ok := s.Locs[label]
	return ok
}

// HasAll reports whether the state includes every label in pre.
func (s State) HasAll(pre State) bool {
	for l := range pre.Locs {
		if !s.Has(l) {
			return false
		}
	}
	return true
}

// Get reads a variable, defaulting to 0 when unset.
func (s State) Get(v string) int {
	return s.Ctx[v]
}

// IsGoal reports whether s matches the partial specification goal: every
// location label goal requires is present in s, and every variable goal
// constrains has the same value in s. A goal is a partial state (spec.md
// §4.2's `is_goal`).
func (s State) IsGoal(goal State) bool {
	if !s.HasAll(goal) {
		return false
	}
	for k, v := range goal.Ctx {
		if s.Get(k) != v {
			return false
		}
	}
	return true
}

// Rename substitutes location labels according to m; the store is
// untouched.
func (s State) Rename(m map[string]string) State {
	out := make(map[string]struct{}, len(s.Locs))
	for l := range s.Locs {
		if nl, ok := m[l]; ok {
			out[nl] = struct{}{}
		} else {
			out[l] = struct{}{}
		}
	}
	return State{Locs: out, Ctx: s.Ctx}
}

// Add unions two states: the location sets are unioned, and the stores are
// merged right-biased (other's values win on key collision). Used to
// assemble a composed system's initial state.
func Add(a, b State) State {
	locs := make(map[string]struct{}, len(a.Locs)+len(b.Locs))
	for l := range a.Locs {
		locs[l] = struct{}{}
	}
	for l := range b.Locs {
		locs[l] = struct{}{}
	}
	ctx := make(map[string]int, len(a.Ctx)+len(b.Ctx))
	for k, v := range a.Ctx {
		ctx[k] = v
	}
	for k, v := range b.Ctx {
		ctx[k] = v
	}
	return State{Locs: locs, Ctx: ctx}
}

// Subtract removes b's location labels from a; a's store is untouched.
// Used to replace a transition's preset with its postset when computing
// successors.
func Subtract(a, b State) State {
	locs := make(map[string]struct{}, len(a.Locs))
	for l := range a.Locs {
		if _, in := b.Locs[l]; !in {
			locs[l] = struct{}{}
		}
	}
	return State{Locs: locs, Ctx: a.Ctx}
}

func (s State) String() string {
	labels := s.sortedLocs()
	kvs := s.sortedCtx()
	parts := make([]string, 0, len(labels)+len(kvs))
	parts = append(parts, labels...)
	for _, k := range kvs {
		parts = append(parts, k+"="+strconv.Itoa(s.Ctx[k]))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "{" + strings.Join(parts, ",") + "}"
}
