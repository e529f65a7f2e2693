// Package search is the exploration engine: a classic or selector-reduced
// traversal of a composed system's reachable state space, producing a
// deterministic graph keyed by canonical state.
package search

import (
	"sort"

	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/mdplog"
)

// Order is the frontier discipline: LIFO (depth-first, matches the
// reference implementation's default `LifoQueue`) or FIFO (breadth-first,
// `bfs`'s `SimpleQueue`).
type Order int

const (
	LIFO Order = iota
	FIFO
)

// Selector narrows the enabled transitions at a state when more than one
// is enabled; it is consulted only in that case (`search.py`: "Apply
// set_method if available and more than one transition is enabled in s").
// A nil Selector performs classic (non-reduced) search.
type Selector func(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition

// Graph is the discovered transition relation: for each visited state, the
// outgoing transitions grouped by action label, each with the successor
// distribution that produced it. spec.md §4.5 documents explore's result as
// the 3-tuple (S, action -> []distribution, depth); Depth is that third
// element, keyed by the same canonical state key as States/Edges.
type Graph struct {
	Init   mdp.State
	States map[string]mdp.State
	Edges  map[string]map[string][]Branch
	Depth  map[string]int
}

// Branch is one outcome of firing a transition from a given state: the
// successor state and the probability of reaching it.
type Branch struct {
	Transition *mdp.Transition
	State      mdp.State
	Prob       float64
}

// NewGraph returns an empty Graph rooted at init.
func NewGraph(init mdp.State) *Graph {
	return &Graph{
		Init:   init,
		States: map[string]mdp.State{init.Key(): init},
		Edges:  map[string]map[string][]Branch{},
		Depth:  map[string]int{init.Key(): 0},
	}
}

// Enabled returns every transition of sys enabled at s, in declaration
// order — the reference implementation's `MarkovDecisionProcess2.enabled`.
func Enabled(sys *mdp.System, s mdp.State) []*mdp.Transition {
	var out []*mdp.Transition
	for _, t := range sys.Transitions {
		if t.IsEnabled(s) {
			out = append(out, t)
		}
	}
	return out
}

type queueItem struct {
	state mdp.State
	depth int
}

// Explore performs a search of sys's reachable state space starting at
// sys.Init (or from, if non-nil), consulting sel whenever more than one
// transition is enabled. A nil sel performs classic unreduced search.
func Explore(sys *mdp.System, from *mdp.State, order Order, sel Selector) *Graph {
	init := sys.Init
	if from != nil {
		init = *from
	}
	g := NewGraph(init)

	orderName := "LIFO"
	if order == FIFO {
		orderName = "FIFO"
	}
	selectorName := "classic"
	if sel != nil {
		selectorName = "reduced"
	}
	mdplog.SearchStarted(selectorName, orderName)

	queue := []queueItem{{init, 0}}
	visited := map[string]struct{}{}

	pop := func() queueItem {
		var item queueItem
		if order == LIFO {
			item = queue[len(queue)-1]
			queue = queue[:len(queue)-1]
		} else {
			item = queue[0]
			queue = queue[1:]
		}
		return item
	}

	for len(queue) > 0 {
		item := pop()
		key := item.state.Key()
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}
		g.States[key] = item.state
		g.Depth[key] = item.depth

		enabled := Enabled(sys, item.state)
		selected := enabled
		if sel != nil && len(enabled) > 1 {
			selected = sel(sys, item.state, enabled)
		}
		mdplog.Visit(item.state.String(), item.depth, len(selected), len(enabled))

		byAction := map[string][]Branch{}
		var newStates []string
		for _, t := range selected {
			succStates := t.SuccessorStates(item.state)
			succProbs := t.Successors(item.state)
			var branches []Branch
			keys := make([]string, 0, len(succStates))
			for k := range succStates {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				s2 := succStates[k]
				prob := succProbs[k]
				branches = append(branches, Branch{Transition: t, State: s2, Prob: prob})
				if _, seen := visited[k]; !seen {
					queue = append(queue, queueItem{s2, item.depth + 1})
					newStates = append(newStates, k)
				}
			}
			byAction[t.Action] = append(byAction[t.Action], branches...)
		}
		g.Edges[key] = byAction
		if len(newStates) > 0 {
			mdplog.Enqueue(newStates)
		}
	}
	return g
}

// ReachableCount returns the number of distinct states g discovered.
func (g *Graph) ReachableCount() int {
	return len(g.States)
}

// SortedKeys returns g's state keys in sorted order, for deterministic
// iteration in callers (emitters, renderers, tests).
func (g *Graph) SortedKeys() []string {
	out := make([]string, 0, len(g.States))
	for k := range g.States {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
