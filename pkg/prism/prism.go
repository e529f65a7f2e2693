// Package prism emits an explored system in a PRISM-compatible textual
// model-checker format (spec.md §6, bit-significant): one location
// variable per process plus the integer store, one guarded command per
// discovered action at each state. Grounded on `utils/prism.py`'s
// single-process `to_prism`, generalized here to the multi-process `p<i>`
// scheme and `var` declarations the format requires.
package prism

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/search"
)

// Emit renders sys's explored graph as a PRISM model, plus a companion
// properties file containing one `Pmax=? [F ...]` reachability formula per
// goal in goals.
func Emit(sys *mdp.System, g *search.Graph, goals []mdp.State) (model string, properties string, err error) {
	procIDs, procOrder := assignProcessIDs(sys, g)
	varBounds, varOrder := computeVarBounds(sys, g)

	var b strings.Builder
	b.WriteString("mdp\n\nmodule ")
	b.WriteString(identifier(sys.Name))
	b.WriteByte('\n')

	for _, i := range procOrder {
		p := sys.Processes[i]
		ids := procIDs[i]
		initLabel, _ := p.Project(g.Init)
		initID := ids.idOf[initLabel]
		fmt.Fprintf(&b, "\tp%d : [0..%d] init %d;\n", i, ids.maxID, initID)
		for _, label := range ids.sortedLabels {
			fmt.Fprintf(&b, "\t// %d : %s\n", ids.idOf[label], label)
		}
	}
	for _, v := range varOrder {
		bnd := varBounds[v]
		fmt.Fprintf(&b, "\t%s : [%d..%d] init %d;\n", v, bnd.min, bnd.max, g.Init.Get(v))
	}
	b.WriteByte('\n')

	for _, key := range g.SortedKeys() {
		s := g.States[key]
		actions := g.Edges[key]
		actionNames := make([]string, 0, len(actions))
		for a := range actions {
			actionNames = append(actionNames, a)
		}
		sort.Strings(actionNames)

		for _, action := range actionNames {
			branches := actions[action]
			if len(branches) == 0 {
				continue
			}
			pre := preConjunction(sys, procIDs, procOrder, s, branches[0].Transition)
			posts := make([]string, len(branches))
			for i, br := range branches {
				posts[i] = postClause(sys, procIDs, procOrder, varOrder, s, br)
			}
			fmt.Fprintf(&b, "\t[%s] %s -> %s;\n", action, pre, strings.Join(posts, " + "))
		}
	}
	b.WriteString("endmodule\n")

	props := emitProperties(sys, procIDs, procOrder, goals)
	return b.String(), props, nil
}

type idTable struct {
	idOf         map[string]int
	sortedLabels []string
	maxID        int
}

func assignProcessIDs(sys *mdp.System, g *search.Graph) (map[int]idTable, []int) {
	tables := make(map[int]idTable, len(sys.Processes))
	order := make([]int, len(sys.Processes))
	for i, p := range sys.Processes {
		order[i] = i
		labels := map[string]struct{}{}
		for l := range p.Labels {
			labels[l] = struct{}{}
		}
		for _, s := range g.States {
			if l, ok := p.Project(s); ok {
				labels[l] = struct{}{}
			}
		}
		sorted := make([]string, 0, len(labels))
		for l := range labels {
			sorted = append(sorted, l)
		}
		sort.Strings(sorted)
		idOf := make(map[string]int, len(sorted))
		for id, l := range sorted {
			idOf[l] = id
		}
		tables[i] = idTable{idOf: idOf, sortedLabels: sorted, maxID: len(sorted) - 1}
	}
	return tables, order
}

type bounds struct{ min, max int }

func computeVarBounds(sys *mdp.System, g *search.Graph) (map[string]bounds, []string) {
	vars := map[string]struct{}{}
	for k := range sys.Init.Ctx {
		vars[k] = struct{}{}
	}
	for _, s := range g.States {
		for k := range s.Ctx {
			vars[k] = struct{}{}
		}
	}
	order := make([]string, 0, len(vars))
	for v := range vars {
		order = append(order, v)
	}
	sort.Strings(order)

	b := make(map[string]bounds, len(order))
	for _, v := range order {
		first := true
		var bd bounds
		for _, s := range g.States {
			val := s.Get(v)
			if first {
				bd = bounds{val, val}
				first = false
				continue
			}
			if val < bd.min {
				bd.min = val
			}
			if val > bd.max {
				bd.max = val
			}
		}
		b[v] = bd
	}
	return b, order
}

func preConjunction(sys *mdp.System, procIDs map[int]idTable, procOrder []int, s mdp.State, t *mdp.Transition) string {
	var clauses []string
	for _, i := range procOrder {
		p := sys.Processes[i]
		label, ok := p.Project(s)
		if !ok {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("p%d=%d", i, procIDs[i].idOf[label]))
	}
	if t != nil {
		if g := t.Guard.String(); g != "" {
			clauses = append(clauses, g)
		}
	}
	return strings.Join(clauses, " & ")
}

func postClause(sys *mdp.System, procIDs map[int]idTable, procOrder []int, varOrder []string, s mdp.State, br search.Branch) string {
	var assigns []string
	for _, i := range procOrder {
		p := sys.Processes[i]
		oldLabel, _ := p.Project(s)
		newLabel, ok := p.Project(br.State)
		if ok && newLabel != oldLabel {
			assigns = append(assigns, fmt.Sprintf("(p%d'=%d)", i, procIDs[i].idOf[newLabel]))
		}
	}
	for _, v := range varOrder {
		if s.Get(v) != br.State.Get(v) {
			assigns = append(assigns, fmt.Sprintf("(%s'=%d)", v, br.State.Get(v)))
		}
	}
	update := "true"
	if len(assigns) > 0 {
		update = strings.Join(assigns, " & ")
	}
	if br.Prob == 1.0 {
		return update
	}
	return fmt.Sprintf("%s:%s", formatProb(br.Prob), update)
}

func formatProb(p float64) string {
	s := strconv.FormatFloat(p, 'g', -1, 64)
	if !strings.Contains(s, ".") && !strings.Contains(s, "e") {
		s += ".0"
	}
	return s
}

func emitProperties(sys *mdp.System, procIDs map[int]idTable, procOrder []int, goals []mdp.State) string {
	clauses := make([]string, 0, len(goals))
	for _, goal := range goals {
		var terms []string
		for _, i := range procOrder {
			p := sys.Processes[i]
			if label, ok := p.Project(goal); ok {
				terms = append(terms, fmt.Sprintf("p%d=%d", i, procIDs[i].idOf[label]))
			}
		}
		keys := make([]string, 0, len(goal.Ctx))
		for k := range goal.Ctx {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			terms = append(terms, fmt.Sprintf("%s=%d", k, goal.Ctx[k]))
		}
		clauses = append(clauses, "("+strings.Join(terms, " & ")+")")
	}
	return fmt.Sprintf("Pmax=? [F %s]\n", strings.Join(clauses, " | "))
}

func identifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "M"
	}
	return out
}
