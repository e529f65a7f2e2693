// Package render emits an explored system as Graphviz dot text. Grounded
// on `render.py`'s draft renderer (`Digraph`, one node per state, one edge
// per `(action, probability)` branch, `dot.edge(s, s_prime, a if p==1 else
// f"{a} [{p}]")`), reimplemented without the Python `graphviz` binding
// (no pack example carries a Graphviz Go client, and dot is a small
// enough text format that hand-formatting it is how the teacher itself
// builds output text elsewhere, e.g. pkg/server's plain-text HTTP
// responses) — `[stdlib-justified]`.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/search"
)

// Dot holds a rendered graph's dot-language body, ready to be written out
// or embedded in a larger `digraph { ... }` document.
type Dot struct {
	Name string
	body strings.Builder
}

// Graph renders g as a Dot: one node per discovered state, one edge per
// action branch (labeled with its action, plus its probability unless it
// is 1), plus a
// phantom "initial state" arrow into g.Init, matching the reference
// renderer's un-weighted edge label convention.
func Graph(sys *mdp.System, g *search.Graph) *Dot {
	d := &Dot{Name: identifier(sys.Name)}
	initKey := nodeID(g.Init.Key())
	fmt.Fprintf(&d.body, "\t%s [shape=point];\n", "__init__")
	fmt.Fprintf(&d.body, "\t__init__ -> %s;\n", initKey)

	for _, key := range g.SortedKeys() {
		s := g.States[key]
		fmt.Fprintf(&d.body, "\t%s [label=%q];\n", nodeID(key), s.String())
	}
	for _, key := range g.SortedKeys() {
		actions := g.Edges[key]
		names := make([]string, 0, len(actions))
		for a := range actions {
			names = append(names, a)
		}
		sort.Strings(names)
		for _, action := range names {
			for _, br := range actions[action] {
				label := action
				if br.Prob != 1.0 {
					label = fmt.Sprintf("%s [%g]", action, br.Prob)
				}
				fmt.Fprintf(&d.body, "\t%s -> %s [label=%q];\n", nodeID(key), nodeID(br.State.Key()), label)
			}
		}
	}
	return d
}

// Node is one explored state, shaped for JSON serving by pkg/server's
// /api/visualize endpoint.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Edge is one action branch between two states, mirroring the dot
// renderer's own label convention (probability suffixed only when not 1).
type Edge struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Label string  `json:"label"`
	Prob  float64 `json:"prob"`
}

// NodesAndEdges extracts the same graph Graph renders as dot text, as
// plain structs a JSON encoder can serialize directly — the HTTP driver's
// browser client renders these with its own layout library instead of
// shelling out to `dot`.
func NodesAndEdges(sys *mdp.System, g *search.Graph) ([]Node, []Edge) {
	keys := g.SortedKeys()
	nodes := make([]Node, 0, len(keys))
	for _, key := range keys {
		s := g.States[key]
		nodes = append(nodes, Node{ID: key, Label: s.String()})
	}

	var edges []Edge
	for _, key := range keys {
		actions := g.Edges[key]
		names := make([]string, 0, len(actions))
		for a := range actions {
			names = append(names, a)
		}
		sort.Strings(names)
		for _, action := range names {
			for _, br := range actions[action] {
				edges = append(edges, Edge{
					From:  key,
					To:    br.State.Key(),
					Label: action,
					Prob:  br.Prob,
				})
			}
		}
	}
	return nodes, edges
}

// WriteTo writes the full `digraph Name { ... }` document to w.
func (d *Dot) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", d.Name)
	b.WriteString(d.body.String())
	b.WriteString("}\n")
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// String returns the full dot document as a string.
func (d *Dot) String() string {
	var b strings.Builder
	_, _ = d.WriteTo(&b)
	return b.String()
}

// nodeID maps a canonical state key (which contains dot-unsafe characters
// like `{`, `|`, `,`, `=`) to a quoted dot node identifier.
func nodeID(key string) string {
	return fmt.Sprintf("%q", key)
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
