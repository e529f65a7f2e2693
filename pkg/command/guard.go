package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var comparisons = map[string]func(a, b int) bool{
	"!=": func(a, b int) bool { return a != b },
	">=": func(a, b int) bool { return a >= b },
	"<=": func(a, b int) bool { return a <= b },
	"=":  func(a, b int) bool { return a == b },
	">":  func(a, b int) bool { return a > b },
	"<":  func(a, b int) bool { return a < b },
}

// comparisonRe matches a single atom "var op literal". The operator
// alternation is ordered longest-first so "!=", ">=" and "<=" are not
// shadowed by their one-character prefixes.
var comparisonRe = regexp.MustCompile(`^([a-zA-Z_]\w*)\s*(!=|>=|<=|=|>|<)\s*(\d+)$`)

// Guard is a boolean expression in conjunctive-normal form: a conjunction of
// disjunctions of atomic comparisons. The empty guard is true.
type Guard struct {
	disjuncts [][]Op // AND of OR
}

// IsGuard reports whether text looks like a single atomic comparison, the
// classifier the DSL and the original source both use to tell guard tokens
// apart from location labels and update tokens.
func IsGuard(text string) bool {
	return comparisonRe.MatchString(strings.TrimSpace(text))
}

func parseAtom(text string) (Op, error) {
	m := comparisonRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Op{}, fmt.Errorf("%w: %q is not a comparison", ErrSyntax, text)
	}
	v, op, lit := m[1], m[2], m[3]
	n, err := strconv.Atoi(lit)
	if err != nil {
		return Op{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if _, ok := comparisons[op]; !ok {
		return Op{}, fmt.Errorf("%w: unknown comparator %q", ErrSyntax, op)
	}
	return Op{Var: v, Op: op, Right: lit, Kind: Read, Const: n}, nil
}

// ParseGuard parses a conjunction of `&`-joined disjunctions of `|`-joined
// comparisons. Parentheses are flattened (stripped) before splitting.
func ParseGuard(text string) (Guard, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Guard{}, nil
	}
	text = stripParens(text)
	var disjuncts [][]Op
	for _, conj := range splitTop(text, '&') {
		var disj []Op
		for _, atomText := range splitTop(conj, '|') {
			op, err := parseAtom(atomText)
			if err != nil {
				return Guard{}, err
			}
			disj = append(disj, op)
		}
		disjuncts = append(disjuncts, disj)
	}
	return Guard{disjuncts: disjuncts}, nil
}

// MustParseGuard is a convenience for literal guards at call sites (tests,
// scenario fixtures) that are known good.
func MustParseGuard(text string) Guard {
	g, err := ParseGuard(text)
	if err != nil {
		panic(err)
	}
	return g
}

func stripParens(text string) string {
	return strings.NewReplacer("(", " ", ")", " ").Replace(text)
}

func splitTop(text string, sep byte) []string {
	var parts []string
	for _, p := range strings.Split(text, string(sep)) {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Eval evaluates the guard against ctx. Unset variables read as 0. The
// empty guard is always true.
func (g Guard) Eval(ctx map[string]int) bool {
	for _, disj := range g.disjuncts {
		ok := false
		for _, atom := range disj {
			if atom.Eval(ctx) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Uses returns every Op mentioned anywhere in the guard, used by the POR
// selectors' dependency analysis (stubborn sets rule a.ii in particular).
func (g Guard) Uses() []Op {
	var ops []Op
	for _, disj := range g.disjuncts {
		ops = append(ops, disj...)
	}
	return ops
}

// Disjuncts exposes the conjuncts of the guard (each a disjunction of
// atoms) for the stubborn-set algorithm's "choose a false disjunct" rule.
func (g Guard) Disjuncts() [][]Op {
	return g.disjuncts
}

// And conjoins two guards.
func (g Guard) And(other Guard) Guard {
	return Guard{disjuncts: append(append([][]Op{}, g.disjuncts...), other.disjuncts...)}
}

// IsEmpty reports whether the guard is the trivial "true" guard.
func (g Guard) IsEmpty() bool {
	return len(g.disjuncts) == 0
}

func (g Guard) String() string {
	if g.IsEmpty() {
		return ""
	}
	conj := make([]string, len(g.disjuncts))
	for i, disj := range g.disjuncts {
		atoms := make([]string, len(disj))
		for j, a := range disj {
			atoms[j] = a.String()
		}
		conj[i] = strings.Join(atoms, " | ")
	}
	return strings.Join(conj, " & ")
}
