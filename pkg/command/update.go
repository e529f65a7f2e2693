package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// assignRe matches "v := n" or "v := v' +/- n".
var assignRe = regexp.MustCompile(`^([a-zA-Z_]\w*)\s*:=\s*(?:([a-zA-Z_]\w*)\s*([+-])\s*)?(\d+)$`)

// IsUpdate reports whether text looks like a single assignment, the
// classifier used to pick update tokens out of a flattened post-set.
func IsUpdate(text string) bool {
	return assignRe.MatchString(strings.TrimSpace(text))
}

// Update is a set of assignments applied simultaneously to a store. The
// empty update is the identity.
type Update struct {
	assigns []Op
}

func parseAssignment(text string) (Op, error) {
	m := assignRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Op{}, fmt.Errorf("%w: %q is not an assignment", ErrSyntax, text)
	}
	target, readVar, sign, lit := m[1], m[2], m[3], m[4]
	n, err := strconv.Atoi(lit)
	if err != nil {
		return Op{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if readVar == "" {
		return Op{Var: target, Op: ":=", Right: lit, Kind: Write, Const: n}, nil
	}
	signVal := 1
	if sign == "-" {
		signVal = -1
	}
	return Op{
		Var: target, Op: ":=", Right: readVar + sign + lit, Kind: Read | Write,
		Const: n, RefVar: readVar, Sign: signVal,
	}, nil
}

// ParseUpdate parses comma-separated assignments.
func ParseUpdate(text string) (Update, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Update{}, nil
	}
	var assigns []Op
	for _, part := range splitTop(text, ',') {
		op, err := parseAssignment(part)
		if err != nil {
			return Update{}, err
		}
		assigns = append(assigns, op)
	}
	return Update{assigns: assigns}, nil
}

// MustParseUpdate is a convenience for literal updates known good at the
// call site.
func MustParseUpdate(text string) Update {
	u, err := ParseUpdate(text)
	if err != nil {
		panic(err)
	}
	return u
}

// Apply returns a new store where every target variable is set to its
// computed value; variables not targeted are preserved. Total: never fails.
func (u Update) Apply(ctx map[string]int) map[string]int {
	out := make(map[string]int, len(ctx)+len(u.assigns))
	for k, v := range ctx {
		out[k] = v
	}
	for _, a := range u.assigns {
		out[a.Var] = a.AssignedValue(ctx)
	}
	return out
}

// Uses returns every Op in the update, for dependency analysis.
func (u Update) Uses() []Op {
	return append([]Op{}, u.assigns...)
}

// Merge unions two updates' assignment sets. A conflicting assignment to
// the same variable with a different right-hand side is a composition-time
// error (spec.md §4.2, distribution product).
func (u Update) Merge(other Update) (Update, error) {
	seen := map[string]Op{}
	var merged []Op
	add := func(op Op) error {
		if prev, ok := seen[op.Var]; ok && prev != op {
			return fmt.Errorf("%w: %s assigned both %q and %q", ErrConflictingUpdate, op.Var, prev, op)
		}
		if _, ok := seen[op.Var]; !ok {
			seen[op.Var] = op
			merged = append(merged, op)
		}
		return nil
	}
	for _, op := range u.assigns {
		if err := add(op); err != nil {
			return Update{}, err
		}
	}
	for _, op := range other.assigns {
		if err := add(op); err != nil {
			return Update{}, err
		}
	}
	return Update{assigns: merged}, nil
}

// IsEmpty reports whether the update is the identity.
func (u Update) IsEmpty() bool {
	return len(u.assigns) == 0
}

func (u Update) String() string {
	parts := make([]string, len(u.assigns))
	for i, a := range u.assigns {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
