// Package command implements the guard/update expression language: parsing,
// evaluation, and the read/write "uses" introspection the POR selectors
// depend on.
package command

import "fmt"

// Kind marks whether an Op reads, writes, or both reads-and-writes its
// variable.
type Kind int

const (
	Read Kind = 1 << iota
	Write
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "r"
	case Write:
		return "w"
	case Read | Write:
		return "rw"
	default:
		return ""
	}
}

// Op is a single atomic comparison (guard) or assignment (update), kept as
// a pure value — every field is data, so two Ops are comparable with `==`
// and evaluation is an interpreter over that data (comparisons) rather
// than a stored closure.
type Op struct {
	Var    string // the variable this Op reads or writes
	Op     string // comparator ("=", "!=", "<", ">", "<=", ">=") or ":="
	Right  string // literal text of the right-hand side, for display only
	Kind   Kind
	Const  int    // RHS literal operand: the comparison literal, or the assignment constant
	RefVar string // for "v := refVar +/- n" updates, the variable read on the right; "" otherwise
	Sign   int    // +1 or -1, applied to Const when RefVar != ""
}

func (o Op) String() string {
	return fmt.Sprintf("%s%s%s", o.Var, o.Op, o.Right)
}

// AssignedValue computes the value an update assignment writes, reading
// RefVar from ctx when the assignment is relative ("v := refVar +/- n").
func (o Op) AssignedValue(ctx map[string]int) int {
	if o.RefVar == "" {
		return o.Const
	}
	return ctxGet(ctx, o.RefVar) + o.Sign*o.Const
}

// CanBeDependent is the fundamental interference predicate: two operations
// are dependent iff they touch the same variable and at least one writes
// it.
func (o Op) CanBeDependent(other Op) bool {
	if o.Var != other.Var {
		return false
	}
	return (o.Kind&Write != 0 && other.Kind != 0) || (other.Kind&Write != 0 && o.Kind != 0)
}

// Dependent is the free-function form used outside method-chaining
// contexts.
func Dependent(a, b Op) bool {
	return a.CanBeDependent(b)
}

// Eval evaluates a single guard atom against ctx. Used by the stubborn-set
// selector to test individual disjunct atoms in isolation (Guard.Eval
// tests the whole conjunction). Op.Op must be a comparator ("=", "!=",
// "<", ">", "<=", ">="), not ":=".
func (o Op) Eval(ctx map[string]int) bool {
	cmp, ok := comparisons[o.Op]
	if !ok {
		return false
	}
	return cmp(ctxGet(ctx, o.Var), o.Const)
}

func ctxGet(ctx map[string]int, v string) int {
	return ctx[v]
}
