package mdp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rfielding/mdptools/pkg/command"
)

// Outcome is one branch of a transition's postset: a replacement location
// set, the update to apply, and its probability weight.
type Outcome struct {
	Locs   State // location labels only; Ctx is always empty
	Update command.Update
	Prob   float64
}

// floatTolerance is "within one ULP of floating tolerance" for distribution
// sums (spec.md §3's invariant I2), taken as 10*machine-epsilon(float64) to
// match the reference implementation's `10*np.spacing(1.0)` tolerance used
// throughout `validate.py`/`utils/prob_max.py`.
const floatTolerance = 10 * 2.220446049250313e-16

// Transition is a guarded, probabilistically-branching action.
type Transition struct {
	Action string
	Pre    State
	Guard  command.Guard
	Post   []Outcome // non-empty, probabilities sum to ~1
	Active map[*Process]struct{}
}

// StrippedAction removes a trailing "!" or "?" send/receive marker.
func StrippedAction(action string) string {
	if strings.HasSuffix(action, "!") || strings.HasSuffix(action, "?") {
		return action[:len(action)-1]
	}
	return action
}

// IsTau reports whether action never synchronizes (spec.md §3: "prefix tau
// marks an internal action").
func IsTau(action string) bool {
	return strings.HasPrefix(StrippedAction(action), "tau")
}

// IsSend / IsReceive identify directional synchronization markers.
func IsSend(action string) bool    { return strings.HasSuffix(action, "!") }
func IsReceive(action string) bool { return strings.HasSuffix(action, "?") }

// IsEnabled reports whether t can fire in s: its preset is a subset of s's
// locations and its guard holds.
func (t *Transition) IsEnabled(s State) bool {
	return s.HasAll(t.Pre) && t.Guard.Eval(s.Ctx)
}

// Successors computes t's successor distribution from s. Returns an empty
// map if t is not enabled.
func (t *Transition) Successors(s State) map[string]float64 {
	return t.successorStates(s, nil)
}

// SuccessorStates is like Successors but also returns the State value for
// each resulting key, since Key() alone cannot be inverted.
func (t *Transition) SuccessorStates(s State) map[string]State {
	out := map[string]State{}
	t.successorStates(s, out)
	return out
}

func (t *Transition) successorStates(s State, capture map[string]State) map[string]float64 {
	probs := map[string]float64{}
	if !t.IsEnabled(s) {
		return probs
	}
	base := Subtract(s, t.Pre)
	for _, o := range t.Post {
		ctx := o.Update.Apply(s.Ctx)
		s2 := Add(base, State{Locs: o.Locs.Locs, Ctx: ctx})
		key := s2.Key()
		probs[key] += o.Prob
		if capture != nil {
			capture[key] = s2
		}
	}
	return probs
}

// InConflict reports whether the two transitions' presets overlap.
func (t *Transition) InConflict(other *Transition) bool {
	for l := range t.Pre.Locs {
		if _, ok := other.Pre.Locs[l]; ok {
			return true
		}
	}
	return false
}

// IsParallel reports whether the two transitions' active-process sets are
// disjoint.
func (t *Transition) IsParallel(other *Transition) bool {
	for p := range t.Active {
		if _, ok := other.Active[p]; ok {
			return false
		}
	}
	return true
}

// CanBeDependent reports whether some operation used by t and some
// operation used by other are dependent in the command.Op sense. Following
// the reference implementation (`transition.py`'s `can_be_dependent`), only
// the postset's write operations are compared; the guard contributes
// through the stubborn-set algorithm's own rule (a.ii), not here.
func (t *Transition) CanBeDependent(other *Transition) bool {
	a := t.usedPostOps()
	b := other.usedPostOps()
	for va := range a {
		if _, ok := b[va]; ok {
			return true
		}
	}
	return false
}

func (t *Transition) usedPostOps() map[string]struct{} {
	out := map[string]struct{}{}
	for _, o := range t.Post {
		for _, op := range o.Update.Uses() {
			out[op.Var] = struct{}{}
		}
	}
	return out
}

// Used returns every Op referenced by t: its guard's atoms and every
// outcome's update assignments. Used by the stubborn-set selector.
func (t *Transition) Used() []command.Op {
	ops := append([]command.Op{}, t.Guard.Uses()...)
	for _, o := range t.Post {
		ops = append(ops, o.Update.Uses()...)
	}
	return ops
}

// Rename substitutes location labels (via states) and, if present, the
// action label (via actions).
func (t *Transition) Rename(states, actions map[string]string) *Transition {
	action := t.Action
	if a, ok := actions[action]; ok {
		action = a
	}
	post := make([]Outcome, len(t.Post))
	for i, o := range t.Post {
		post[i] = Outcome{Locs: o.Locs.Rename(states), Update: o.Update, Prob: o.Prob}
	}
	return &Transition{
		Action: action,
		Pre:    t.Pre.Rename(states),
		Guard:  t.Guard,
		Post:   post,
		Active: t.Active,
	}
}

// Product computes the synchronization product of t and other: the
// stripped action label, unioned presets, conjoined guards, the
// distribution product of the two postsets, and a unioned active set.
func Product(t, other *Transition) (*Transition, error) {
	post, err := distProduct(t.Post, other.Post)
	if err != nil {
		return nil, err
	}
	active := make(map[*Process]struct{}, len(t.Active)+len(other.Active))
	for p := range t.Active {
		active[p] = struct{}{}
	}
	for p := range other.Active {
		active[p] = struct{}{}
	}
	return &Transition{
		Action: StrippedAction(t.Action),
		Pre:    Add(t.Pre, other.Pre),
		Guard:  t.Guard.And(other.Guard),
		Post:   post,
		Active: active,
	}, nil
}

// distProduct is the Cartesian-product distribution merge (spec.md §4.2):
// outcomes pair up, their location sets union, their updates merge
// (conflicting right-hand sides are a composition-time error), and their
// probabilities multiply.
func distProduct(a, b []Outcome) ([]Outcome, error) {
	out := make([]Outcome, 0, len(a)*len(b))
	for _, oa := range a {
		for _, ob := range b {
			upd, err := oa.Update.Merge(ob.Update)
			if err != nil {
				return nil, err
			}
			out = append(out, Outcome{
				Locs:   Add(oa.Locs, ob.Locs),
				Update: upd,
				Prob:   oa.Prob * ob.Prob,
			})
		}
	}
	return out, nil
}

// SumProbability returns the sum of the postset's probabilities, for the R2
// validation rule.
func (t *Transition) SumProbability() float64 {
	var sum float64
	for _, o := range t.Post {
		sum += o.Prob
	}
	return sum
}

func (t *Transition) String() string {
	pre := t.Pre.String()
	if g := t.Guard.String(); g != "" {
		pre += " & " + g
	}
	parts := make([]string, len(t.Post))
	for i, o := range t.Post {
		dst := o.Locs.String()
		if u := o.Update.String(); u != "" {
			dst = fmt.Sprintf("(%s, %s)", dst, u)
		}
		if o.Prob == 1.0 {
			parts[i] = dst
		} else {
			parts[i] = fmt.Sprintf("%g:%s", o.Prob, dst)
		}
	}
	return fmt.Sprintf("[%s] %s -> %s", t.Action, pre, strings.Join(parts, " + "))
}

// activeNames returns the sorted names of the transition's active
// processes.
func (t *Transition) activeNames() []string {
	names := make([]string, 0, len(t.Active))
	for p := range t.Active {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}
