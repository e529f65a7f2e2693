// Package reachability embeds github.com/ichiban/prolog as a CTL query
// engine over an explored state graph: the engine loads a fixed core of
// CTL-over-Kripke-structure fixpoint clauses and accepts asserted
// `state/1`, `transition/3` and `prop/2` facts as the model. This is a
// direct adaptation of the teacher's pkg/prolog engine, trimmed to the CTL
// core (visualization/sequence/pie-chart extraction predicates dropped —
// nothing in this domain needs them) and re-themed around reachability
// queries against mdp.System exploration graphs instead of hand-authored
// specification files.
package reachability

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ichiban/prolog"
)

// Engine wraps an ichiban/prolog interpreter loaded with the CTL core. One
// Engine's fact base corresponds to one explored graph; it is cheap to
// Reset and refill for a new exploration.
type Engine struct {
	mu          sync.Mutex
	interpreter *prolog.Interpreter
}

// New creates an Engine with the CTL core loaded and no model facts.
func New() (*Engine, error) {
	e := &Engine{interpreter: prolog.New(nil, nil)}
	if err := e.interpreter.Exec(ctlCore); err != nil {
		return nil, fmt.Errorf("reachability: loading CTL core: %w", err)
	}
	return e, nil
}

// ctlCore is the fixpoint clause set evaluated by SLD resolution, kept
// verbatim from the teacher's pkg/prolog engine (`loadCore`'s CTL section)
// since the logic needed here — EX/AX/EF/AF/EG/AG/EU/AU over an
// asserted Kripke structure — is identical; only the surrounding
// visualization/CSP/actor predicates were dropped as unused in this
// domain.
const ctlCore = `
ctl_ex(State, Phi) :-
    transition(State, _, Next),
    ctl_sat(Next, Phi).

ctl_ax(State, Phi) :-
    findall(Next, transition(State, _, Next), Nexts),
    Nexts \= [],
    forall(member(N, Nexts), ctl_sat(N, Phi)).

ctl_ef(State, Phi) :-
    ctl_ef(State, Phi, []).

ctl_ef(State, Phi, _Visited) :-
    ctl_sat(State, Phi).
ctl_ef(State, Phi, Visited) :-
    \+ member(State, Visited),
    transition(State, _, Next),
    ctl_ef(Next, Phi, [State|Visited]).

ctl_af(State, Phi) :-
    ctl_af(State, Phi, []).

ctl_af(State, Phi, _Visited) :-
    ctl_sat(State, Phi).
ctl_af(State, Phi, Visited) :-
    \+ member(State, Visited),
    findall(Next, transition(State, _, Next), Nexts),
    Nexts \= [],
    forall(member(N, Nexts), ctl_af(N, Phi, [State|Visited])).

ctl_eg(State, Phi) :-
    ctl_eg(State, Phi, []).

ctl_eg(State, Phi, Visited) :-
    ctl_sat(State, Phi),
    (member(State, Visited) -> true ;
     (transition(State, _, Next),
      ctl_eg(Next, Phi, [State|Visited]))).

ctl_ag(State, Phi) :-
    ctl_ag(State, Phi, []).

ctl_ag(State, Phi, Visited) :-
    ctl_sat(State, Phi),
    (member(State, Visited) -> true ;
     (findall(Next, transition(State, _, Next), Nexts),
      forall(member(N, Nexts), ctl_ag(N, Phi, [State|Visited])))).

ctl_eu(State, _Phi, Psi, _Visited) :-
    ctl_sat(State, Psi).
ctl_eu(State, Phi, Psi, Visited) :-
    \+ member(State, Visited),
    ctl_sat(State, Phi),
    transition(State, _, Next),
    ctl_eu(Next, Phi, Psi, [State|Visited]).

ctl_au(State, _Phi, Psi, _Visited) :-
    ctl_sat(State, Psi).
ctl_au(State, Phi, Psi, Visited) :-
    \+ member(State, Visited),
    ctl_sat(State, Phi),
    findall(Next, transition(State, _, Next), Nexts),
    Nexts \= [],
    forall(member(N, Nexts), ctl_au(N, Phi, Psi, [State|Visited])).

ctl_sat(State, atom(P)) :- prop(State, P).
ctl_sat(State, not(Phi)) :- \+ ctl_sat(State, Phi).
ctl_sat(State, and(Phi, Psi)) :- ctl_sat(State, Phi), ctl_sat(State, Psi).
ctl_sat(State, or(Phi, Psi)) :- (ctl_sat(State, Phi) ; ctl_sat(State, Psi)).
ctl_sat(State, ex(Phi)) :- ctl_ex(State, Phi).
ctl_sat(State, ax(Phi)) :- ctl_ax(State, Phi).
ctl_sat(State, ef(Phi)) :- ctl_ef(State, Phi).
ctl_sat(State, af(Phi)) :- ctl_af(State, Phi).
ctl_sat(State, eg(Phi)) :- ctl_eg(State, Phi).
ctl_sat(State, ag(Phi)) :- ctl_ag(State, Phi).
ctl_sat(State, eu(Phi, Psi)) :- ctl_eu(State, Phi, Psi, []).
ctl_sat(State, au(Phi, Psi)) :- ctl_au(State, Phi, Psi, []).

member(X, [X|_]).
member(X, [_|T]) :- member(X, T).
forall(Cond, Action) :- \+ (Cond, \+ Action).
`

// goalProp marks every state asserted via SetGoal.
const goalProp = "goal"

// quoteAtom renders s as a Prolog quoted atom, escaping embedded quotes and
// backslashes. State keys (`State.Key()`) contain `{`, `|`, `,`, `=` — none
// of which are valid in a bare Prolog atom.
func quoteAtom(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// AssertState records a reachable state.
func (e *Engine) AssertState(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interpreter.Exec(fmt.Sprintf("state(%s).", quoteAtom(key)))
}

// AssertTransition records an edge discovered by exploration.
func (e *Engine) AssertTransition(from, action, to string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interpreter.Exec(fmt.Sprintf("transition(%s, %s, %s).", quoteAtom(from), quoteAtom(action), quoteAtom(to)))
}

// SetGoal marks every key in keys as satisfying the `goal` atomic
// proposition, so CanReach and `ef(atom(goal))` queries work uniformly
// regardless of how many variables/locations the original Goal state
// constrained.
func (e *Engine) SetGoal(keys []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, k := range keys {
		if err := e.interpreter.Exec(fmt.Sprintf("prop(%s, %s).", quoteAtom(k), goalProp)); err != nil {
			return err
		}
	}
	return nil
}

// CanReach reports whether some path from `from` reaches a state marked by
// SetGoal — the backward-reachability test the solver's value iteration
// needs before it bothers solving a state (spec.md's "states that provably
// cannot reach the goal get V(s)=0 without iteration").
func (e *Engine) CanReach(ctx context.Context, from string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	query := fmt.Sprintf("ctl_ef(%s, atom(%s)).", quoteAtom(from), goalProp)
	sols, err := e.interpreter.QueryContext(ctx, query)
	if err != nil {
		return false, err
	}
	defer sols.Close()
	ok := sols.Next()
	return ok, sols.Err()
}

// Query answers an arbitrary CTL formula (in the ctl_sat term syntax: ef,
// af, eg, ag, ex, ax, eu(Phi,Psi), au(Phi,Psi), and/or/not, atom(P)) at the
// given state, for the HTTP driver's free-form query endpoint.
func (e *Engine) Query(ctx context.Context, from, formula string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	query := fmt.Sprintf("ctl_sat(%s, %s).", quoteAtom(from), formula)
	sols, err := e.interpreter.QueryContext(ctx, query)
	if err != nil {
		return false, err
	}
	defer sols.Close()
	ok := sols.Next()
	return ok, sols.Err()
}

// Reset discards the fact base (states, transitions, goal markers) and
// reloads the CTL core, so the same Engine can serve a fresh Explore run.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interpreter = prolog.New(nil, nil)
	return e.interpreter.Exec(ctlCore)
}
