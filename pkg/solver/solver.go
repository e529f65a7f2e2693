// Package solver computes maximum reachability probability over an
// explored system by value iteration: a Bellman fixed-point computed by
// repeated sweeps rather than the reference implementation's
// `scipy.optimize.fsolve` root-find, since Go has no pack-available
// nonlinear solver and the Bellman operator for Pmax is already a
// contraction mapping that plain iteration converges on. Grounded on
// `utils/prob_max.py`'s `equation_system`/`pr_max`.
package solver

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/mdplog"
	"github.com/rfielding/mdptools/pkg/reachability"
	"github.com/rfielding/mdptools/pkg/search"
)

// maxIterations and convergenceTolerance bound the Bellman sweep; 8-decimal
// rounding on the result matches the reference implementation's
// `round(p, 8)` in `equation_system.solve`.
const (
	maxIterations        = 10000
	convergenceTolerance = 1e-10
)

// Result maps each explored state's canonical key to its maximum
// probability of reaching the goal.
type Result map[string]float64

// cache memoizes a solve by (system, goal key) identity, mirroring the
// reference implementation's `memo = {}` dict keyed by `mdp` object
// identity in `utils/prob_max.py`. Guarded by cacheMu because the HTTP
// driver may call Solve from concurrent requests; core callers never
// contend it.
var (
	cacheMu sync.Mutex
	cache   = map[cacheKey]Result{}
)

type cacheKey struct {
	sys  *mdp.System
	goal string
}

// Solve computes the maximum probability of reaching goal from every state
// in g, memoized by (sys, goal) identity. A state that cannot reach the
// goal at all gets V(s)=0 without iteration (backed by
// pkg/reachability.Engine.CanReach, which reuses the teacher's CTL
// fixpoint as the backward-reachability test); a goal state gets V(s)=1;
// every other state solves the Bellman equation
//
//	V(s) = max over enabled actions a of sum_s' P(s,a,s') * V(s')
//
// by synchronous (Jacobi) sweeps until the largest per-state change drops
// below convergenceTolerance or maxIterations is exhausted, in which case
// the partial result is returned alongside mdplog.NonConvergence having
// already logged the shortfall. A self-loop action never needs special
// casing: every non-goal state starts at V=0, and a pure self-loop action
// can only ever match whatever value other enabled actions already pushed
// the state to, so it never distorts the max.
func Solve(sys *mdp.System, g *search.Graph, goal mdp.State) (Result, error) {
	key := cacheKey{sys: sys, goal: goal.Key()}
	cacheMu.Lock()
	cached, ok := cache[key]
	cacheMu.Unlock()
	if ok {
		return cached, nil
	}

	engine, err := reachability.New()
	if err != nil {
		return nil, err
	}
	keys := g.SortedKeys()
	for _, k := range keys {
		if err := engine.AssertState(k); err != nil {
			return nil, err
		}
	}
	for _, k := range keys {
		for action, branches := range g.Edges[k] {
			for _, br := range branches {
				if err := engine.AssertTransition(k, action, br.State.Key()); err != nil {
					return nil, err
				}
			}
		}
	}

	var goalKeys []string
	isGoal := map[string]bool{}
	for _, k := range keys {
		if g.States[k].IsGoal(goal) {
			isGoal[k] = true
			goalKeys = append(goalKeys, k)
		}
	}
	if err := engine.SetGoal(goalKeys); err != nil {
		return nil, err
	}

	ctx := context.Background()
	canReach := map[string]bool{}
	for _, k := range keys {
		if isGoal[k] {
			canReach[k] = true
			continue
		}
		ok, err := engine.CanReach(ctx, k)
		if err != nil {
			return nil, err
		}
		canReach[k] = ok
	}

	v := make(map[string]float64, len(keys))
	for _, k := range keys {
		if isGoal[k] {
			v[k] = 1.0
		}
	}

	transient := make([]string, 0, len(keys))
	for _, k := range keys {
		if !isGoal[k] && canReach[k] {
			transient = append(transient, k)
		}
	}
	sort.Strings(transient)

	converged := false
	var lastDelta float64
	iter := 0
	for ; iter < maxIterations; iter++ {
		next := make(map[string]float64, len(transient))
		var maxDelta float64
		for _, k := range transient {
			best := 0.0
			first := true
			for _, branches := range g.Edges[k] {
				var sum float64
				for _, br := range branches {
					sum += br.Prob * v[br.State.Key()]
				}
				if first || sum > best {
					best = sum
					first = false
				}
			}
			next[k] = best
			if d := math.Abs(best - v[k]); d > maxDelta {
				maxDelta = d
			}
		}
		for k, val := range next {
			v[k] = val
		}
		lastDelta = maxDelta
		if maxDelta < convergenceTolerance {
			converged = true
			iter++
			break
		}
	}
	if !converged {
		mdplog.NonConvergence(iter, lastDelta)
	}

	result := make(Result, len(keys))
	for _, k := range keys {
		result[k] = round8(v[k])
	}
	cacheMu.Lock()
	cache[key] = result
	cacheMu.Unlock()
	return result, nil
}

// At is a convenience accessor returning the probability at a single
// state, mirroring `pr_max(mdp, s)` defaulting s to the system's initial
// state when s is the zero value.
func (r Result) At(s mdp.State) float64 {
	return r[s.Key()]
}

func round8(p float64) float64 {
	const scale = 1e8
	return math.Round(p*scale) / scale
}
