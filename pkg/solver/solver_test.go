package solver

import (
	"math"
	"testing"

	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/search"
	"github.com/rfielding/mdptools/pkg/selector"
)

func twoCoinSystem(t *testing.T) *mdp.System {
	t.Helper()
	coin := func(name string) *mdp.Process {
		flip := &mdp.Transition{
			Action: "flip" + name,
			Pre:    mdp.NewState([]string{"s0_" + name}, nil),
			Post: []mdp.Outcome{
				{Locs: mdp.NewState([]string{"h_" + name}, nil), Prob: 0.5},
				{Locs: mdp.NewState([]string{"t_" + name}, nil), Prob: 0.5},
			},
		}
		return mdp.NewProcess("C"+name, mdp.NewState([]string{"s0_" + name}, nil), []*mdp.Transition{flip})
	}
	sys, err := mdp.Compose(coin("1"), coin("2"))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	return sys
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// TestSolveTwoCoinBothHeads is the E1 scenario at the solver layer:
// Pmax(heads,heads) = 0.25 from the shared initial state.
func TestSolveTwoCoinBothHeads(t *testing.T) {
	sys := twoCoinSystem(t)
	g := search.Explore(sys, nil, search.LIFO, nil)
	goal := mdp.NewState([]string{"h_1", "h_2"}, nil)

	result, err := Solve(sys, g, goal)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	got := result.At(sys.Init)
	if !approxEqual(got, 0.25) {
		t.Errorf("Pmax(heads,heads) from init = %v, want 0.25", got)
	}
}

// TestSolveGoalStateIsOne confirms a state already satisfying the goal
// predicate gets probability exactly 1.
func TestSolveGoalStateIsOne(t *testing.T) {
	sys := twoCoinSystem(t)
	g := search.Explore(sys, nil, search.LIFO, nil)
	goal := mdp.NewState([]string{"h_1", "h_2"}, nil)

	result, err := Solve(sys, g, goal)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got := result.At(goal); got != 1.0 {
		t.Errorf("Pmax at the goal state itself = %v, want 1.0", got)
	}
}

// TestSolveUnreachableGoalIsZero confirms a goal that matches no reachable
// state yields 0 everywhere without iterating to non-convergence.
func TestSolveUnreachableGoalIsZero(t *testing.T) {
	sys := twoCoinSystem(t)
	g := search.Explore(sys, nil, search.LIFO, nil)
	goal := mdp.NewState([]string{"nonexistent"}, nil)

	result, err := Solve(sys, g, goal)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got := result.At(sys.Init); got != 0.0 {
		t.Errorf("Pmax for an unreachable goal = %v, want 0.0", got)
	}
}

// TestSolveMemoizesPerSystem confirms the (system, goal) cache key is keyed
// on system identity, not just the goal: two distinct System values built
// the same way get independently cached results rather than colliding.
func TestSolveMemoizesPerSystem(t *testing.T) {
	sysA := twoCoinSystem(t)
	sysB := twoCoinSystem(t)
	goal := mdp.NewState([]string{"h_1", "h_2"}, nil)

	gA := search.Explore(sysA, nil, search.LIFO, nil)
	gB := search.Explore(sysB, nil, search.LIFO, nil)

	rA, err := Solve(sysA, gA, goal)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	rB, err := Solve(sysB, gB, goal)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !approxEqual(rA.At(sysA.Init), rB.At(sysB.Init)) {
		t.Errorf("two independently-built but structurally identical systems should solve to the same value: %v vs %v", rA.At(sysA.Init), rB.At(sysB.Init))
	}
	if !approxEqual(rA.At(sysA.Init), 0.25) {
		t.Errorf("Pmax(heads,heads) = %v, want 0.25", rA.At(sysA.Init))
	}
	cacheMu.Lock()
	_, okA := cache[cacheKey{sys: sysA, goal: goal.Key()}]
	_, okB := cache[cacheKey{sys: sysB, goal: goal.Key()}]
	cacheMu.Unlock()
	if !okA || !okB {
		t.Errorf("expected a separate cache entry per system, got A=%v B=%v", okA, okB)
	}
}

// sensorDeviceSystem is the E2 scenario ([kwiatkowska2013]): a sensor
// synchronized with a device over warn_1/shutdown_1. detect_1 and the two
// processes' tau actions stay internal (unsynchronized), so the composed
// system has exactly 6 reachable states: the sensor can skip straight from
// active_1 to detected_1 (probability 0.2) and the device can fail on
// shutdown (probability 0.1), giving Pmax(failed) = 0.2 * 0.1 = 0.02.
func sensorDeviceSystem(t *testing.T) *mdp.System {
	t.Helper()
	sys, err := mdp.BuildSystem(
		mdp.ProcessDescription{
			Name: "S1",
			Init: []string{"active_1"},
			Trans: []mdp.TransitionDescription{
				{
					Pre:    []string{"active_1"},
					Action: "detect_1",
					Post: []mdp.BranchDescription{
						{Prob: 0.8, Tokens: []string{"prepare_1"}},
						{Prob: 0.2, Tokens: []string{"detected_1"}},
					},
				},
				{Pre: []string{"prepare_1"}, Action: "warn_1", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"detected_1"}}}},
				{Pre: []string{"detected_1"}, Action: "shutdown_1", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"inactive_1"}}}},
				{Pre: []string{"inactive_1"}, Action: "tau_1", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"inactive_1"}}}},
			},
		},
		mdp.ProcessDescription{
			Name: "D",
			Init: []string{"running"},
			Trans: []mdp.TransitionDescription{
				{Pre: []string{"running"}, Action: "warn_1", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"stopping"}}}},
				{
					Pre:    []string{"running"},
					Action: "shutdown_1",
					Post: []mdp.BranchDescription{
						{Prob: 0.9, Tokens: []string{"off"}},
						{Prob: 0.1, Tokens: []string{"failed"}},
					},
				},
				{Pre: []string{"stopping"}, Action: "shutdown_1", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"off"}}}},
				{Pre: []string{"off"}, Action: "tau", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"off"}}}},
				{Pre: []string{"failed"}, Action: "tau", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"failed"}}}},
			},
		},
	)
	if err != nil {
		t.Fatalf("BuildSystem: %v", err)
	}
	return sys
}

func TestSolveSensorDeviceReachesSixStatesAndFailureProbability(t *testing.T) {
	sys := sensorDeviceSystem(t)
	g := search.Explore(sys, nil, search.LIFO, nil)
	if g.ReachableCount() != 6 {
		t.Errorf("expected 6 reachable states, got %d", g.ReachableCount())
	}

	goal := mdp.NewState([]string{"failed"}, nil)
	result, err := Solve(sys, g, goal)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got := result.At(sys.Init); !approxEqual(got, 0.02) {
		t.Errorf("Pmax(failed) = %v, want 0.02", got)
	}
}

// hansenFourProcessSystem is the E4 scenario ([hansen2011]): four processes
// synchronizing on x/y/z, with M1's own internal a/b branch and tau_1/tau_2
// self-loops kept unsynchronized. Full state space is 16.
func hansenFourProcessSystem(t *testing.T) *mdp.System {
	t.Helper()
	m1 := mdp.ProcessDescription{
		Name: "M1",
		Init: []string{"s0"},
		Trans: []mdp.TransitionDescription{
			{
				Pre:    []string{"s0"},
				Action: "a",
				Post: []mdp.BranchDescription{
					{Prob: 0.2, Tokens: []string{"s1"}},
					{Prob: 0.8, Tokens: []string{"s2"}},
				},
			},
			{
				Pre:    []string{"s0"},
				Action: "b",
				Post: []mdp.BranchDescription{
					{Prob: 0.7, Tokens: []string{"s2"}},
					{Prob: 0.3, Tokens: []string{"s3"}},
				},
			},
			{Pre: []string{"s1"}, Action: "tau_1", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"s1"}}}},
			{Pre: []string{"s2"}, Action: "x", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"s2"}}}},
			{Pre: []string{"s2"}, Action: "y", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"s2"}}}},
			{Pre: []string{"s2"}, Action: "z", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"s2"}}}},
			{Pre: []string{"s3"}, Action: "x", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"s3"}}}},
			{Pre: []string{"s3"}, Action: "z", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"s3"}}}},
		},
	}
	m2 := mdp.ProcessDescription{
		Name: "M2",
		Init: []string{"r0"},
		Trans: []mdp.TransitionDescription{
			{Pre: []string{"r0"}, Action: "x", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"r1"}}}},
			{Pre: []string{"r1"}, Action: "y", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"r0"}}}},
			{Pre: []string{"r1"}, Action: "z", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"r1"}}}},
		},
	}
	m3 := mdp.ProcessDescription{
		Name: "M3",
		Init: []string{"w0"},
		Trans: []mdp.TransitionDescription{
			{Pre: []string{"w0"}, Action: "c", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"w1"}}}},
			{Pre: []string{"w0"}, Action: "y", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"w0"}}}},
			{Pre: []string{"w1"}, Action: "tau_2", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"w1"}}}},
		},
	}
	m4 := mdp.ProcessDescription{
		Name: "M4",
		Init: []string{"v0"},
		Trans: []mdp.TransitionDescription{
			{Pre: []string{"v0"}, Action: "z", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"v1"}}}},
			{Pre: []string{"v0"}, Action: "y", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"v0"}}}},
			{Pre: []string{"v1"}, Action: "z", Post: []mdp.BranchDescription{{Prob: 1.0, Tokens: []string{"v1"}}}},
		},
	}
	sys, err := mdp.BuildSystem(m1, m2, m3, m4)
	if err != nil {
		t.Fatalf("BuildSystem: %v", err)
	}
	return sys
}

func TestSolveHansenFourProcessFullStateSpaceIs16(t *testing.T) {
	sys := hansenFourProcessSystem(t)
	g := search.Explore(sys, nil, search.LIFO, nil)
	if g.ReachableCount() != 16 {
		t.Errorf("expected 16 reachable states, got %d", g.ReachableCount())
	}
}

// TestSolveHansenFourProcessPorMatchesFull is E4's Pmax-equality claim:
// Pmax(<> s=s2 & r=r0 & w=w1 & v=v0) must match between full and
// POR-reduced exploration.
func TestSolveHansenFourProcessPorMatchesFull(t *testing.T) {
	sys := hansenFourProcessSystem(t)
	full := search.Explore(sys, nil, search.LIFO, nil)
	reduced := search.Explore(sys, nil, search.LIFO, search.Selector(selector.StubbornSets))
	goal := mdp.NewState([]string{"s2", "r0", "w1", "v0"}, nil)

	fullResult, err := Solve(sys, full, goal)
	if err != nil {
		t.Fatalf("Solve(full): %v", err)
	}
	reducedResult, err := Solve(sys, reduced, goal)
	if err != nil {
		t.Fatalf("Solve(reduced): %v", err)
	}
	if !approxEqual(fullResult.At(sys.Init), reducedResult.At(sys.Init)) {
		t.Errorf("Pmax should match between full and reduced exploration: full=%v reduced=%v", fullResult.At(sys.Init), reducedResult.At(sys.Init))
	}
}
