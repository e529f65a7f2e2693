package selector

import "github.com/rfielding/mdptools/pkg/mdp"

// WithBias wraps a selector so it always seeds the algorithm from the
// enabled transition matching action, instead of the first enabled
// transition in system order. Grounded on `set_methods/transition_bias.py`
// (`transition_bias`): both files implement the same wrapper, the kept
// version generalizing its match from "action or literal transition" (the
// Python overload) to just action, since Go's Transition identity is
// already exposed via pointer equality where callers need it.
func WithBias(algorithm func(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition, action string) func(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition {
	return func(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition {
		return algorithm(sys, s, seedFirst(enabled, action))
	}
}

// GoalBias wraps a selector so it prefers seeding from a transition whose
// action appears in goalActions (an action known to move the system toward
// a reachability goal), falling back to the first enabled transition when
// none matches. Grounded on `set_methods/set_utils.py`'s
// `init_transition_set` (`bias = mdp.goal_actions`, falling back to
// `enabled_take_one`).
func GoalBias(algorithm func(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition, goalActions []string) func(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition {
	set := map[string]struct{}{}
	for _, a := range goalActions {
		set[a] = struct{}{}
	}
	return func(sys *mdp.System, s mdp.State, enabled []*mdp.Transition) []*mdp.Transition {
		for _, t := range enabled {
			if _, ok := set[t.Action]; ok {
				return algorithm(sys, s, seedFirst(enabled, t.Action))
			}
		}
		return algorithm(sys, s, enabled)
	}
}

// seedFirst returns enabled with the first transition whose Action matches
// moved to the front, so takeOne picks it as the algorithm's seed.
func seedFirst(enabled []*mdp.Transition, action string) []*mdp.Transition {
	for i, t := range enabled {
		if t.Action == action {
			if i == 0 {
				return enabled
			}
			out := make([]*mdp.Transition, 0, len(enabled))
			out = append(out, t)
			out = append(out, enabled[:i]...)
			out = append(out, enabled[i+1:]...)
			return out
		}
	}
	return enabled
}
