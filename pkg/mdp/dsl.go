package mdp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rfielding/mdptools/pkg/command"
)

// ProcessDescription is the Go-typed constructor path for a Process: the
// reference implementation's `transition()` helper classifies a flat token
// list into locations/guards/updates at call time (`model/transition.py`);
// BuildSystem does the same, so hand-built descriptions and the text parser
// below share one code path.
type ProcessDescription struct {
	Name  string
	Init  []string
	Vars  map[string]int
	Trans []TransitionDescription
}

// TransitionDescription is one unparsed transition: a token list for the
// preset (locations and guard atoms mixed together), an action label, and
// one or more weighted branches, each itself a mixed token list (locations
// and update assignments).
type TransitionDescription struct {
	Pre    []string
	Action string
	Post   []BranchDescription
}

// BranchDescription is one outcome: its probability weight (1.0 if the
// transition is deterministic) and its mixed location/update token list.
type BranchDescription struct {
	Prob   float64
	Tokens []string
}

// BuildSystem classifies and composes a set of ProcessDescriptions into a
// System, the typed analogue of the reference implementation's
// `transition()`/`state()`/`guard()` token-partitioning helpers.
func BuildSystem(descs ...ProcessDescription) (*System, error) {
	processes := make([]*Process, len(descs))
	for i, d := range descs {
		p, err := buildProcess(d)
		if err != nil {
			return nil, fmt.Errorf("mdp: building process %q: %w", d.Name, err)
		}
		processes[i] = p
	}
	return Compose(processes...)
}

func buildProcess(d ProcessDescription) (*Process, error) {
	init := NewState(d.Init, d.Vars)
	transitions := make([]*Transition, len(d.Trans))
	for i, td := range d.Trans {
		t, err := buildTransition(td)
		if err != nil {
			return nil, fmt.Errorf("transition %d (%s): %w", i, td.Action, err)
		}
		transitions[i] = t
	}
	return NewProcess(d.Name, init, transitions), nil
}

func buildTransition(td TransitionDescription) (*Transition, error) {
	var locs []string
	var guardAtoms []string
	for _, tok := range td.Pre {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if command.IsGuard(tok) {
			guardAtoms = append(guardAtoms, tok)
		} else {
			locs = append(locs, tok)
		}
	}
	g, err := command.ParseGuard(strings.Join(guardAtoms, " & "))
	if err != nil {
		return nil, err
	}
	pre := NewState(locs, nil)

	post := make([]Outcome, len(td.Post))
	for i, b := range td.Post {
		var blocs []string
		var assigns []string
		for _, tok := range b.Tokens {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if command.IsUpdate(tok) {
				assigns = append(assigns, tok)
			} else {
				blocs = append(blocs, tok)
			}
		}
		upd, err := command.ParseUpdate(strings.Join(assigns, ","))
		if err != nil {
			return nil, err
		}
		post[i] = Outcome{Locs: NewState(blocs, nil), Update: upd, Prob: b.Prob}
	}

	// A Post distribution that doesn't sum to 1 is accepted here: spec.md
	// §7/E5 requires R2 to be a non-fatal diagnostic reported by
	// pkg/validate.Check over the explored system, not a construction-time
	// rejection.
	return &Transition{Action: td.Action, Pre: pre, Guard: g, Post: post}, nil
}

// ParseProcesses parses the line-oriented construction DSL:
//
//	process P
//	init s0, x=0
//	s0 -- flip -> 0.5: h | 0.5: t
//	h -- tau -> h
//	end
//
// Pre/guard tokens and post/update tokens are comma-separated and
// classified by command.IsGuard/command.IsUpdate exactly as the Go-typed
// path does; ParseProcesses is sugar over BuildSystem's input type, never a
// separate execution path.
func ParseProcesses(text string) ([]ProcessDescription, error) {
	var descs []ProcessDescription
	var cur *ProcessDescription

	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "process "):
			if cur != nil {
				return nil, fmt.Errorf("mdp: line %d: nested process declaration", lineNo+1)
			}
			name := strings.TrimSpace(strings.TrimPrefix(line, "process "))
			cur = &ProcessDescription{Name: name, Vars: map[string]int{}}
		case line == "end":
			if cur == nil {
				return nil, fmt.Errorf("mdp: line %d: end without process", lineNo+1)
			}
			descs = append(descs, *cur)
			cur = nil
		case strings.HasPrefix(line, "init "):
			if cur == nil {
				return nil, fmt.Errorf("mdp: line %d: init outside process", lineNo+1)
			}
			body := strings.TrimSpace(strings.TrimPrefix(line, "init "))
			locs, vars, err := parseInit(body)
			if err != nil {
				return nil, fmt.Errorf("mdp: line %d: %w", lineNo+1, err)
			}
			cur.Init = locs
			for k, v := range vars {
				cur.Vars[k] = v
			}
		default:
			if cur == nil {
				return nil, fmt.Errorf("mdp: line %d: transition outside process", lineNo+1)
			}
			td, err := parseTransitionLine(line)
			if err != nil {
				return nil, fmt.Errorf("mdp: line %d: %w", lineNo+1, err)
			}
			cur.Trans = append(cur.Trans, td)
		}
	}
	if cur != nil {
		return nil, fmt.Errorf("mdp: unterminated process %q", cur.Name)
	}
	return descs, nil
}

func parseInit(body string) ([]string, map[string]int, error) {
	vars := map[string]int{}
	var locs []string
	for _, tok := range strings.Split(body, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if eq := strings.IndexByte(tok, '='); eq >= 0 && !strings.ContainsAny(tok[:eq], "!<>") {
			k := strings.TrimSpace(tok[:eq])
			v, err := strconv.Atoi(strings.TrimSpace(tok[eq+1:]))
			if err != nil {
				return nil, nil, fmt.Errorf("bad init assignment %q: %w", tok, err)
			}
			vars[k] = v
		} else {
			locs = append(locs, tok)
		}
	}
	return locs, vars, nil
}

func parseTransitionLine(line string) (TransitionDescription, error) {
	arrowIdx := strings.Index(line, "->")
	if arrowIdx < 0 {
		return TransitionDescription{}, fmt.Errorf("%w: missing '->' in %q", command.ErrSyntax, line)
	}
	head := strings.TrimSpace(line[:arrowIdx])
	tail := strings.TrimSpace(line[arrowIdx+2:])

	sepIdx := strings.Index(head, "--")
	if sepIdx < 0 {
		return TransitionDescription{}, fmt.Errorf("%w: missing '--' in %q", command.ErrSyntax, line)
	}
	preRaw := strings.TrimSpace(head[:sepIdx])
	actionRaw := strings.TrimSpace(head[sepIdx+2:])
	if actionRaw == "" {
		return TransitionDescription{}, fmt.Errorf("%w: missing action in %q", command.ErrSyntax, line)
	}

	var preTokens []string
	if preRaw != "" {
		preTokens = splitCSV(preRaw)
	}

	branches, err := parsePost(tail)
	if err != nil {
		return TransitionDescription{}, err
	}

	return TransitionDescription{Pre: preTokens, Action: actionRaw, Post: branches}, nil
}

func parsePost(tail string) ([]BranchDescription, error) {
	parts := strings.Split(tail, "|")
	branches := make([]BranchDescription, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		prob := 1.0
		if colon := strings.IndexByte(part, ':'); colon >= 0 {
			probStr := strings.TrimSpace(part[:colon])
			if p, err := strconv.ParseFloat(probStr, 64); err == nil {
				prob = p
				part = strings.TrimSpace(part[colon+1:])
			}
		}
		branches[i] = BranchDescription{Prob: prob, Tokens: splitCSV(part)}
	}
	return branches, nil
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
