package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/reachability"
	"github.com/rfielding/mdptools/pkg/render"
	"github.com/rfielding/mdptools/pkg/search"
	"github.com/rfielding/mdptools/pkg/selector"
	"github.com/rfielding/mdptools/pkg/solver"
	"github.com/rfielding/mdptools/pkg/validate"
)

//go:embed static/*
var staticFiles embed.FS

// Server is the HTTP model-checking driver: it keeps one loaded
// construction-DSL source, the System it builds, and the System's cached
// classic exploration, and answers queries/checks/reductions against that
// cached graph. Grounded on the teacher's own Server (a single in-memory
// spec plus request-scoped derived state), re-themed from a Prolog
// specification sandbox to an MDP construction/exploration one.
type Server struct {
	mu       sync.RWMutex
	sys      *mdp.System
	graph    *search.Graph
	source   string
	specFile string

	countersMu sync.RWMutex
	counters   map[string]int64
	timeSeries []TimePoint
}

// TimePoint is one counter sample, unchanged in shape from the teacher.
type TimePoint struct {
	Time    time.Time `json:"time"`
	Counter string    `json:"counter"`
	Value   int64     `json:"value"`
}

func (s *Server) incCounter(name string) {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()
	s.counters[name]++
	s.timeSeries = append(s.timeSeries, TimePoint{
		Time:    time.Now(),
		Counter: name,
		Value:   s.counters[name],
	})
	if len(s.timeSeries) > 1000 {
		s.timeSeries = s.timeSeries[len(s.timeSeries)-1000:]
	}
}

func (s *Server) getCounters() map[string]int64 {
	s.countersMu.RLock()
	defer s.countersMu.RUnlock()
	result := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		result[k] = v
	}
	return result
}

func (s *Server) getTimeSeries() []TimePoint {
	s.countersMu.RLock()
	defer s.countersMu.RUnlock()
	result := make([]TimePoint, len(s.timeSeries))
	copy(result, s.timeSeries)
	return result
}

// New creates a Server, loading and exploring specFile's construction DSL
// up front if one is given (the teacher's own New(specFile) behavior).
func New(specFile string) (*Server, error) {
	s := &Server{
		specFile: specFile,
		counters: make(map[string]int64),
	}
	if specFile != "" {
		content, err := os.ReadFile(specFile)
		if err != nil {
			return nil, fmt.Errorf("reading spec file: %w", err)
		}
		if err := s.loadSource(string(content)); err != nil {
			return nil, fmt.Errorf("loading spec: %w", err)
		}
	}
	return s, nil
}

// loadSource parses and composes a construction DSL body into a System and
// runs and caches its classic exploration, replacing whatever was loaded
// before. Grounded on the teacher's handleSpec POST path
// (reset-then-reload); it also takes the place of the
// teacher's runAndCacheSimulation since this domain explores a state graph
// rather than running a random walk.
func (s *Server) loadSource(source string) error {
	descs, err := mdp.ParseProcesses(source)
	if err != nil {
		return err
	}
	sys, err := mdp.BuildSystem(descs...)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sys = sys
	s.source = source
	s.graph = search.Explore(sys, nil, search.LIFO, nil)
	s.mu.Unlock()
	return nil
}

func (s *Server) snapshot() (*mdp.System, *search.Graph, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sys, s.graph, s.source
}

// ListenAndServe registers every endpoint and starts serving addr.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/spec", s.handleSpec)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/visualize", s.handleVisualize)
	mux.HandleFunc("/api/check", s.handleCheck)
	mux.HandleFunc("/api/reduce", s.handleReduce)
	mux.HandleFunc("/api/pmax", s.handlePmax)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/openapi", s.handleOpenAPI)
	mux.HandleFunc("/api/docs", s.handleDocs)
	mux.HandleFunc("/", s.handleStatic)
	return http.ListenAndServe(addr, mux)
}

// handleSpec handles GET (return the currently loaded source) and POST
// (load a new construction DSL body, composing and exploring it).
func (s *Server) handleSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		_, _, source := s.snapshot()
		json.NewEncoder(w).Encode(map[string]string{"source": source})

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req struct {
			Source string `json:"source"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.loadSource(req.Source); err != nil {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   err.Error(),
				"source":  req.Source,
			})
			return
		}
		sys, graph, _ := s.snapshot()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"system":  sys.Name,
			"states":  graph.ReachableCount(),
		})
		s.incCounter("spec_loads")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// buildEngine asserts the currently cached graph's states and transitions
// into a fresh reachability.Engine, the same fact-loading sequence
// pkg/solver.Solve uses, for handleQuery's free-form CTL evaluation.
func buildEngine(sys *mdp.System, graph *search.Graph, goal *mdp.State) (*reachability.Engine, error) {
	engine, err := reachability.New()
	if err != nil {
		return nil, err
	}
	keys := graph.SortedKeys()
	for _, k := range keys {
		if err := engine.AssertState(k); err != nil {
			return nil, err
		}
	}
	for _, k := range keys {
		for action, branches := range graph.Edges[k] {
			for _, br := range branches {
				if err := engine.AssertTransition(k, action, br.State.Key()); err != nil {
					return nil, err
				}
			}
		}
	}
	if goal != nil {
		var goalKeys []string
		for _, k := range keys {
			if graph.States[k].IsGoal(*goal) {
				goalKeys = append(goalKeys, k)
			}
		}
		if err := engine.SetGoal(goalKeys); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// handleQuery evaluates an arbitrary CTL formula (the ctl_sat term syntax
// pkg/reachability.Engine.Query accepts) at a state, optionally marking a
// partial goal state's matches as the `goal` atomic proposition first.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	sys, graph, _ := s.snapshot()
	if sys == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "no system loaded"})
		return
	}

	var req struct {
		State   string   `json:"state"`
		Formula string   `json:"formula"`
		Goal    []string `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.State == "" {
		req.State = graph.Init.Key()
	}

	var goal *mdp.State
	if len(req.Goal) > 0 {
		g := mdp.NewState(req.Goal, nil)
		goal = &g
	}

	engine, err := buildEngine(sys, graph, goal)
	if err != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	ok, err := engine.Query(ctx, req.State, req.Formula)
	if err != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "result": ok})
	s.incCounter("queries")
}

// handleVisualize returns the cached graph's nodes and edges for the
// browser client's own layout, in place of the teacher's dot/state
// machine/sequence/pie/line chart extraction (dropped with /api/visualize's
// `type` sub-modes; see DESIGN.md).
func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	sys, graph, _ := s.snapshot()
	if sys == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "no system loaded"})
		return
	}
	nodes, edges := render.NodesAndEdges(sys, graph)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"nodes":   nodes,
		"edges":   edges,
	})
	s.incCounter("visualizations")
}

// handleCheck runs R1/R2 validation over the cached graph.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	sys, graph, _ := s.snapshot()
	if sys == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "no system loaded"})
		return
	}
	valid, violations := validate.Valid(sys, graph)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"valid":      valid,
		"violations": violations,
	})
	s.incCounter("checks")
}

var reduceSelectors = map[string]search.Selector{
	"conflicting": selector.ConflictingTransitions,
	"overman":     selector.Overman,
	"stubborn":    selector.StubbornSets,
}

// handleReduce re-explores the loaded system under a named partial-order
// reduction algorithm and reports its state count next to the classic
// (unreduced) count already cached from handleSpec, the teacher's own
// classic-vs-reduced simulation comparison re-themed around exploration
// instead of a random walk.
func (s *Server) handleReduce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	sys, graph, _ := s.snapshot()
	if sys == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "no system loaded"})
		return
	}

	var req struct {
		Selector string `json:"selector"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	if req.Selector == "" {
		req.Selector = "conflicting"
	}
	sel, ok := reduceSelectors[req.Selector]
	if !ok {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   fmt.Sprintf("unknown selector %q (want conflicting, overman or stubborn)", req.Selector),
		})
		return
	}

	reduced := search.Explore(sys, nil, search.LIFO, sel)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":       true,
		"selector":      req.Selector,
		"classicStates": graph.ReachableCount(),
		"reducedStates": reduced.ReachableCount(),
	})
	s.incCounter("reductions")
}

// handlePmax solves maximum reachability probability to a goal described
// by repeated `?goal=` location-label query parameters, reporting the
// value at the system's initial state.
func (s *Server) handlePmax(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	sys, graph, _ := s.snapshot()
	if sys == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "no system loaded"})
		return
	}

	locs := r.URL.Query()["goal"]
	if len(locs) == 0 {
		http.Error(w, "missing ?goal= location label(s)", http.StatusBadRequest)
		return
	}
	goal := mdp.NewState(locs, nil)

	result, err := solver.Solve(sys, graph, goal)
	if err != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"goal":    locs,
		"pmax":    result.At(graph.Init),
	})
	s.incCounter("pmax_solves")
}

// handleReset clears the loaded system, reloading specFile if one was
// given at construction.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	s.mu.Lock()
	s.sys = nil
	s.graph = nil
	s.source = ""
	specFile := s.specFile
	s.mu.Unlock()

	if specFile != "" {
		if content, err := os.ReadFile(specFile); err == nil {
			s.loadSource(string(content))
		}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"counters":   s.getCounters(),
		"timeSeries": s.getTimeSeries(),
	})
}

// handleOpenAPI returns a minimal, hand-authored OpenAPI 3.0 document
// describing this driver's own endpoints, in place of the teacher's
// Prolog-sourced api_info/api_endpoint query (there is no equivalent fact
// base in this domain; see DESIGN.md).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]string{
			"title":   "mdptools",
			"version": "1.0.0",
		},
		"paths": map[string]interface{}{
			"/api/spec":      map[string]string{"get": "return loaded DSL source", "post": "load and explore a new system"},
			"/api/query":     map[string]string{"post": "evaluate a CTL formula at a state"},
			"/api/visualize": map[string]string{"get": "return graph nodes and edges"},
			"/api/check":     map[string]string{"post": "run R1/R2 validation"},
			"/api/reduce":    map[string]string{"post": "re-explore under a partial-order reduction selector"},
			"/api/pmax":      map[string]string{"get": "solve maximum reachability probability to a goal"},
			"/api/reset":     map[string]string{"post": "clear the loaded system"},
			"/api/metrics":   map[string]string{"get": "request counters and time series"},
		},
	})
}

// handleDocs returns a short JSON description of the loaded system (name,
// process names, state count and source), in place of the teacher's Prolog `doc/2` fact query.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	sys, graph, source := s.snapshot()
	if sys == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "no system loaded"})
		return
	}
	processNames := make([]string, 0, len(sys.Processes))
	for _, p := range sys.Processes {
		processNames = append(processNames, p.Name)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"system":    sys.Name,
		"processes": processNames,
		"states":    graph.ReachableCount(),
		"source":    source,
	})
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}
	content, err := staticFiles.ReadFile("static" + path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch {
	case strings.HasSuffix(path, ".html"):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case strings.HasSuffix(path, ".css"):
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	case strings.HasSuffix(path, ".js"):
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	case strings.HasSuffix(path, ".svg"):
		w.Header().Set("Content-Type", "image/svg+xml")
	}
	w.Write(content)
}
