// Package experiment is the scale-sweep driver behind `mdptools
// experiment`: build increasingly large systems, explore each, and record
// how long exploration took. Grounded on `run_experiment.py`'s
// `ThreadPoolExecutor`-driven sweep, ported to `golang.org/x/sync/errgroup`
// for the bounded worker pool (a turducken-adjacent pack dependency, not
// used by the teacher itself but carried by the broader example pack) and
// a single `sync.Mutex`-guarded CSV writer in place of the Python driver's
// `_write_lock`.
package experiment

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rfielding/mdptools/pkg/mdp"
	"github.com/rfielding/mdptools/pkg/search"
)

// Generator builds the system to explore at a given scale parameter n,
// mirroring `run_experiment.py`'s `generate_system(n)`.
type Generator func(n int) (*mdp.System, error)

// Config bounds the sweep: scales range over [From, To] stepping by Step,
// with at most Workers explorations running concurrently.
type Config struct {
	From, To, Step int
	Workers        int
}

// Row is one CSV record: spec.md §6's column set for the experiment CSV
// (`test_system,scale,states,gen_time`).
type Row struct {
	TestSystem string
	Scale      int
	States     int
	GenTime    float64 // seconds, 3-decimal rounded like time_execution's `round(seconds, 3)`
}

// Run explores name at every scale in cfg's range, writing one CSV row per
// scale to out. Exploration runs across cfg.Workers goroutines via
// errgroup; if any generator or exploration fails the first error cancels
// the remaining work and is returned.
func Run(ctx context.Context, cfg Config, testSystem string, gen Generator, out io.Writer) error {
	scales := scaleRange(cfg)
	rows := make([]Row, len(scales))

	g, gctx := errgroup.WithContext(ctx)
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, n := range scales {
		i, n := i, n
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			sys, err := gen(n)
			if err != nil {
				return fmt.Errorf("experiment: generating scale %d: %w", n, err)
			}
			start := time.Now()
			graph := search.Explore(sys, nil, search.LIFO, nil)
			elapsed := time.Since(start).Seconds()
			rows[i] = Row{
				TestSystem: testSystem,
				Scale:      n,
				States:     graph.ReachableCount(),
				GenTime:    round3(elapsed),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return writeCSV(out, rows)
}

func scaleRange(cfg Config) []int {
	step := cfg.Step
	if step <= 0 {
		step = 1
	}
	var out []int
	for n := cfg.From; n <= cfg.To; n += step {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// csvMu serializes writes the way run_experiment.py's `_write_lock` guards
// `write_result`; Run's own rows slice write is already data-race free
// (each goroutine owns a distinct index), but a Writer shared by several
// concurrent Run calls still needs serialized Write calls.
var csvMu sync.Mutex

func writeCSV(out io.Writer, rows []Row) error {
	csvMu.Lock()
	defer csvMu.Unlock()

	w := csv.NewWriter(out)
	if err := w.Write([]string{"test_system", "scale", "states", "gen_time"}); err != nil {
		return fmt.Errorf("experiment: writing CSV header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.TestSystem,
			fmt.Sprintf("%d", r.Scale),
			fmt.Sprintf("%d", r.States),
			fmt.Sprintf("%.3f", r.GenTime),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("experiment: writing CSV row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func round3(seconds float64) float64 {
	const scale = 1000.0
	return float64(int(seconds*scale+0.5)) / scale
}
