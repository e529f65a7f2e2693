// Package mdplog is the diagnostic sink shared by the search engine, the
// POR selectors and the solver. It exists because the reference
// implementation routes every exploration/selection decision through a
// logger that can be silenced with a single process-wide toggle
// (`utils/highlight.py`'s `use_colors`, `utils/utils.py`'s
// `log_info_enabled`); logrus fields stand in for the original's ANSI
// highlighting.
package mdplog

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

var silent int32

// SetSilent is the pure, process-wide configuration toggle spec.md §5
// calls out: "silencing it is a pure configuration toggle with
// process-wide scope."
func SetSilent(s bool) {
	if s {
		atomic.StoreInt32(&silent, 1)
	} else {
		atomic.StoreInt32(&silent, 0)
	}
}

func enabled() bool {
	return atomic.LoadInt32(&silent) == 0
}

// Logger returns the shared logrus logger so callers needing a non-standard
// level or output can configure it directly (e.g. the CLI wiring log output
// to a file).
func Logger() *logrus.Logger {
	return log
}

// SearchStarted logs the beginning of an Explore run.
func SearchStarted(selectorName string, order string) {
	if !enabled() {
		return
	}
	log.WithFields(logrus.Fields{"selector": selectorName, "order": order}).Info("search started")
}

// Visit logs a state's first discovery and how many transitions were
// selected for it.
func Visit(state string, depth int, selected, enabled_ int) {
	if !enabled() {
		return
	}
	log.WithFields(logrus.Fields{"state": state, "depth": depth, "selected": selected, "enabled": enabled_}).Info("visit")
}

// Enqueue logs the successor states discovered from a transition.
func Enqueue(states []string) {
	if !enabled() {
		return
	}
	log.WithField("states", states).Info("enqueue")
}

// SelectorAppend logs a transition being added to a POR selector's working
// set, and why.
func SelectorAppend(algorithm, transition, reason string) {
	if !enabled() {
		return
	}
	log.WithFields(logrus.Fields{"algorithm": algorithm, "transition": transition, "reason": reason}).Info("selector append")
}

// SelectorFallback logs the soundness escape hatch firing: a required but
// disabled transition forced the selector back to the full enabled set.
func SelectorFallback(algorithm, transition string) {
	if !enabled() {
		return
	}
	log.WithFields(logrus.Fields{"algorithm": algorithm, "transition": transition}).Warn("selector fallback to enabled(s)")
}

// ValidationViolation logs an R1/R2 violation found during Check.
func ValidationViolation(rule, detail string) {
	if !enabled() {
		return
	}
	log.WithFields(logrus.Fields{"rule": rule}).Warn(detail)
}

// NonConvergence logs the solver failing to converge within its iteration
// budget.
func NonConvergence(iterations int, delta float64) {
	if !enabled() {
		return
	}
	log.WithFields(logrus.Fields{"iterations": iterations, "delta": delta}).Warn("value iteration did not converge")
}
