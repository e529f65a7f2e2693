package mdp

import "errors"

// ErrNoProcesses is returned by Compose when given zero processes.
var ErrNoProcesses = errors.New("mdp: compose requires at least one process")

// ErrUnknownLabel marks a DSL reference to a location label never declared
// by any transition or the process's init state.
var ErrUnknownLabel = errors.New("mdp: unknown location label")

// ErrDuplicateLabel marks a location label declared by more than one
// process; spec.md §3 requires label uniqueness to be global.
var ErrDuplicateLabel = errors.New("mdp: location label owned by more than one process")
