package command

import "errors"

// ErrSyntax marks a guard/update parse failure.
var ErrSyntax = errors.New("command: syntax error")

// ErrConflictingUpdate marks two updates assigning different values to the
// same variable when merged during composition.
var ErrConflictingUpdate = errors.New("command: conflicting update")
