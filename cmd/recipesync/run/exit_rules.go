package run

import (
	"errors"

	"github.com/GjhanAi/albion-recipes/internal/recipe"
	"github.com/GjhanAi/albion-recipes/internal/source"
)

const (
	exitCodeSuccess        = 0
	exitCodeExecErr        = 1
	exitCodeDiscovery      = 2
	exitCodeFetch          = 3
	exitCodeInvalidPayload = 4
)

type runExitError struct {
	code int
	err  error
}

func (e runExitError) Error() string { return e.err.Error() }
func (e runExitError) ExitCode() int { return e.code }
func (e runExitError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitCodeSuccess
	case errors.Is(err, source.ErrNotFound):
		return exitCodeDiscovery
	case errors.Is(err, source.ErrFetch):
		return exitCodeFetch
	case errors.Is(err, recipe.ErrInvalidPayload):
		return exitCodeInvalidPayload
	default:
		return exitCodeExecErr
	}
}

// evaluateRunExit attaches the process exit code to a pipeline error.
func evaluateRunExit(err error) error {
	if err == nil {
		return nil
	}
	return runExitError{code: exitCodeFor(err), err: err}
}
