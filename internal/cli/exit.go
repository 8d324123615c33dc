package cli

import (
	"errors"

	"github.com/GabrielNunesIT/logchurn/internal/ledger"
	"github.com/GabrielNunesIT/logchurn/internal/model"
)

// Process exit codes.
const (
	ExitFailure   = 1
	ExitViolation = 2
)

// ExitCode maps an error returned by Execute to the process exit code.
func ExitCode(err error) int {
	if ledger.IsViolation(err) {
		return ExitViolation
	}
	return ExitFailure
}

// Describe renders err prefixed with its failure class.
func Describe(err error) string {
	switch {
	case ledger.IsViolation(err):
		return "oracle violation: " + err.Error()
	case errors.Is(err, model.ErrEnvironment):
		return "environment failure: " + err.Error()
	default:
		return "error: " + err.Error()
	}
}
