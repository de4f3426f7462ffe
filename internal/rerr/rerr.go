// internal/rerr/rerr.go
package rerr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. User-facing kinds map to exit code 1, internal
// invariant violations to exit code 2 (see ExitCode).
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsortedInput      = errors.New("unsorted input")
	ErrInputTooLarge      = errors.New("input too large")
	ErrWorkspaceExhausted = errors.New("workspace exhausted")

	ErrBoundaryMismatch   = errors.New("boundary mismatch")
	ErrLedgerCorruption   = errors.New("ledger corruption")
	ErrSpaceBoundExceeded = errors.New("space bound exceeded")
)

// Exit codes shared by both subcommands.
const (
	ExitOK       = 0
	ExitUser     = 1
	ExitInternal = 2
)

// Invalidf wraps ErrInvalidInput with formatted context.
func Invalidf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, a...)...)
}

// Internal reports whether err is an internal invariant violation.
func Internal(err error) bool {
	return errors.Is(err, ErrBoundaryMismatch) ||
		errors.Is(err, ErrLedgerCorruption) ||
		errors.Is(err, ErrSpaceBoundExceeded)
}

// ExitCode classifies err per the CLI contract: 0 on nil, 2 for internal
// invariant violations, 1 for everything user-facing.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case Internal(err):
		return ExitInternal
	default:
		return ExitUser
	}
}

// Violate surfaces an internal invariant violation: panic under the
// rosalind_debug build tag, plain error otherwise.
func Violate(err error) error {
	if Debug && err != nil {
		panic(err)
	}
	return err
}

// Hint returns a one-line remediation hint for the error kind, or "".
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrUnsortedInput):
		return "sort the alignment input by coordinate and retry"
	case errors.Is(err, ErrInputTooLarge):
		return "raise max_read_length in the --config tuning file or split the offending read"
	case errors.Is(err, ErrWorkspaceExhausted):
		return "raise the workspace capacity or lower the block size"
	case errors.Is(err, ErrInvalidInput):
		return "check the input file against the expected format"
	case Internal(err):
		return "this is a bug; re-run with the same inputs and report it"
	}
	return ""
}
