// Package fault defines the structured error taxonomy shared by the
// remindctl runner, the reference resolver, and the orchestrator. Every
// failure that reaches the tool surface carries a machine-readable kind,
// a human-readable message, and (for ambiguity) the candidate set.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindAmbiguous         Kind = "ambiguous"
	KindTimeout           Kind = "timeout"
	KindProcessError      Kind = "process_error"
	KindParseError        Kind = "parse_error"
	KindBinaryUnavailable Kind = "binary_unavailable"
	KindUnauthorized      Kind = "unauthorized"
)

type Error struct {
	Kind    Kind
	Message string

	// Candidates is populated only for KindAmbiguous and always holds the
	// full set of matching canonical identifiers.
	Candidates []string

	// ExitCode is populated only for KindProcessError.
	ExitCode int

	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Kind == KindAmbiguous && len(e.Candidates) > 0 {
		return fmt.Sprintf("%s: %s (candidates: %s)", e.Kind, e.Message, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Ambiguous(message string, candidates []string) *Error {
	return &Error{Kind: KindAmbiguous, Message: message, Candidates: candidates}
}

func Timeout(message string) *Error {
	return &Error{Kind: KindTimeout, Message: message}
}

func Process(exitCode int, stderr string) *Error {
	msg := fmt.Sprintf("command exited with code %d", exitCode)
	if stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, stderr)
	}
	return &Error{Kind: KindProcessError, Message: msg, ExitCode: exitCode}
}

func Parse(err error) *Error {
	return &Error{Kind: KindParseError, Message: "command output did not match expected schema", Err: err}
}

func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindBinaryUnavailable, Message: message, Err: err}
}

// KindOf extracts the fault kind from any error in the chain. Errors
// without a fault kind report as process errors so callers always have a
// classified outcome.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindProcessError
}

// CandidatesOf returns the ambiguity candidate set carried by err, if any.
func CandidatesOf(err error) []string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Candidates
	}
	return nil
}

// IsUpstream reports whether err was produced by the external tool layer
// rather than by input validation or resolution.
func IsUpstream(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindProcessError, KindParseError, KindBinaryUnavailable:
		return true
	default:
		return false
	}
}
