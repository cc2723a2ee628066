package kernel

import (
	"errors"
	"fmt"
	"strings"
)

// The harness error taxonomy. Every one of these is fatal to the trial and
// to the campaign; nothing is retried.

// ConfigurationError reports invalid generation or campaign parameters.
// It is always raised before any kernel process is spawned.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Param, e.Reason)
}

// ProcessExecutionError reports a kernel process that did not terminate
// cleanly: nonzero exit, killed, or never started.
type ProcessExecutionError struct {
	ExitCode   int
	Stderr     string
	Killed     bool
	KillReason string
	Err        error
}

func (e *ProcessExecutionError) Error() string {
	var sb strings.Builder
	switch {
	case e.Killed:
		fmt.Fprintf(&sb, "kernel process killed: %s", e.KillReason)
	case e.Err != nil:
		fmt.Fprintf(&sb, "kernel process failed to run: %v", e.Err)
	default:
		fmt.Fprintf(&sb, "kernel process exited with status %d", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&sb, "; stderr: %s", s)
	}
	return sb.String()
}

func (e *ProcessExecutionError) Unwrap() error { return e.Err }

// UnexpectedDiagnosticOutputError reports a kernel that wrote to its
// diagnostic stream. A clean run never does, so this fails the trial even
// when the exit status is zero and the result is correct.
type UnexpectedDiagnosticOutputError struct {
	Stderr string
	Stdout string
}

func (e *UnexpectedDiagnosticOutputError) Error() string {
	return fmt.Sprintf("kernel wrote to stderr: %q", strings.TrimSpace(e.Stderr))
}

// OutputFormatError reports primary output that is not one decimal integer.
type OutputFormatError struct {
	Output string
	Reason string
	Err    error
}

func (e *OutputFormatError) Error() string {
	return fmt.Sprintf("malformed kernel output (%s): %q", e.Reason, e.Output)
}

func (e *OutputFormatError) Unwrap() error { return e.Err }

// MismatchError reports a parsed result that differs from the oracle.
type MismatchError struct {
	Report MismatchReport
}

func (e *MismatchError) Error() string {
	return "result mismatch\n" + e.Report.String()
}

// Class names the taxonomy bucket of err, or "" if err is not a harness
// failure. It sees through wrapping.
func Class(err error) string {
	var (
		cfgErr  *ConfigurationError
		procErr *ProcessExecutionError
		diagErr *UnexpectedDiagnosticOutputError
		fmtErr  *OutputFormatError
		misErr  *MismatchError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &procErr):
		return "process"
	case errors.As(err, &diagErr):
		return "diagnostic"
	case errors.As(err, &fmtErr):
		return "format"
	case errors.As(err, &misErr):
		return "mismatch"
	}
	return ""
}
