// Package tactile is the process layer of the harness. It runs one child
// process to completion with piped stdin, separately captured stdout and
// stderr, and a precise exit status. It knows nothing about kernels or
// protocols; the invoker builds commands and interprets results.
//
// Design Principles:
//   - Blocking: Execute returns only after the child has exited.
//   - Unbounded by default: a zero timeout waits forever, cancellation
//     comes only from the caller's context.
//   - Whole-tree kill: on cancel the child's process group is killed, so an
//     emulator and its guest go down together.
//   - Capped capture: output beyond the limit is discarded and flagged.
package tactile

import (
	"strings"
)

// Command represents a process to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "qemu-riscv32").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	// If empty, uses the executor's default working directory.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to set (in KEY=VALUE format), appended to the
	// executor's base environment.
	Environment []string `json:"environment,omitempty"`

	// Stdin is written to the process's standard input, which is then closed.
	Stdin []byte `json:"stdin,omitempty"`

	// TimeoutMs bounds the run in milliseconds. Zero uses the executor
	// default; a zero default means no timeout.
	TimeoutMs int64 `json:"timeout_ms,omitempty"`

	// MaxOutputBytes caps each of stdout and stderr. Zero uses the
	// executor default.
	MaxOutputBytes int64 `json:"max_output_bytes,omitempty"`

	// RequestID uniquely identifies this execution (for audit).
	RequestID string `json:"request_id,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult is the outcome of one execution.
type ExecutionResult struct {
	// Success indicates the process was started and waited for.
	// A process that exits non-zero still has Success=true.
	// Success=false means the process could not be run at all.
	Success bool `json:"success"`

	// ExitCode is the process exit status (-1 if not available).
	ExitCode int `json:"exit_code"`

	// Stdout is the captured standard output.
	Stdout string `json:"stdout"`

	// Stderr is the captured standard error.
	Stderr string `json:"stderr"`

	// Killed indicates the process was forcibly terminated.
	Killed bool `json:"killed"`

	// KillReason explains why the process was killed.
	KillReason string `json:"kill_reason,omitempty"`

	// StdoutTruncated and StderrTruncated flag output beyond the cap.
	StdoutTruncated bool `json:"stdout_truncated,omitempty"`
	StderrTruncated bool `json:"stderr_truncated,omitempty"`

	// TruncatedBytes is how many bytes were discarded across both streams.
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	// Error contains any infrastructure-level error message.
	Error string `json:"error,omitempty"`

	// Command is a copy of the command that was executed (for audit).
	Command *Command `json:"command,omitempty"`
}

// IsError returns true if the execution failed (infrastructure error).
func (r *ExecutionResult) IsError() bool {
	return !r.Success || r.Error != ""
}

// IsNonZeroExit returns true if the command ran but returned non-zero.
func (r *ExecutionResult) IsNonZeroExit() bool {
	return r.Success && r.ExitCode != 0
}

// Truncated reports whether either stream was cut off.
func (r *ExecutionResult) Truncated() bool {
	return r.StdoutTruncated || r.StderrTruncated
}

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventKilled   AuditEventType = "killed"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent represents one step in the life of an execution.
type AuditEvent struct {
	Type         AuditEventType   `json:"type"`
	Command      Command          `json:"command"`
	Result       *ExecutionResult `json:"result,omitempty"`
	ExecutorName string           `json:"executor_name"`
}

// ExecutorConfig is the configuration for creating executors.
type ExecutorConfig struct {
	// DefaultWorkingDir is used when Command.WorkingDirectory is empty.
	DefaultWorkingDir string `json:"default_working_dir"`

	// DefaultTimeoutMs is used when Command.TimeoutMs is zero.
	// Zero means wait for the process indefinitely.
	DefaultTimeoutMs int64 `json:"default_timeout_ms"`

	// MaxOutputBytes caps output capture per stream.
	MaxOutputBytes int64 `json:"max_output_bytes"`

	// AllowedEnvironment lists environment variables to pass through.
	// Empty passes the whole parent environment.
	AllowedEnvironment []string `json:"allowed_environment,omitempty"`
}

// DefaultMaxOutputBytes is the default per-stream capture cap (1MB). A
// kernel prints one integer, so anything near this is already a failure.
const DefaultMaxOutputBytes = 1 << 20

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultWorkingDir: "",
		DefaultTimeoutMs:  0,
		MaxOutputBytes:    DefaultMaxOutputBytes,
	}
}

// Merge fills command fields left at zero from the config.
func (c ExecutorConfig) Merge(cmd Command) Command {
	result := cmd
	if result.WorkingDirectory == "" {
		result.WorkingDirectory = c.DefaultWorkingDir
	}
	if result.TimeoutMs == 0 {
		result.TimeoutMs = c.DefaultTimeoutMs
	}
	if result.MaxOutputBytes == 0 {
		result.MaxOutputBytes = c.MaxOutputBytes
	}
	if result.MaxOutputBytes <= 0 {
		result.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return result
}
