// Package invoker runs a kernel executable on one problem instance. It
// serializes the instance to the kernel's stdin, launches the executable
// (normally under an emulator) through a tactile.Executor, waits for it to
// exit, and captures everything the process produced. Interpreting that
// capture against the error taxonomy is done by Outcome.Result.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kernelcheck/internal/kernel"
	"kernelcheck/internal/logging"
	"kernelcheck/internal/tactile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Target describes how to launch one kernel.
type Target struct {
	// Emulator runs the kernel executable (e.g. "qemu-riscv32"). Empty runs
	// the executable natively.
	Emulator     string   `yaml:"emulator" json:"emulator"`
	EmulatorArgs []string `yaml:"emulator_args,omitempty" json:"emulator_args,omitempty"`

	// Executable is the kernel program, e.g. "./umul".
	Executable string   `yaml:"executable" json:"executable"`
	Args       []string `yaml:"args,omitempty" json:"args,omitempty"`

	// Env entries (KEY=VALUE) added to the child's environment.
	Env []string `yaml:"env,omitempty" json:"env,omitempty"`

	// WorkDir is the child's working directory. Empty inherits ours.
	WorkDir string `yaml:"workdir,omitempty" json:"workdir,omitempty"`
}

// Argv returns the full command line: emulator, its arguments, the kernel
// executable and its arguments.
func (t Target) Argv() []string {
	var argv []string
	if t.Emulator != "" {
		argv = append(argv, t.Emulator)
		argv = append(argv, t.EmulatorArgs...)
	}
	argv = append(argv, t.Executable)
	return append(argv, t.Args...)
}

// Validate reports a target that cannot possibly be launched.
func (t Target) Validate() error {
	if t.Executable == "" {
		return &kernel.ConfigurationError{Param: "executable", Reason: "kernel executable path is empty"}
	}
	return nil
}

// Outcome is everything observed about one kernel run.
type Outcome struct {
	RequestID  string
	ExitCode   int
	Stdout     string
	Stderr     string
	Killed     bool
	KillReason string
	Truncated  bool
	Duration   time.Duration

	// Err is set when the process could not be started at all.
	Err error
}

// Result classifies the outcome and, if the run was clean, returns the
// parsed primary output. The checks are ordered: an abnormal process is
// reported before any diagnostic output, and diagnostic output before any
// formatting problem, so the most fundamental failure wins.
func (o *Outcome) Result() (uint64, error) {
	switch {
	case o.Err != nil:
		return 0, &kernel.ProcessExecutionError{ExitCode: o.ExitCode, Stderr: o.Stderr, Err: o.Err}
	case o.Killed:
		return 0, &kernel.ProcessExecutionError{ExitCode: o.ExitCode, Stderr: o.Stderr, Killed: true, KillReason: o.KillReason}
	case o.ExitCode != 0:
		return 0, &kernel.ProcessExecutionError{ExitCode: o.ExitCode, Stderr: o.Stderr}
	case o.Stderr != "":
		return 0, &kernel.UnexpectedDiagnosticOutputError{Stderr: o.Stderr, Stdout: o.Stdout}
	case o.Truncated:
		return 0, &kernel.OutputFormatError{Output: o.Stdout, Reason: "output exceeded capture limit"}
	}
	return kernel.ParseResult(o.Stdout)
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithExecutor replaces the default tactile.DirectExecutor.
func WithExecutor(e tactile.Executor) Option {
	return func(iv *Invoker) { iv.executor = e }
}

// WithTimeout bounds each run. Zero, the default, waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(iv *Invoker) { iv.timeout = d }
}

// Invoker launches one kernel target.
type Invoker struct {
	target   Target
	executor tactile.Executor
	timeout  time.Duration
	log      *zap.Logger
}

// New creates an Invoker for target.
func New(target Target, opts ...Option) (*Invoker, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	iv := &Invoker{
		target: target,
		log:    logging.Get(logging.CategoryInvoker),
	}
	for _, opt := range opts {
		opt(iv)
	}
	if iv.executor == nil {
		iv.executor = tactile.NewDirectExecutor()
	}
	if iv.timeout < 0 {
		return nil, &kernel.ConfigurationError{Param: "timeout", Reason: fmt.Sprintf("must not be negative, got %s", iv.timeout)}
	}
	return iv, nil
}

// Target returns the launch description.
func (iv *Invoker) Target() Target { return iv.target }

// Invoke runs the kernel on inst and blocks until the process exits. The
// returned error covers only local failures (the instance cannot be
// encoded, or the executor rejected the command); anything the child did
// is reported in the Outcome.
func (iv *Invoker) Invoke(ctx context.Context, inst kernel.Instance) (*Outcome, error) {
	input, err := kernel.EncodeString(inst)
	if err != nil {
		return nil, fmt.Errorf("encode %s instance: %w", inst.Kind(), err)
	}

	argv := iv.target.Argv()
	cmd := tactile.Command{
		Binary:           argv[0],
		Arguments:        argv[1:],
		WorkingDirectory: iv.target.WorkDir,
		Environment:      iv.target.Env,
		Stdin:            []byte(input),
		TimeoutMs:        iv.timeout.Milliseconds(),
		RequestID:        uuid.NewString(),
	}

	iv.log.Debug("invoking kernel",
		zap.String("request_id", cmd.RequestID),
		zap.String("kind", inst.Kind().String()),
		zap.Strings("argv", argv),
		zap.Int("stdin_bytes", len(cmd.Stdin)))

	start := time.Now()
	res, err := iv.executor.Execute(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", cmd.CommandString(), err)
	}

	out := &Outcome{
		RequestID:  cmd.RequestID,
		ExitCode:   res.ExitCode,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		Killed:     res.Killed,
		KillReason: res.KillReason,
		Truncated:  res.Truncated(),
		Duration:   time.Since(start),
	}
	if !res.Success {
		out.Err = errors.New(res.Error)
	}

	iv.log.Debug("kernel exited",
		zap.String("request_id", out.RequestID),
		zap.Int("exit_code", out.ExitCode),
		zap.Bool("killed", out.Killed),
		zap.Int("stdout_bytes", len(out.Stdout)),
		zap.Int("stderr_bytes", len(out.Stderr)),
		zap.Duration("duration", out.Duration))

	return out, nil
}
