package config

import (
	"fmt"
	"time"

	"kernelcheck/internal/kernel"
	"kernelcheck/internal/tactile"
)

// ExecutionConfig configures how kernel processes are run.
type ExecutionConfig struct {
	// Timeout per kernel invocation, as a Go duration. Empty or "0" waits
	// for the process indefinitely.
	Timeout string `yaml:"timeout" json:"timeout,omitempty"`

	// Working directory for kernel processes
	WorkingDirectory string `yaml:"working_directory" json:"working_directory,omitempty"`

	// MaxOutputBytes caps captured stdout and stderr per stream.
	MaxOutputBytes int64 `yaml:"max_output_bytes" json:"max_output_bytes,omitempty"`

	// Environment variables to pass. Empty passes the whole environment,
	// which the emulator usually needs.
	AllowedEnvVars []string `yaml:"allowed_env_vars,omitempty" json:"allowed_env_vars,omitempty"`
}

// DefaultExecutionConfig returns the baseline: no timeout, 1MB capture.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		MaxOutputBytes: tactile.DefaultMaxOutputBytes,
	}
}

func (e ExecutionConfig) timeout() (time.Duration, error) {
	if e.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// Validate checks the execution settings.
func (e ExecutionConfig) Validate() error {
	d, err := e.timeout()
	if err != nil {
		return &kernel.ConfigurationError{Param: "execution.timeout", Reason: err.Error()}
	}
	if d < 0 {
		return &kernel.ConfigurationError{Param: "execution.timeout", Reason: fmt.Sprintf("must not be negative, got %s", d)}
	}
	if e.MaxOutputBytes < 0 {
		return &kernel.ConfigurationError{Param: "execution.max_output_bytes", Reason: fmt.Sprintf("must not be negative, got %d", e.MaxOutputBytes)}
	}
	return nil
}

// ExecutorConfig converts the settings for the tactile layer.
func (e ExecutionConfig) ExecutorConfig() tactile.ExecutorConfig {
	d, _ := e.timeout()
	return tactile.ExecutorConfig{
		DefaultWorkingDir:  e.WorkingDirectory,
		DefaultTimeoutMs:   d.Milliseconds(),
		MaxOutputBytes:     e.MaxOutputBytes,
		AllowedEnvironment: e.AllowedEnvVars,
	}
}
