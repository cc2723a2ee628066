package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"kernelcheck/internal/campaign"
	"kernelcheck/internal/generator"
	"kernelcheck/internal/invoker"
	"kernelcheck/internal/kernel"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its config file.
const DefaultPath = "kcheck.yaml"

// Config holds all kernelcheck configuration.
type Config struct {
	// Seed for case generation. Zero picks a fresh seed per run; the chosen
	// seed is always logged so a failing run can be replayed.
	Seed uint64 `yaml:"seed"`

	// Emulator that runs the kernel executables.
	Emulator EmulatorConfig `yaml:"emulator"`

	// Per-kernel executables and campaign sizes.
	Kernels KernelsConfig `yaml:"kernels"`

	// Values bounds every generated operand.
	Values generator.Range `yaml:"values"`

	// Execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EmulatorConfig configures the user-mode emulator.
type EmulatorConfig struct {
	Binary string   `yaml:"binary" json:"binary"` // empty runs kernels natively
	Args   []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// KernelsConfig holds one entry per kernel kind.
type KernelsConfig struct {
	UMul KernelConfig `yaml:"umul"`
	Dot  KernelConfig `yaml:"dot"`
}

// KernelConfig configures one kernel and its campaign.
type KernelConfig struct {
	Executable string   `yaml:"executable" json:"executable"`
	Args       []string `yaml:"args,omitempty" json:"args,omitempty"`
	Env        []string `yaml:"env,omitempty" json:"env,omitempty"`

	Trials      int `yaml:"trials" json:"trials"`
	SmallTrials int `yaml:"small_trials" json:"small_trials,omitempty"`
	SmallN      int `yaml:"small_n,omitempty" json:"small_n,omitempty"`
	MaxN        int `yaml:"max_n,omitempty" json:"max_n,omitempty"`
}

// DefaultConfig returns the standard setup: both kernels under
// qemu-riscv32 from the current directory, 50 trials each.
func DefaultConfig() *Config {
	umul := campaign.DefaultPlan(kernel.KindUMul)
	dot := campaign.DefaultPlan(kernel.KindDot)

	return &Config{
		Emulator: EmulatorConfig{
			Binary: "qemu-riscv32",
		},

		Kernels: KernelsConfig{
			UMul: KernelConfig{
				Executable: "./umul",
				Trials:     umul.Trials,
			},
			Dot: KernelConfig{
				Executable:  "./dot",
				Trials:      dot.Trials,
				SmallTrials: dot.SmallTrials,
				SmallN:      dot.SmallN,
				MaxN:        dot.MaxN,
			},
		},

		Values: generator.DefaultRange,

		Execution: DefaultExecutionConfig(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if err := cfg.deriveSmallTrials(data); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		// Defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets the environment (or a .env file) steer a run
// without editing the config file.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("KCHECK_EMULATOR"); v != "" {
		c.Emulator.Binary = v
	}
	if v := os.Getenv("KCHECK_UMUL_EXE"); v != "" {
		c.Kernels.UMul.Executable = v
	}
	if v := os.Getenv("KCHECK_DOT_EXE"); v != "" {
		c.Kernels.Dot.Executable = v
	}
	if v := os.Getenv("KCHECK_TIMEOUT"); v != "" {
		c.Execution.Timeout = v
	}
	if v := os.Getenv("KCHECK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("KCHECK_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return &kernel.ConfigurationError{Param: "KCHECK_SEED", Reason: fmt.Sprintf("not an unsigned integer: %q", v)}
		}
		c.Seed = seed
	}
	if v := os.Getenv("KCHECK_TRIALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &kernel.ConfigurationError{Param: "KCHECK_TRIALS", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.SetTrials(n)
	}
	if v := os.Getenv("KCHECK_MAXN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &kernel.ConfigurationError{Param: "KCHECK_MAXN", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.Kernels.Dot.MaxN = n
	}
	return nil
}

// deriveSmallTrials keeps the dot small phase at half of a trial count set
// in the file, unless the file also sets small_trials.
func (c *Config) deriveSmallTrials(data []byte) error {
	var explicit struct {
		Kernels struct {
			Dot struct {
				Trials      *int `yaml:"trials"`
				SmallTrials *int `yaml:"small_trials"`
			} `yaml:"dot"`
		} `yaml:"kernels"`
	}
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	dot := explicit.Kernels.Dot
	if dot.Trials != nil && dot.SmallTrials == nil {
		c.Kernels.Dot.SmallTrials = *dot.Trials / 2
	}
	return nil
}

// SetTrials sets the trial count of every kernel, keeping the dot small
// phase at half the total.
func (c *Config) SetTrials(n int) {
	c.Kernels.UMul.Trials = n
	c.Kernels.Dot.Trials = n
	c.Kernels.Dot.SmallTrials = n / 2
}

// Kernel returns the entry for kind.
func (c *Config) Kernel(kind kernel.Kind) (*KernelConfig, error) {
	switch kind {
	case kernel.KindUMul:
		return &c.Kernels.UMul, nil
	case kernel.KindDot:
		return &c.Kernels.Dot, nil
	}
	return nil, &kernel.ConfigurationError{Param: "kind", Reason: fmt.Sprintf("unknown kernel kind %q", kind)}
}

// Plan returns the campaign plan for kind.
func (c *Config) Plan(kind kernel.Kind) (campaign.Plan, error) {
	k, err := c.Kernel(kind)
	if err != nil {
		return campaign.Plan{}, err
	}
	return campaign.Plan{
		Kind:        kind,
		Trials:      k.Trials,
		SmallTrials: k.SmallTrials,
		SmallN:      k.SmallN,
		MaxN:        k.MaxN,
	}, nil
}

// Target returns how to launch the kernel for kind.
func (c *Config) Target(kind kernel.Kind) (invoker.Target, error) {
	k, err := c.Kernel(kind)
	if err != nil {
		return invoker.Target{}, err
	}
	return invoker.Target{
		Emulator:     c.Emulator.Binary,
		EmulatorArgs: c.Emulator.Args,
		Executable:   k.Executable,
		Args:         k.Args,
		Env:          k.Env,
		WorkDir:      c.Execution.WorkingDirectory,
	}, nil
}

// GetTimeout returns the per-invocation timeout. Zero means none.
func (c *Config) GetTimeout() time.Duration {
	d, _ := c.Execution.timeout()
	return d
}

// Validate checks everything a campaign needs before any process runs.
func (c *Config) Validate() error {
	if err := c.Values.Validate(); err != nil {
		return err
	}
	for _, kind := range kernel.AllKinds {
		if err := c.ValidateKernel(kind); err != nil {
			return err
		}
	}
	if err := c.Execution.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// ValidateKernel checks the settings of a single kernel.
func (c *Config) ValidateKernel(kind kernel.Kind) error {
	target, err := c.Target(kind)
	if err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("kernels.%s: %w", kind, err)
	}
	plan, err := c.Plan(kind)
	if err != nil {
		return err
	}
	if err := plan.Validate(c.Values); err != nil {
		return fmt.Errorf("kernels.%s: %w", kind, err)
	}
	return nil
}
