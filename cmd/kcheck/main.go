// Command kcheck is a randomized differential-testing harness for
// low-level integer kernels. It feeds random inputs to kernel executables
// (normally RISC-V binaries under qemu-riscv32), compares every result with
// a 32-bit reference oracle, and stops at the first discrepancy.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"kernelcheck/internal/config"
	"kernelcheck/internal/kernel"
	"kernelcheck/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFile    string
	seed       uint64

	// Effective configuration after file, environment and flags.
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// exitError carries a process exit status. A nil err means the failure has
// already been reported to the user.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// newRootCmd builds the command tree. Flag variables are rebound to their
// defaults on every call.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kcheck",
		Short: "Differential tester for emulated integer kernels",
		Long: `kcheck checks kernel executables against a reference oracle.

Each campaign generates random inputs, runs the kernel once per input under
the emulator, and compares the printed result with the exact 32-bit
wraparound value. The first failure aborts the campaign and is reported
with the full input in hex.

Kernels:
  umul  x * y mod 2^32
  dot   sum(A[i] * B[i]) mod 2^32`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// The oracle stands in for a kernel; anything it writes to
			// stderr would count as diagnostic output.
			if cmd.Name() == "oracle" {
				logger = zap.NewNop()
				return nil
			}

			if err := loadEnvFile(cmd); err != nil {
				return err
			}

			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}

			logger, err = logging.Initialize(cfg.Logging.Options())
			if err != nil {
				return &kernel.ConfigurationError{Param: "logging", Reason: err.Error()}
			}
			logging.BootDebug("config loaded from %s", configPath)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Generator seed (0 picks a fresh one)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newOracleCmd())
	rootCmd.AddCommand(newSampleCmd())
	rootCmd.AddCommand(newSelftestCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadEnvFile applies KEY=VALUE pairs from the env file without overriding
// variables already set. The default file may be absent; an explicitly
// requested one may not.
func loadEnvFile(cmd *cobra.Command) error {
	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// run executes the CLI and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintln(stderr, "kcheck:", exitErr.err)
		}
		return exitErr.code
	}

	fmt.Fprintln(stderr, "kcheck:", err)
	if kernel.Class(err) == "configuration" {
		return 2
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	logging.Sync()
	os.Exit(code)
}
