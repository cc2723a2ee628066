package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"kernelcheck/internal/campaign"
	"kernelcheck/internal/config"
	"kernelcheck/internal/generator"
	"kernelcheck/internal/invoker"
	"kernelcheck/internal/kernel"
	"kernelcheck/internal/logging"
	"kernelcheck/internal/tactile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runParallel bool
	runProgress bool
	runTrials   int
	runMaxN     int
	runSmallN   int
	runEmulator string
	runUMulExe  string
	runDotExe   string
	runTimeout  time.Duration
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [kind...]",
		Short: "Run test campaigns against the kernel executables",
		Long: `Runs one campaign per kernel kind (default: umul then dot).

Every trial generates a random input, runs the kernel on it and compares the
result with the oracle. The first failure stops everything and is printed
with the full input. Re-run with the printed seed to reproduce it.

Examples:
  kcheck run
  kcheck run dot --trials 200 --seed 42
  kcheck run --emulator "" --umul ./build/umul-native umul`,
		RunE: runCampaigns,
	}

	cmd.Flags().BoolVar(&runParallel, "parallel", false, "Run the campaigns of different kernels concurrently")
	cmd.Flags().BoolVar(&runProgress, "progress", false, "Print a line per trial")
	cmd.Flags().IntVar(&runTrials, "trials", 0, "Trials per campaign (dot keeps half of them small)")
	cmd.Flags().IntVar(&runMaxN, "max-n", 0, "Largest dot length in the general phase")
	cmd.Flags().IntVar(&runSmallN, "small-n", 0, "Dot length in the small phase")
	cmd.Flags().StringVar(&runEmulator, "emulator", "", "Emulator binary (empty runs kernels natively)")
	cmd.Flags().StringVar(&runUMulExe, "umul", "", "umul kernel executable")
	cmd.Flags().StringVar(&runDotExe, "dot", "", "dot kernel executable")
	cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-invocation timeout (0 waits forever)")

	return cmd
}

// applyRunFlags layers explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("trials") {
		c.SetTrials(runTrials)
	}
	if flags.Changed("max-n") {
		c.Kernels.Dot.MaxN = runMaxN
	}
	if flags.Changed("small-n") {
		c.Kernels.Dot.SmallN = runSmallN
	}
	if flags.Changed("emulator") {
		c.Emulator.Binary = runEmulator
	}
	if flags.Changed("umul") {
		c.Kernels.UMul.Executable = runUMulExe
	}
	if flags.Changed("dot") {
		c.Kernels.Dot.Executable = runDotExe
	}
	if flags.Changed("timeout") {
		c.Execution.Timeout = runTimeout.String()
	}
}

// parseKinds resolves kind arguments, defaulting to every kernel.
func parseKinds(args []string) ([]kernel.Kind, error) {
	if len(args) == 0 {
		return kernel.AllKinds, nil
	}
	kinds := make([]kernel.Kind, 0, len(args))
	seen := make(map[kernel.Kind]bool)
	for _, arg := range args {
		kind, err := kernel.ParseKind(arg)
		if err != nil {
			return nil, err
		}
		if !seen[kind] {
			seen[kind] = true
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// resolveSeed returns s, or a time-derived seed when s is zero.
func resolveSeed(s uint64) uint64 {
	if s != 0 {
		return s
	}
	return uint64(time.Now().UnixNano())
}

// newKernelInvoker wires a config target to a direct executor whose audit
// trail goes to the tactile log.
func newKernelInvoker(c *config.Config, target invoker.Target) (*invoker.Invoker, error) {
	executor := tactile.NewDirectExecutorWithConfig(c.Execution.ExecutorConfig())
	executor.SetAuditCallback(func(ev tactile.AuditEvent) {
		fields := []zap.Field{
			zap.String("event", string(ev.Type)),
			zap.String("request_id", ev.Command.RequestID),
		}
		if ev.Result != nil {
			fields = append(fields, zap.Int("exit_code", ev.Result.ExitCode), zap.Bool("killed", ev.Result.Killed))
		}
		logging.Get(logging.CategoryTactile).Debug("audit", fields...)
	})
	return invoker.New(target, invoker.WithExecutor(executor), invoker.WithTimeout(c.GetTimeout()))
}

func runCampaigns(cmd *cobra.Command, args []string) error {
	kinds, err := parseKinds(args)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	if err := cfg.Values.Validate(); err != nil {
		return err
	}
	if err := cfg.Execution.Validate(); err != nil {
		return err
	}
	for _, kind := range kinds {
		if err := cfg.ValidateKernel(kind); err != nil {
			return err
		}
	}

	runSeed := resolveSeed(cfg.Seed)
	logging.Boot("campaign seed %d", runSeed)
	out := &syncWriter{w: cmd.OutOrStdout()}
	fmt.Fprintf(out, "%s seed=%d kinds=%v\n", titleStyle.Render("kcheck"), runSeed, kinds)

	drivers := make([]*campaign.Driver, 0, len(kinds))
	for _, kind := range kinds {
		plan, err := cfg.Plan(kind)
		if err != nil {
			return err
		}
		target, err := cfg.Target(kind)
		if err != nil {
			return err
		}
		gen, err := generator.New(runSeed, cfg.Values)
		if err != nil {
			return err
		}
		inv, err := newKernelInvoker(cfg, target)
		if err != nil {
			return err
		}

		var opts []campaign.DriverOption
		if runProgress {
			opts = append(opts, campaign.WithObserver(func(ev campaign.TrialEvent) {
				mark := passStyle.Render("ok")
				if ev.Err != nil {
					mark = failStyle.Render("FAIL")
				}
				fmt.Fprintf(out, "  %s %s trial %d/%d %s %s\n", mark, ev.Kind, ev.Trial, plan.Trials, ev.Phase,
					dimStyle.Render(ev.Duration.Round(time.Millisecond).String()))
			}))
		}

		d, err := campaign.NewDriver(plan, gen, inv, opts...)
		if err != nil {
			return err
		}
		drivers = append(drivers, d)
	}

	summaries, runErr := campaign.RunAll(cmd.Context(), drivers, runParallel)
	renderSummary(out, summaries)
	if runErr != nil {
		renderFailure(out, runErr)
		logger.Error("run failed", zap.Uint64("seed", runSeed), zap.Error(runErr))
		return &exitError{code: 1}
	}
	return nil
}

// syncWriter serializes progress lines from concurrent campaigns.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
