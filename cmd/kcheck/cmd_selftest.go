package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"kernelcheck/internal/campaign"
	"kernelcheck/internal/generator"
	"kernelcheck/internal/invoker"
	"kernelcheck/internal/kernel"
	"kernelcheck/internal/logging"
	"kernelcheck/internal/refkernel"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var selftestTrials int

// selfExecutable and selfEnv locate this binary for re-execution as
// "kcheck oracle". Tests point them at the test binary.
var (
	selfExecutable = os.Executable
	selfEnv        []string
)

func newSelftestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Check that the harness detects every class of kernel failure",
		Long: `Runs short campaigns against "kcheck oracle" itself, once per kernel and
injected fault, natively (no emulator). A correct reference must pass and
every fault must be reported with its own error class:

  exit        process failure
  stderr      unexpected diagnostic output
  garbage     malformed output
  unreduced   mismatch
  off-by-one  mismatch`,
		Args: cobra.NoArgs,
		RunE: runSelftest,
	}

	cmd.Flags().IntVar(&selftestTrials, "trials", 6, "Trials per campaign")

	return cmd
}

type selftestResult struct {
	kind  kernel.Kind
	fault refkernel.Fault
	got   string
	err   error
}

func (r *selftestResult) ok() bool {
	want := r.fault.ExpectedClass()
	if want == "" {
		return r.err == nil
	}
	return r.got == want
}

func selftestPlan(kind kernel.Kind, trials int) campaign.Plan {
	plan := campaign.Plan{Kind: kind, Trials: trials}
	if kind == kernel.KindDot {
		plan.SmallTrials = trials / 2
		plan.SmallN = campaign.DefaultSmallN
		plan.MaxN = 64
	}
	return plan
}

func runSelftest(cmd *cobra.Command, args []string) error {
	exe, err := selfExecutable()
	if err != nil {
		return fmt.Errorf("locate kcheck binary: %w", err)
	}
	runSeed := resolveSeed(cfg.Seed)
	log := logging.Get(logging.CategorySelfTest)
	log.Info("selftest started", zap.Uint64("seed", runSeed), zap.String("executable", exe))

	var results []*selftestResult
	eg, ctx := errgroup.WithContext(cmd.Context())
	eg.SetLimit(runtime.NumCPU())

	for _, kind := range kernel.AllKinds {
		for _, fault := range refkernel.AllFaults {
			res := &selftestResult{kind: kind, fault: fault}
			results = append(results, res)

			eg.Go(func() error {
				gen, err := generator.New(runSeed, generator.DefaultRange)
				if err != nil {
					return err
				}
				inv, err := invoker.New(invoker.Target{
					Executable: exe,
					Args:       []string{"oracle", string(kind), "--fault", string(fault)},
					Env:        selfEnv,
				}, invoker.WithTimeout(time.Minute))
				if err != nil {
					return err
				}
				d, err := campaign.NewDriver(selftestPlan(kind, selftestTrials), gen, inv)
				if err != nil {
					return err
				}

				_, runErr := d.Run(ctx)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res.err = runErr
				res.got = kernel.Class(runErr)
				log.Debug("selftest case finished",
					zap.String("kind", kind.String()),
					zap.String("fault", string(fault)),
					zap.String("class", res.got),
					zap.Bool("ok", res.ok()))
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("kcheck selftest"))
	failed := 0
	for _, res := range results {
		want := res.fault.ExpectedClass()
		if want == "" {
			want = "pass"
		}
		got := res.got
		if res.err == nil {
			got = "pass"
		} else if got == "" {
			got = "error"
		}
		mark := passStyle.Render("ok  ")
		if !res.ok() {
			mark = failStyle.Render("FAIL")
			failed++
		}
		fmt.Fprintf(out, "  %s %-5s %-11s want %-10s got %s\n", mark, res.kind, res.fault, want, got)
		if !res.ok() && res.err != nil {
			fmt.Fprintf(out, "       %s\n", dimStyle.Render(res.err.Error()))
		}
	}

	if failed > 0 {
		return &exitError{code: 1, err: fmt.Errorf("selftest: %d of %d cases misclassified", failed, len(results))}
	}
	fmt.Fprintln(out, passStyle.Render(fmt.Sprintf("all %d cases classified correctly", len(results))))
	return nil
}
