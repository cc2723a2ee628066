package main

import (
	"kernelcheck/internal/kernel"
	"kernelcheck/internal/refkernel"

	"github.com/spf13/cobra"
)

var (
	oracleFault string
	oracleMaxN  int
)

func newOracleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle <kind>",
		Short: "Act as a reference kernel over stdin/stdout",
		Long: `Reads one problem instance in the kernel's input format from stdin and
prints the correct result, exactly like the kernel harness programs do.

With --fault the output is deliberately wrong in a known way, which is how
selftest checks that every failure class is detected.

Faults: none, exit, stderr, unreduced, off-by-one, garbage

Example:
  printf '2\n1 1\n4294967295 1\n' | kcheck oracle dot`,
		Args: cobra.ExactArgs(1),
		RunE: runOracle,
	}

	cmd.Flags().StringVar(&oracleFault, "fault", string(refkernel.FaultNone), "Misbehavior to inject")
	cmd.Flags().IntVar(&oracleMaxN, "max-n", kernel.DefaultMaxN, "Largest accepted dot length")

	return cmd
}

func runOracle(cmd *cobra.Command, args []string) error {
	kind, err := kernel.ParseKind(args[0])
	if err != nil {
		return err
	}
	fault, err := refkernel.ParseFault(oracleFault)
	if err != nil {
		return err
	}

	status := refkernel.Serve(kind, oracleMaxN, fault, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	if status != 0 {
		return &exitError{code: status}
	}
	return nil
}
