// Package refkernel is a host-native stand-in for the kernel executables.
// It speaks the same stdin/stdout protocol as the emulated harness programs
// and computes results with the oracle, optionally misbehaving in one of a
// fixed set of ways so the harness can check that it notices.
package refkernel

import (
	"fmt"
	"io"
	"strings"

	"kernelcheck/internal/kernel"
	"kernelcheck/internal/oracle"
)

// Fault selects how the reference kernel misbehaves.
type Fault string

const (
	FaultNone      Fault = "none"       // correct value, exit 0, silent stderr
	FaultExit      Fault = "exit"       // correct value, exit status 3
	FaultStderr    Fault = "stderr"     // correct value plus a diagnostic line
	FaultUnreduced Fault = "unreduced"  // 64-bit result, never reduced mod 2^32
	FaultOffByOne  Fault = "off-by-one" // correct value plus one, wrapped
	FaultGarbage   Fault = "garbage"    // value printed as 0x-prefixed hex
)

// AllFaults lists every fault in a stable order.
var AllFaults = []Fault{FaultNone, FaultExit, FaultStderr, FaultUnreduced, FaultOffByOne, FaultGarbage}

// FaultExitStatus is the status returned under FaultExit.
const FaultExitStatus = 3

// ParseFault resolves a fault name. Empty means FaultNone.
func ParseFault(s string) (Fault, error) {
	if s == "" {
		return FaultNone, nil
	}
	for _, f := range AllFaults {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	names := make([]string, len(AllFaults))
	for i, f := range AllFaults {
		names[i] = string(f)
	}
	return "", &kernel.ConfigurationError{
		Param:  "fault",
		Reason: fmt.Sprintf("unknown fault %q (valid: %s)", s, strings.Join(names, ", ")),
	}
}

// ExpectedClass is the error class the harness must report for a kernel
// with this fault, as named by kernel.Class. FaultNone expects "".
func (f Fault) ExpectedClass() string {
	switch f {
	case FaultExit:
		return "process"
	case FaultStderr:
		return "diagnostic"
	case FaultUnreduced, FaultOffByOne:
		return "mismatch"
	case FaultGarbage:
		return "format"
	}
	return ""
}

// Serve reads one problem instance of the given kind from stdin, writes the
// result to stdout and returns the process exit status. Like the harness
// programs it exits 1 without output on unreadable input or n > maxN.
func Serve(kind kernel.Kind, maxN int, fault Fault, stdin io.Reader, stdout, stderr io.Writer) int {
	inst, err := kernel.Decode(kind, stdin, maxN)
	if err != nil {
		return 1
	}

	var (
		wrapped   = oracle.Expected(inst)
		unreduced = widen(inst)
	)

	switch fault {
	case FaultUnreduced:
		fmt.Fprintf(stdout, "%d\n", unreduced)
	case FaultOffByOne:
		io.WriteString(stdout, kernel.FormatResult(wrapped+1))
	case FaultGarbage:
		fmt.Fprintf(stdout, "0x%08x\n", wrapped)
	default:
		io.WriteString(stdout, kernel.FormatResult(wrapped))
	}

	switch fault {
	case FaultExit:
		return FaultExitStatus
	case FaultStderr:
		fmt.Fprintf(stderr, "%s: computed %s\n", kind, kernel.Hex32(wrapped))
	}
	return 0
}

// widen computes the result in 64-bit arithmetic without the final
// reduction, the classic bug of a kernel that forgets its register width.
func widen(inst kernel.Instance) uint64 {
	switch in := inst.(type) {
	case kernel.MulInput:
		return uint64(in.X) * uint64(in.Y)
	case kernel.DotInput:
		var acc uint64
		for i := range in.A {
			acc += uint64(in.A[i]) * uint64(in.B[i])
		}
		return acc
	}
	return 0
}
