package kernel

import (
	"fmt"
	"strings"
)

// Hex32 renders v as 8 zero-padded lowercase hex digits.
func Hex32(v uint32) string { return fmt.Sprintf("%08x", v) }

// HexResult renders a parsed kernel result. Values that do not fit in
// 32 bits keep all their digits so an unreduced result is visible as such.
func HexResult(v uint64) string { return fmt.Sprintf("%08x", v) }

// HexList renders a sequence as "[xxxxxxxx, xxxxxxxx, ...]".
func HexList(vals []uint32) string {
	var sb strings.Builder
	sb.Grow(len(vals)*10 + 2)
	sb.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%08x", v)
	}
	sb.WriteByte(']')
	return sb.String()
}

// MismatchReport holds everything needed to reconstruct a failing case by
// hand: the full input and both results.
type MismatchReport struct {
	Kind     Kind     `json:"kind"`
	Input    Instance `json:"input"`
	Expected uint32   `json:"expected"`
	Actual   uint64   `json:"actual"`
}

// NewMismatchReport builds a report for inst.
func NewMismatchReport(inst Instance, expected uint32, actual uint64) MismatchReport {
	return MismatchReport{
		Kind:     inst.Kind(),
		Input:    inst,
		Expected: expected,
		Actual:   actual,
	}
}

// Headline is the one-line form, e.g.
// "fffffffe * 00000002: expected fffffffc, got 1fffffffc".
func (r MismatchReport) Headline() string {
	switch in := r.Input.(type) {
	case MulInput:
		return fmt.Sprintf("%s * %s: expected %s, got %s",
			Hex32(in.X), Hex32(in.Y), Hex32(r.Expected), HexResult(r.Actual))
	case DotInput:
		return fmt.Sprintf("dot n=%d: expected %s, got %s",
			in.Len(), Hex32(r.Expected), HexResult(r.Actual))
	}
	return fmt.Sprintf("%s: expected %s, got %s", r.Kind, Hex32(r.Expected), HexResult(r.Actual))
}

// String renders every operand and both results, one labeled line each.
func (r MismatchReport) String() string {
	var sb strings.Builder
	if r.Input != nil {
		sb.WriteString(DescribeInput(r.Input))
	} else {
		fmt.Fprintf(&sb, "kernel:   %s\n", r.Kind)
	}
	fmt.Fprintf(&sb, "expected: %s\n", Hex32(r.Expected))
	fmt.Fprintf(&sb, "got:      %s", HexResult(r.Actual))
	return sb.String()
}

// DescribeInput renders the kernel name and every operand in hex, one
// labeled line each, ending in a newline.
func DescribeInput(inst Instance) string {
	var sb strings.Builder
	switch in := inst.(type) {
	case MulInput:
		fmt.Fprintf(&sb, "kernel:   %s\n", KindUMul)
		fmt.Fprintf(&sb, "x:        %s\n", Hex32(in.X))
		fmt.Fprintf(&sb, "y:        %s\n", Hex32(in.Y))
	case DotInput:
		fmt.Fprintf(&sb, "kernel:   %s (n=%d)\n", KindDot, in.Len())
		fmt.Fprintf(&sb, "A:        %s\n", HexList(in.A))
		fmt.Fprintf(&sb, "B:        %s\n", HexList(in.B))
	default:
		fmt.Fprintf(&sb, "kernel:   %s\n", inst.Kind())
	}
	return sb.String()
}
