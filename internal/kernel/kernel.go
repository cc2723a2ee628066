// Package kernel defines what the harness knows about a kernel-under-test:
// which kinds exist, what an input instance looks like, how instances travel
// over the kernel's stdin protocol, and how failures are classified.
//
// The kernels themselves are opaque executables. The only contract is:
//   - umul reads "x y\n" and prints one decimal uint32.
//   - dot reads "n\n a_0 .. a_{n-1}\n b_0 .. b_{n-1}\n" and prints one decimal uint32.
package kernel

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind identifies a kernel-under-test.
type Kind string

const (
	// KindUMul is the unsigned 32-bit multiply kernel.
	KindUMul Kind = "umul"

	// KindDot is the 32-bit wraparound dot-product kernel.
	KindDot Kind = "dot"
)

// AllKinds lists every supported kernel kind, in campaign order.
var AllKinds = []Kind{KindUMul, KindDot}

// ParseKind converts a user-supplied name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindUMul:
		return KindUMul, nil
	case KindDot:
		return KindDot, nil
	}
	return "", &ConfigurationError{Param: "kind", Reason: fmt.Sprintf("unknown kernel kind %q (valid: %v)", s, AllKinds)}
}

func (k Kind) String() string { return string(k) }

// Instance is one randomized input for a kernel.
type Instance interface {
	Kind() Kind

	// Encode writes the instance in the kernel's stdin protocol.
	Encode(w io.Writer) error

	// Validate checks the structural invariants of the instance.
	Validate() error
}

// MulInput is an operand pair for the umul kernel.
type MulInput struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

func (MulInput) Kind() Kind { return KindUMul }

func (in MulInput) Validate() error { return nil }

// Encode writes "x y\n".
func (in MulInput) Encode(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d %d\n", in.X, in.Y)
	return err
}

// DotInput is a pair of equal-length operand sequences for the dot kernel.
type DotInput struct {
	A []uint32 `json:"a"`
	B []uint32 `json:"b"`
}

func (DotInput) Kind() Kind { return KindDot }

// Len returns n, the number of pairwise products.
func (in DotInput) Len() int { return len(in.A) }

func (in DotInput) Validate() error {
	if len(in.A) != len(in.B) {
		return fmt.Errorf("dot input sequences differ in length: %d != %d", len(in.A), len(in.B))
	}
	if len(in.A) == 0 {
		return fmt.Errorf("dot input must have at least one element")
	}
	return nil
}

// Encode writes the count line followed by the A and B lines.
func (in DotInput) Encode(w io.Writer) error {
	if err := in.Validate(); err != nil {
		return err
	}
	var sb strings.Builder
	sb.Grow(len(in.A)*22 + 12)
	sb.WriteString(strconv.Itoa(len(in.A)))
	sb.WriteByte('\n')
	writeDecimals(&sb, in.A)
	writeDecimals(&sb, in.B)
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeDecimals(sb *strings.Builder, vals []uint32) {
	for i, v := range vals {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	sb.WriteByte('\n')
}

// EncodeString is a convenience wrapper returning the encoded protocol text.
func EncodeString(in Instance) (string, error) {
	var sb strings.Builder
	if err := in.Encode(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
