package kernel

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxN is the largest dot length the reference dot harness accepts.
const DefaultMaxN = 1024

// Decode reads one instance of the given kind in the kernel's stdin protocol.
// Tokens are whitespace separated, the way the kernel's scanf loop reads
// them, so line breaks are not significant. maxN bounds the dot length;
// zero means DefaultMaxN.
func Decode(kind Kind, r io.Reader, maxN int) (Instance, error) {
	if maxN <= 0 {
		maxN = DefaultMaxN
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	var inst Instance
	switch kind {
	case KindUMul:
		vals, err := scanUint32s(sc, 2)
		if err != nil {
			return nil, fmt.Errorf("umul operands: %w", err)
		}
		inst = MulInput{X: vals[0], Y: vals[1]}
	case KindDot:
		if !sc.Scan() {
			return nil, fmt.Errorf("dot length: %w", scanErr(sc))
		}
		v, err := strconv.ParseUint(sc.Text(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("dot length %q: %w", sc.Text(), err)
		}
		n := int(v)
		if n < 1 || n > maxN {
			return nil, fmt.Errorf("dot length %d out of range [1, %d]", n, maxN)
		}
		a, err := scanUint32s(sc, n)
		if err != nil {
			return nil, fmt.Errorf("dot A: %w", err)
		}
		b, err := scanUint32s(sc, n)
		if err != nil {
			return nil, fmt.Errorf("dot B: %w", err)
		}
		inst = DotInput{A: a, B: b}
	default:
		return nil, fmt.Errorf("unknown kernel kind %q", kind)
	}

	if sc.Scan() {
		return nil, fmt.Errorf("unexpected trailing input %q", sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return inst, nil
}

// DecodeString decodes an instance from protocol text.
func DecodeString(kind Kind, s string, maxN int) (Instance, error) {
	return Decode(kind, strings.NewReader(s), maxN)
}

func scanUint32s(sc *bufio.Scanner, n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := range out {
		if !sc.Scan() {
			return nil, fmt.Errorf("value %d of %d: %w", i+1, n, scanErr(sc))
		}
		v, err := strconv.ParseUint(sc.Text(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("value %d of %d: %w", i+1, n, err)
		}
		out[i] = uint32(v)
	}
	return out, nil
}

func scanErr(sc *bufio.Scanner) error {
	if err := sc.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// ParseResult decodes the kernel's primary output. After trimming
// surrounding whitespace it must be exactly one unsigned decimal integer.
// The value is returned as uint64 so that an unreduced result is reported
// as a mismatch rather than being mistaken for malformed output.
func ParseResult(stdout string) (uint64, error) {
	s := strings.TrimSpace(stdout)
	if s == "" {
		return 0, &OutputFormatError{Output: stdout, Reason: "empty output"}
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &OutputFormatError{Output: stdout, Reason: "not a single decimal integer", Err: err}
	}
	return v, nil
}

// FormatResult renders a result the way the kernels print it.
func FormatResult(v uint32) string {
	return strconv.FormatUint(uint64(v), 10) + "\n"
}
