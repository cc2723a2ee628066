package verification

import (
	"errors"
	"testing"

	"kernelcheck/internal/kernel"
	"kernelcheck/internal/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedOutcome is a canned classified run.
type fixedOutcome struct {
	value uint64
	err   error
	calls int
}

func (f *fixedOutcome) Result() (uint64, error) {
	f.calls++
	return f.value, f.err
}

func TestVerify_Pass(t *testing.T) {
	inst := kernel.MulInput{X: 0xFFFFFFFE, Y: 2}
	err := Verify(inst, oracle.Expected(inst), &fixedOutcome{value: 0xFFFFFFFC})
	assert.NoError(t, err)
}

func TestVerify_UnreducedResultIsMismatch(t *testing.T) {
	inst := kernel.MulInput{X: 0xFFFFFFFE, Y: 2}
	err := Verify(inst, oracle.Expected(inst), &fixedOutcome{value: 0x1FFFFFFFC})

	var misErr *kernel.MismatchError
	require.True(t, errors.As(err, &misErr), "got %v", err)
	assert.Equal(t, uint32(0xFFFFFFFC), misErr.Report.Expected)
	assert.Equal(t, uint64(0x1FFFFFFFC), misErr.Report.Actual)
	assert.Contains(t, err.Error(), "fffffffc")
	assert.Contains(t, err.Error(), "1fffffffc")
	assert.Equal(t, "fffffffe * 00000002: expected fffffffc, got 1fffffffc", misErr.Report.Headline())
}

func TestVerify_DotWraparound(t *testing.T) {
	inst := kernel.DotInput{A: []uint32{1, 1}, B: []uint32{0xFFFFFFFF, 1}}
	expected := oracle.Expected(inst)
	require.Equal(t, uint32(0), expected)

	assert.NoError(t, Verify(inst, expected, &fixedOutcome{value: 0}))

	err := Verify(inst, expected, &fixedOutcome{value: 0x100000000})
	var misErr *kernel.MismatchError
	require.True(t, errors.As(err, &misErr))
	assert.Contains(t, misErr.Report.String(), "A:        [00000001, 00000001]")
	assert.Contains(t, misErr.Report.String(), "B:        [ffffffff, 00000001]")
}

func TestVerify_ClassifiedFailuresSkipComparison(t *testing.T) {
	inst := kernel.MulInput{X: 3, Y: 4}

	for _, failure := range []error{
		&kernel.ProcessExecutionError{ExitCode: 1},
		&kernel.UnexpectedDiagnosticOutputError{Stderr: "warn\n", Stdout: "12\n"},
		&kernel.OutputFormatError{Output: "", Reason: "empty output"},
	} {
		// A value that would match must not rescue a failed run.
		outcome := &fixedOutcome{value: 12, err: failure}
		err := Verify(inst, 12, outcome)
		assert.Same(t, failure, err)
		assert.Equal(t, 1, outcome.calls)

		var misErr *kernel.MismatchError
		assert.False(t, errors.As(err, &misErr))
	}
}
