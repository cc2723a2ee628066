package refkernel

import (
	"bytes"
	"strings"
	"testing"

	"kernelcheck/internal/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, kind kernel.Kind, fault Fault, input string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	status := Serve(kind, kernel.DefaultMaxN, fault, strings.NewReader(input), &stdout, &stderr)
	return status, stdout.String(), stderr.String()
}

func TestServe_Correct(t *testing.T) {
	status, out, errOut := serve(t, kernel.KindUMul, FaultNone, "4294967294 2\n")
	assert.Equal(t, 0, status)
	assert.Equal(t, "4294967292\n", out)
	assert.Empty(t, errOut)

	status, out, _ = serve(t, kernel.KindDot, FaultNone, "2\n1 1\n4294967295 1\n")
	assert.Equal(t, 0, status)
	assert.Equal(t, "0\n", out)
}

func TestServe_Faults(t *testing.T) {
	const input = "4294967294 2\n"

	tests := []struct {
		fault  Fault
		status int
		stdout string
		stderr bool
	}{
		{FaultExit, FaultExitStatus, "4294967292\n", false},
		{FaultStderr, 0, "4294967292\n", true},
		{FaultUnreduced, 0, "8589934588\n", false},
		{FaultOffByOne, 0, "4294967293\n", false},
		{FaultGarbage, 0, "0xfffffffc\n", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.fault), func(t *testing.T) {
			status, out, errOut := serve(t, kernel.KindUMul, tt.fault, input)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.stdout, out)
			assert.Equal(t, tt.stderr, errOut != "")
		})
	}
}

func TestServe_OffByOneWraps(t *testing.T) {
	// 0xFFFFFFFF * 1 + 1 wraps to zero.
	_, out, _ := serve(t, kernel.KindUMul, FaultOffByOne, "4294967295 1")
	assert.Equal(t, "0\n", out)
}

func TestServe_UnreducedDot(t *testing.T) {
	_, out, _ := serve(t, kernel.KindDot, FaultUnreduced, "2 1 1 4294967295 1")
	assert.Equal(t, "4294967296\n", out)
}

func TestServe_BadInputExitsOne(t *testing.T) {
	for name, input := range map[string]string{
		"empty":       "",
		"one operand": "7",
		"too long":    "1025 1 2",
		"zero length": "0",
		"not numbers": "a b",
	} {
		kind := kernel.KindUMul
		if name != "one operand" && name != "not numbers" {
			kind = kernel.KindDot
		}
		status, out, errOut := serve(t, kind, FaultNone, input)
		assert.Equal(t, 1, status, name)
		assert.Empty(t, out, name)
		assert.Empty(t, errOut, name)
	}
}

func TestParseFault(t *testing.T) {
	for _, f := range AllFaults {
		got, err := ParseFault(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	got, err := ParseFault("")
	require.NoError(t, err)
	assert.Equal(t, FaultNone, got)

	got, err = ParseFault("Off-By-One")
	require.NoError(t, err)
	assert.Equal(t, FaultOffByOne, got)

	_, err = ParseFault("segfault")
	assert.Equal(t, "configuration", kernel.Class(err))
}

func TestExpectedClass(t *testing.T) {
	assert.Equal(t, "", FaultNone.ExpectedClass())
	assert.Equal(t, "process", FaultExit.ExpectedClass())
	assert.Equal(t, "diagnostic", FaultStderr.ExpectedClass())
	assert.Equal(t, "mismatch", FaultUnreduced.ExpectedClass())
	assert.Equal(t, "mismatch", FaultOffByOne.ExpectedClass())
	assert.Equal(t, "format", FaultGarbage.ExpectedClass())
}

func TestStubEnv(t *testing.T) {
	assert.Equal(t, "KCHECK_REFKERNEL=dot:garbage", StubEnv(kernel.KindDot, FaultGarbage))

	_, ok := ServeFromEnv()
	assert.False(t, ok)
}
