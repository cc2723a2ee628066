package tactile

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-based process tests need a POSIX sh")
	}
}

func sh(script string) Command {
	return Command{Binary: "sh", Arguments: []string{"-c", script}}
}

func TestDirectExecutor_Execute(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), sh("echo hello"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Errorf("Expected success, got failure: %s", result.Error)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", result.ExitCode)
	}
	if result.Stdout != "hello\n" {
		t.Errorf("Expected stdout %q, got %q", "hello\n", result.Stdout)
	}
	if result.Stderr != "" {
		t.Errorf("Expected empty stderr, got %q", result.Stderr)
	}
}

func TestDirectExecutor_Stdin(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	cmd := Command{Binary: "cat", Stdin: []byte("5\n1 2 3 4 5\n")}
	result, err := executor.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Stdout != "5\n1 2 3 4 5\n" {
		t.Errorf("stdin not delivered intact, got %q", result.Stdout)
	}
}

func TestDirectExecutor_EmptyStdinIsClosed(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	// cat would block forever if stdin were left open.
	result, err := executor.Execute(context.Background(), Command{Binary: "cat"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.ExitCode != 0 || result.Stdout != "" {
		t.Errorf("unexpected result: exit=%d stdout=%q", result.ExitCode, result.Stdout)
	}
}

func TestDirectExecutor_OutputCapture(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), sh("echo stdout; echo stderr >&2"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Stdout != "stdout\n" {
		t.Errorf("Expected stdout to be captured separately, got %q", result.Stdout)
	}
	if result.Stderr != "stderr\n" {
		t.Errorf("Expected stderr to be captured separately, got %q", result.Stderr)
	}
}

func TestDirectExecutor_NonZeroExit(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), sh("echo partial; exit 3"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Errorf("non-zero exit should still be Success=true")
	}
	if result.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", result.ExitCode)
	}
	if !result.IsNonZeroExit() {
		t.Errorf("IsNonZeroExit should be true")
	}
	if result.Stdout != "partial\n" {
		t.Errorf("stdout before exit should be kept, got %q", result.Stdout)
	}
}

func TestDirectExecutor_InvalidCommand(t *testing.T) {
	executor := NewDirectExecutor()

	var events []AuditEventType
	executor.SetAuditCallback(func(e AuditEvent) { events = append(events, e.Type) })

	result, err := executor.Execute(context.Background(), Command{Binary: "kcheck-no-such-binary-12345"})
	if err != nil {
		t.Fatalf("spawn failures belong in the result, got error: %v", err)
	}
	if result.Success {
		t.Errorf("Expected failure for missing binary")
	}
	if result.Error == "" {
		t.Errorf("Expected error message")
	}
	if !result.IsError() {
		t.Errorf("IsError should be true")
	}
	if len(events) != 2 || events[0] != AuditEventStart || events[1] != AuditEventError {
		t.Errorf("unexpected audit events %v", events)
	}
}

func TestDirectExecutor_Timeout(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	cmd := Command{Binary: "sleep", Arguments: []string{"10"}, TimeoutMs: 200}

	start := time.Now()
	result, err := executor.Execute(context.Background(), cmd)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Killed {
		t.Errorf("Expected process to be killed")
	}
	if !strings.Contains(result.KillReason, "timeout") {
		t.Errorf("Expected timeout kill reason, got %q", result.KillReason)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Timeout took too long: %v", elapsed)
	}
}

func TestDirectExecutor_KillsWholeProcessGroup(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	// The grandchild sleep inherits stdout; if only sh were killed, Wait
	// would block on the pipe until WaitDelay.
	cmd := sh("sleep 30 & wait")
	cmd.TimeoutMs = 200

	start := time.Now()
	result, err := executor.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Killed {
		t.Errorf("Expected process to be killed")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("group kill did not reach grandchild, took %v", elapsed)
	}
}

func TestDirectExecutor_ContextCancellation(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	var (
		mu     sync.Mutex
		events []AuditEventType
	)
	executor.SetAuditCallback(func(e AuditEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.Type)
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	result, err := executor.Execute(ctx, Command{Binary: "sleep", Arguments: []string{"10"}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Killed {
		t.Errorf("Expected process to be killed on cancellation")
	}
	if result.KillReason != "context canceled" {
		t.Errorf("unexpected kill reason %q", result.KillReason)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[1] != AuditEventKilled {
		t.Errorf("unexpected audit events %v", events)
	}
}

func TestDirectExecutor_NoTimeoutByDefault(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	result, err := executor.Execute(context.Background(), Command{Binary: "sleep", Arguments: []string{"0.3"}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Killed || result.ExitCode != 0 {
		t.Errorf("unbounded run should complete, got killed=%v exit=%d", result.Killed, result.ExitCode)
	}
}

func TestDirectExecutor_OutputTruncation(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutorWithConfig(ExecutorConfig{MaxOutputBytes: 100})

	result, err := executor.Execute(context.Background(), sh("head -c 5000 /dev/zero | tr '\\0' 7"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.Stdout) != 100 {
		t.Errorf("Expected 100 bytes kept, got %d", len(result.Stdout))
	}
	if !result.StdoutTruncated || result.StderrTruncated {
		t.Errorf("truncation flags wrong: stdout=%v stderr=%v", result.StdoutTruncated, result.StderrTruncated)
	}
	if result.TruncatedBytes != 4900 {
		t.Errorf("Expected 4900 discarded bytes, got %d", result.TruncatedBytes)
	}
}

func TestDirectExecutor_Environment(t *testing.T) {
	requireShell(t)
	t.Setenv("KCHECK_TACTILE_PASSED", "yes")
	t.Setenv("KCHECK_TACTILE_HIDDEN", "yes")

	inherit := NewDirectExecutor()
	result, err := inherit.Execute(context.Background(), sh(`echo "$KCHECK_TACTILE_HIDDEN"`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Stdout != "yes\n" {
		t.Errorf("empty allow list should inherit the parent environment, got %q", result.Stdout)
	}

	restricted := NewDirectExecutorWithConfig(ExecutorConfig{
		AllowedEnvironment: []string{"PATH", "KCHECK_TACTILE_PASSED"},
	})
	cmd := sh(`echo "$KCHECK_TACTILE_PASSED:$KCHECK_TACTILE_HIDDEN:$EXTRA"`)
	cmd.Environment = []string{"EXTRA=set"}
	result, err = restricted.Execute(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Stdout != "yes::set\n" {
		t.Errorf("Expected only allowed and explicit variables, got %q", result.Stdout)
	}
}

func TestDirectExecutor_WorkingDirectory(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	executor := NewDirectExecutorWithConfig(ExecutorConfig{DefaultWorkingDir: dir})

	result, err := executor.Execute(context.Background(), sh("pwd -P"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(result.Stdout), dir) {
		t.Errorf("Expected to run in %s, got %q", dir, result.Stdout)
	}
}

func TestDirectExecutor_Validate(t *testing.T) {
	executor := NewDirectExecutor()

	if err := executor.Validate(Command{Binary: "qemu-riscv32"}); err != nil {
		t.Errorf("valid command rejected: %v", err)
	}
	if err := executor.Validate(Command{}); err == nil {
		t.Errorf("Expected error for empty binary")
	}
	if err := executor.Validate(Command{Binary: "x", TimeoutMs: -1}); err == nil {
		t.Errorf("Expected error for negative timeout")
	}
	if _, err := executor.Execute(context.Background(), Command{}); err == nil {
		t.Errorf("Execute should return validation errors")
	}
}

func TestDirectExecutor_AuditSequence(t *testing.T) {
	requireShell(t)
	executor := NewDirectExecutor()

	var events []AuditEvent
	executor.SetAuditCallback(func(e AuditEvent) { events = append(events, e) })

	cmd := sh("exit 0")
	cmd.RequestID = "trial-7"
	if _, err := executor.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 audit events, got %d", len(events))
	}
	if events[0].Type != AuditEventStart || events[1].Type != AuditEventComplete {
		t.Errorf("unexpected sequence %s, %s", events[0].Type, events[1].Type)
	}
	if events[1].Result == nil || events[1].Command.RequestID != "trial-7" {
		t.Errorf("complete event should carry result and request id")
	}
	if events[0].ExecutorName != "direct" {
		t.Errorf("unexpected executor name %q", events[0].ExecutorName)
	}
}

func TestCommand_CommandString(t *testing.T) {
	tests := []struct {
		cmd      Command
		expected string
	}{
		{Command{Binary: "./umul"}, "./umul"},
		{Command{Binary: "qemu-riscv32", Arguments: []string{"./dot"}}, "qemu-riscv32 ./dot"},
	}

	for _, tt := range tests {
		if got := tt.cmd.CommandString(); got != tt.expected {
			t.Errorf("CommandString() = %q, want %q", got, tt.expected)
		}
	}
}

func TestExecutorConfig_Merge(t *testing.T) {
	config := ExecutorConfig{
		DefaultWorkingDir: "/work",
		DefaultTimeoutMs:  1500,
		MaxOutputBytes:    4096,
	}

	merged := config.Merge(Command{Binary: "x"})
	if merged.WorkingDirectory != "/work" || merged.TimeoutMs != 1500 || merged.MaxOutputBytes != 4096 {
		t.Errorf("defaults not applied: %+v", merged)
	}

	merged = config.Merge(Command{Binary: "x", WorkingDirectory: "/own", TimeoutMs: 10, MaxOutputBytes: 8})
	if merged.WorkingDirectory != "/own" || merged.TimeoutMs != 10 || merged.MaxOutputBytes != 8 {
		t.Errorf("command values should win: %+v", merged)
	}

	merged = ExecutorConfig{}.Merge(Command{Binary: "x"})
	if merged.MaxOutputBytes != DefaultMaxOutputBytes || merged.TimeoutMs != 0 {
		t.Errorf("zero config should give default cap and no timeout: %+v", merged)
	}
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, max: 5}

	if n, err := lw.Write([]byte("abc")); n != 3 || err != nil {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if n, err := lw.Write([]byte("defg")); n != 4 || err != nil {
		t.Fatalf("partial Write should report full length, got %d, %v", n, err)
	}
	if n, err := lw.Write([]byte("hij")); n != 3 || err != nil {
		t.Fatalf("Write past cap = %d, %v", n, err)
	}

	if buf.String() != "abcde" {
		t.Errorf("kept %q", buf.String())
	}
	if !lw.truncated || lw.discarded != 5 {
		t.Errorf("truncated=%v discarded=%d", lw.truncated, lw.discarded)
	}
}
