//go:build !windows

package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// startShell starts /bin/sh -c script in a temp dir under a BaseProcess.
func startShell(t *testing.T, script string) *BaseProcess {
	t.Helper()

	bp := NewBaseProcess("node-a", nil, time.Second)
	cmd := exec.Command("/bin/sh", "-c", script)
	if err := bp.SetupAndStart(cmd, t.TempDir()); err != nil {
		t.Fatalf("SetupAndStart: %v", err)
	}
	t.Cleanup(func() {
		_ = bp.Kill()
		bp.Close()
	})
	return &bp
}

func pidRunning(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func TestBaseProcess_StopCooperative(t *testing.T) {
	t.Parallel()

	bp := startShell(t, "exec sleep 60")
	pid := bp.Pid()

	start := time.Now()
	res, err := bp.Stop(5 * time.Second)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res != StopGraceful {
		t.Fatalf("Stop result = %v, want graceful", res)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("graceful stop took %v", elapsed)
	}
	if pidRunning(pid) {
		t.Fatalf("pid %d still running after Stop", pid)
	}
	if bp.IsStarted() {
		t.Error("Stop must release the process")
	}
}

func TestBaseProcess_StopIgnoresTerm(t *testing.T) {
	t.Parallel()

	// The ignored disposition survives exec, so sleep ignores SIGTERM too.
	bp := startShell(t, "trap '' TERM; exec sleep 60")
	pid := bp.Pid()
	// Give the shell time to install the trap before signalling.
	time.Sleep(100 * time.Millisecond)

	const grace = 300 * time.Millisecond
	start := time.Now()
	res, err := bp.Stop(grace)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res != StopForced {
		t.Fatalf("Stop result = %v, want forced", res)
	}
	if elapsed < grace {
		t.Fatalf("escalated before the grace period: %v", elapsed)
	}
	if elapsed > grace+killDrainTimeout {
		t.Fatalf("forced stop did not complete promptly: %v", elapsed)
	}
	if pidRunning(pid) {
		t.Fatalf("pid %d still running after forced stop", pid)
	}
}

func TestBaseProcess_StopTwice(t *testing.T) {
	t.Parallel()

	bp := startShell(t, "exec sleep 60")
	if _, err := bp.Stop(5 * time.Second); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	res, err := bp.Stop(5 * time.Second)
	if err != nil || res != StopNotRunning {
		t.Fatalf("second Stop = (%v, %v), want (not-running, nil)", res, err)
	}
}

func TestBaseProcess_StopAfterExit(t *testing.T) {
	t.Parallel()

	bp := startShell(t, "exit 3")
	if !bp.WaitExit(5 * time.Second) {
		t.Fatal("process did not exit")
	}
	if bp.IsAlive() {
		t.Fatal("IsAlive must be false after exit")
	}
	res, err := bp.Stop(time.Second)
	if err != nil {
		t.Fatalf("Stop on an exited process must be safe, got %v", err)
	}
	if res == StopForced {
		t.Fatalf("Stop on an exited process must not escalate, got %v", res)
	}
}

func TestBaseProcess_Kill(t *testing.T) {
	t.Parallel()

	bp := startShell(t, "trap '' TERM; exec sleep 60")
	pid := bp.Pid()
	if err := bp.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if pidRunning(pid) {
		t.Fatalf("pid %d still running after Kill", pid)
	}
	if bp.IsStarted() {
		t.Error("Kill must release the process")
	}
}

func TestBaseProcess_ExitedClosesOnDeath(t *testing.T) {
	t.Parallel()

	bp := startShell(t, "exit 0")
	select {
	case <-bp.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("Exited channel was not closed")
	}
}

func TestBaseProcess_WorkDirAndLogs(t *testing.T) {
	t.Parallel()

	bp := NewBaseProcess("node-a", nil, time.Second)
	dir := t.TempDir()
	cmd := exec.Command("/bin/sh", "-c", "pwd; echo oops >&2")
	if err := bp.SetupAndStart(cmd, dir); err != nil {
		t.Fatalf("SetupAndStart: %v", err)
	}
	if !bp.WaitExit(5 * time.Second) {
		t.Fatal("process did not exit")
	}
	if got, want := bp.LogFiles().StderrPath(), filepath.Join(dir, "node-a-stderr.log"); got != want {
		t.Errorf("LogFiles().StderrPath() = %q, want %q", got, want)
	}
	stdoutPath := bp.LogFiles().StdoutPath()
	if _, err := bp.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	bp.Close()

	stdout, err := os.ReadFile(stdoutPath)
	if err != nil {
		t.Fatalf("read stdout log: %v", err)
	}
	wantDir, _ := filepath.EvalSymlinks(dir)
	gotDir, _ := filepath.EvalSymlinks(strings.TrimSpace(string(stdout)))
	if gotDir != wantDir {
		t.Errorf("process ran in %q, want %q", gotDir, wantDir)
	}

	stderr, err := os.ReadFile(filepath.Join(dir, "node-a-stderr.log"))
	if err != nil {
		t.Fatalf("read stderr log: %v", err)
	}
	if strings.TrimSpace(string(stderr)) != "oops" {
		t.Errorf("stderr log = %q, want %q", stderr, "oops")
	}
}

func TestBaseProcess_AlreadyStarted(t *testing.T) {
	t.Parallel()

	bp := startShell(t, "exec sleep 60")
	if err := bp.SetupAndStart(exec.Command("true"), t.TempDir()); err != ErrAlreadyStarted {
		t.Fatalf("second SetupAndStart error = %v, want ErrAlreadyStarted", err)
	}
}
