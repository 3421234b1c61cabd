package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giantswarm/smoketest/internal/sentinel"
)

// ErrReapTimeout is returned when a process has not been reaped within
// killDrainTimeout after SIGKILL.
const ErrReapTimeout = sentinel.Error("process did not exit after SIGKILL")

// DefaultStopGrace is the graceful-termination window used when a caller
// does not configure one.
const DefaultStopGrace = 60 * time.Second

// killDrainTimeout bounds the wait for cmd.Wait after SIGKILL. SIGKILL
// cannot be caught, so this only fires on stuck I/O or kernel trouble.
const killDrainTimeout = 5 * time.Second

// StopResult records which shutdown tier ended a process.
type StopResult int

const (
	// StopNotRunning means there was no live process to stop.
	StopNotRunning StopResult = iota
	// StopGraceful means the process exited after SIGTERM within the grace period.
	StopGraceful
	// StopForced means the grace period elapsed and SIGKILL was sent.
	StopForced
)

// String returns the name of the result.
func (r StopResult) String() string {
	switch r {
	case StopNotRunning:
		return "not-running"
	case StopGraceful:
		return "graceful"
	case StopForced:
		return "forced"
	default:
		return fmt.Sprintf("StopResult(%d)", int(r))
	}
}

// LogFiles holds the stdout/stderr files a node writes into its directory.
type LogFiles struct {
	stdoutFile *os.File
	stderrFile *os.File
	dir        string
	stdoutName string // e.g. "node-a-stdout.log"
	stderrName string
}

// NewLogFiles creates <processName>-stdout.log and <processName>-stderr.log in dir.
func NewLogFiles(dir, processName string) (LogFiles, error) {
	l := LogFiles{
		dir:        dir,
		stdoutName: processName + "-stdout.log",
		stderrName: processName + "-stderr.log",
	}
	stdout, err := os.Create(l.StdoutPath())
	if err != nil {
		return LogFiles{}, fmt.Errorf("create stdout log: %w", err)
	}
	stderr, err := os.Create(l.StderrPath())
	if err != nil {
		_ = stdout.Close()
		return LogFiles{}, fmt.Errorf("create stderr log: %w", err)
	}
	l.stdoutFile = stdout
	l.stderrFile = stderr
	return l, nil
}

// Close closes both handles. Safe to call more than once.
func (l *LogFiles) Close() {
	if l.stdoutFile != nil {
		_ = l.stdoutFile.Close()
		l.stdoutFile = nil
	}
	if l.stderrFile != nil {
		_ = l.stderrFile.Close()
		l.stderrFile = nil
	}
}

// StdoutPath returns the path of the stdout log.
func (l LogFiles) StdoutPath() string {
	return filepath.Join(l.dir, l.stdoutName)
}

// StderrPath returns the path of the stderr log.
func (l LogFiles) StderrPath() string {
	return filepath.Join(l.dir, l.stderrName)
}

// StartCmd wires cmd's stdout/stderr to fresh log files in dir and starts it.
// On failure the log files are closed and the zero LogFiles is returned.
func StartCmd(cmd *exec.Cmd, dir, processName string) (LogFiles, error) {
	logFiles, err := NewLogFiles(dir, processName)
	if err != nil {
		return LogFiles{}, fmt.Errorf("create %s logs: %w", processName, err)
	}

	cmd.Stdout = logFiles.stdoutFile
	cmd.Stderr = logFiles.stderrFile

	if err := cmd.Start(); err != nil {
		logFiles.Close()
		return LogFiles{}, fmt.Errorf("start %s process: %w", processName, err)
	}
	return logFiles, nil
}

// drainDone waits up to timeout for the cmd.Wait result.
// It reports false if the timeout elapsed first.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// stopWithDone sends SIGTERM, waits up to grace for done, and escalates to
// SIGKILL when the grace period elapses. done must carry the result of the
// one cmd.Wait call for cmd. The forced tier does not wait out another grace
// period; it only drains done for at most killDrainTimeout.
func stopWithDone(cmd *exec.Cmd, done <-chan error, grace time.Duration, name string) (StopResult, error) {
	if cmd == nil || cmd.Process == nil {
		return StopNotRunning, nil
	}
	if done == nil {
		return StopNotRunning, fmt.Errorf("%s: done channel must not be nil", name)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			// Already reaped; its exit status belongs to whoever watched it
			// die, not to this stop.
			if ok, _ := drainDone(done, killDrainTimeout); !ok {
				return StopNotRunning, fmt.Errorf("%s: %w", name, ErrReapTimeout)
			}
			return StopNotRunning, nil
		}
		// SIGTERM could not be delivered; go straight to the forced tier.
	} else {
		t := time.NewTimer(grace)
		select {
		case err := <-done:
			t.Stop()
			return StopGraceful, expectSignalExit(err, name)
		case <-t.C:
		}
	}

	// Kill on a finished process returns os.ErrProcessDone, which is harmless.
	_ = cmd.Process.Kill()
	ok, waitErr := drainDone(done, killDrainTimeout)
	if !ok {
		return StopForced, fmt.Errorf("%s: %w", name, ErrReapTimeout)
	}
	return StopForced, expectSignalExit(waitErr, name)
}

// expectSignalExit interprets a cmd.Wait error after a termination signal.
// Death by SIGTERM or SIGKILL is the expected outcome and maps to nil.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
