package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/giantswarm/smoketest/internal/sentinel"
)

// ErrAlreadyStarted is returned when SetupAndStart is called on a process
// that is still owned by this BaseProcess.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when SetupAndStart is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when SetupAndStart is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// ErrEmptyWorkDir is returned when SetupAndStart is called without a working directory.
const ErrEmptyWorkDir = sentinel.Error("working directory must not be empty")

// BaseProcess owns one started child process until Stop or Kill releases it.
//
// BaseProcess is not safe for concurrent use; the owning core.Node
// serializes its lifecycle calls under a mutex.
type BaseProcess struct {
	cmd      *exec.Cmd
	waitDone <-chan error    // receives the single cmd.Wait result
	exited   <-chan struct{} // closed once the process has exited
	logFiles LogFiles
	name     string
	log      *slog.Logger
	grace    time.Duration // graceful tier used by Close when Stop was skipped
}

// NewBaseProcess creates a BaseProcess. grace is the graceful-termination
// window Close uses when the caller never called Stop; zero selects
// DefaultStopGrace. A nil logger falls back to slog.Default().
// Panics if name is empty.
func NewBaseProcess(name string, logger *slog.Logger, grace time.Duration) BaseProcess {
	if name == "" {
		panic("smoketest: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return BaseProcess{name: name, log: logger, grace: grace}
}

// SetupAndStart sets the working directory, redirects stdout/stderr to log
// files inside it, and starts cmd. It does not wait for anything beyond the
// fork/exec. On failure no process exists and no log file handle is leaked.
func (b *BaseProcess) SetupAndStart(cmd *exec.Cmd, workDir string) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if cmd.Path == "" {
		return ErrEmptyCmdPath
	}
	if workDir == "" {
		return ErrEmptyWorkDir
	}
	if b.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd.Dir = workDir
	configureSysProcAttr(cmd)

	logFiles, err := StartCmd(cmd, workDir, b.name)
	if err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	b.cmd = cmd
	b.logFiles = logFiles

	// cmd.Wait must be called exactly once. done carries its result to
	// Stop/Kill; exited is the broadcast that readiness polling selects on.
	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()
	b.waitDone = done
	b.exited = exited

	return nil
}

// Name returns the process name used in log entries and error messages.
func (b *BaseProcess) Name() string {
	return b.name
}

// Pid returns the OS process id, or 0 when no process is owned.
func (b *BaseProcess) Pid() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// Logger returns the logger used by this process.
func (b *BaseProcess) Logger() *slog.Logger {
	return b.log
}

// LogFiles returns the stdout/stderr log files of the current process.
func (b *BaseProcess) LogFiles() LogFiles {
	return b.logFiles
}

// Exited returns a channel closed when the process exits. It is nil before
// SetupAndStart and after Stop or Kill.
func (b *BaseProcess) Exited() <-chan struct{} {
	return b.exited
}

// IsStarted reports whether a process is owned and not yet stopped.
func (b *BaseProcess) IsStarted() bool {
	return b.cmd != nil
}

// IsAlive reports whether the owned process is still running.
func (b *BaseProcess) IsAlive() bool {
	if b.exited == nil {
		return false
	}
	select {
	case <-b.exited:
		return false
	default:
		return true
	}
}

// Terminate sends SIGTERM when graceful is true and SIGKILL otherwise.
// Signalling a process that has already exited is a no-op.
func (b *BaseProcess) Terminate(graceful bool) error {
	if b.cmd == nil || b.cmd.Process == nil {
		return nil
	}
	var err error
	if graceful {
		err = b.cmd.Process.Signal(syscall.SIGTERM)
	} else {
		err = b.cmd.Process.Kill()
	}
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return fmt.Errorf("signal %s (pid %d): %w", b.name, b.cmd.Process.Pid, err)
}

// WaitExit blocks until the process exits or timeout elapses and reports
// whether it exited. A BaseProcess without a process counts as exited.
func (b *BaseProcess) WaitExit(timeout time.Duration) bool {
	if b.exited == nil {
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-b.exited:
		return true
	case <-t.C:
		return false
	}
}

// Stop runs the two-tier shutdown: SIGTERM, up to grace for a voluntary
// exit, then SIGKILL. The returned StopResult tells which tier ended the
// process. After Stop the BaseProcess no longer owns a process, so a second
// Stop returns StopNotRunning.
func (b *BaseProcess) Stop(grace time.Duration) (StopResult, error) {
	if b.cmd == nil || b.cmd.Process == nil {
		b.reset()
		return StopNotRunning, nil
	}
	pid := b.cmd.Process.Pid
	res, err := stopWithDone(b.cmd, b.waitDone, grace, b.name)
	if res == StopForced {
		b.log.Warn("process ignored SIGTERM; killed", "process", b.name, "pid", pid, "grace", grace)
	}
	if err != nil {
		b.log.Warn("process stop reported an error", "process", b.name, "pid", pid, "error", err)
	}
	b.reset()
	return res, err
}

// Kill sends SIGKILL without a graceful tier and reaps the process. Used on
// the failed-launch path, where a graceful stop has no value.
func (b *BaseProcess) Kill() error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.reset()
		return nil
	}
	defer b.reset()

	if err := b.Terminate(false); err != nil {
		return err
	}
	if ok, _ := drainDone(b.waitDone, killDrainTimeout); !ok {
		return fmt.Errorf("%s: %w", b.name, ErrReapTimeout)
	}
	return nil
}

// Close releases log file handles. A process still owned at this point is
// stopped first, since Close is the last chance to avoid an orphan.
func (b *BaseProcess) Close() {
	if b.cmd != nil {
		b.log.Warn("process.Close called without Stop; stopping automatically",
			"process", b.name)
		grace := b.grace
		if grace <= 0 {
			grace = DefaultStopGrace
		}
		if _, err := b.Stop(grace); err != nil {
			b.log.Warn("auto-stop during Close failed", "process", b.name, "error", err)
		}
	}
	b.logFiles.Close()
}

func (b *BaseProcess) reset() {
	b.cmd = nil
	b.waitDone = nil
	b.exited = nil
}
