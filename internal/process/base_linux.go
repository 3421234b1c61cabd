//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr asks the kernel to send SIGTERM to the node when the
// test binary dies, so an aborted test run does not leave nodes behind.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGTERM,
	}
}
