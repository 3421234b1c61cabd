//go:build !linux

package process

import "os/exec"

// configureSysProcAttr is a no-op outside Linux; Pdeathsig does not exist there.
func configureSysProcAttr(_ *exec.Cmd) {}
