//go:build !windows

package responder

import (
	"os/exec"
	"syscall"
)

// inProcessGroup starts cmd as the leader of a new process group and makes
// cancellation signal the whole group, so helpers spawned by the encoder go
// down with it.
func inProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
}
