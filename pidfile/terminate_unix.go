//go:build !windows

package pidfile

import (
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
)

// terminate signals the process group led by p, or p alone when it does not
// lead a group.
func terminate(p *process.Process) error {
	pid := int(p.Pid)
	if err := syscall.Kill(-pid, syscall.SIGTERM); err == nil {
		return nil
	}
	return syscall.Kill(pid, syscall.SIGTERM)
}
