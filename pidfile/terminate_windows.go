//go:build windows

package pidfile

import "github.com/shirou/gopsutil/v4/process"

func terminate(p *process.Process) error {
	return p.Kill()
}
