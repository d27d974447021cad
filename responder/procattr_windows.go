//go:build windows

package responder

import "os/exec"

// inProcessGroup keeps the default cancellation, which kills the encoder.
func inProcessGroup(cmd *exec.Cmd) {}
