//go:build !linux

package process

import (
	"os/exec"
	"syscall"
)

// ExecCommand creates an external command, registered with this executor so it can be
// killed at exit.
// N.B. This does not start the command - the caller must handle that (or use
// ExecWithTimeout which does it for them).
func (e *Executor) ExecCommand(command string, args ...string) *exec.Cmd {
	cmd := exec.Command(command, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	e.registerProcess(cmd)
	return cmd
}
