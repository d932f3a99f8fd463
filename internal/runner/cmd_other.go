//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// prepareCommand puts the server in its own process group so terminal
// signals aimed at the daemon do not reach it.
func prepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
