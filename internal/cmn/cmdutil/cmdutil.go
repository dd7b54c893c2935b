// Package cmdutil prepares external commands.
package cmdutil

import (
	"os/exec"
	"syscall"
	"time"
)

// DefaultWaitDelay bounds how long Wait blocks on the command's output pipes
// after the process has been killed.
const DefaultWaitDelay = 10 * time.Second

// BindContext makes context cancellation terminate the whole process group
// of cmd instead of only its leader. cmd must have been created with
// exec.CommandContext.
func BindContext(cmd *exec.Cmd) {
	SetupCommand(cmd)
	cmd.Cancel = func() error {
		return KillProcessGroup(cmd, syscall.SIGKILL)
	}
	cmd.WaitDelay = DefaultWaitDelay
}
