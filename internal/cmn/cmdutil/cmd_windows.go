//go:build windows

package cmdutil

import (
	"os"
	"os/exec"
)

// SetupCommand is a no-op on Windows.
func SetupCommand(_ *exec.Cmd) {}

// KillProcessGroup kills the command's process.
func KillProcessGroup(cmd *exec.Cmd, _ os.Signal) error {
	if cmd != nil && cmd.Process != nil {
		return cmd.Process.Kill()
	}
	return nil
}
