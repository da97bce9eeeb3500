//go:build !windows

package dispatch

import (
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// interruptProcessGroup sends SIGINT to the child's whole process group.
func interruptProcessGroup(process *os.Process) error {
	if err := syscall.Kill(-process.Pid, syscall.SIGINT); err != nil {
		return process.Signal(os.Interrupt)
	}
	return nil
}

// killProcessGroup removes anything left in the group after the grace period.
func killProcessGroup(process *os.Process) {
	_ = syscall.Kill(-process.Pid, syscall.SIGKILL)
}
