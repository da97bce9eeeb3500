//go:build windows

package dispatch

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func interruptProcessGroup(process *os.Process) error {
	return process.Kill()
}

func killProcessGroup(*os.Process) {}
