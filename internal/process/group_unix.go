//go:build unix

package process

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup starts c as the leader of a new process group.
func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends sig to the process group led by p, or to p alone when the
// group cannot be signalled.
func signalGroup(p *os.Process, sig syscall.Signal) error {
	if err := syscall.Kill(-p.Pid, sig); err == nil {
		return nil
	}

	return p.Signal(sig)
}
