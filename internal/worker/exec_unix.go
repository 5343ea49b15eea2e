//go:build unix

package worker

import (
	"context"
	"os/exec"
	"syscall"
	"time"
)

// toolWaitDelay bounds how long Wait keeps draining output after the
// process group has been killed.
const toolWaitDelay = 2 * time.Second

// toolCommand runs an external converter in its own process group so a
// cancelled context kills the launcher and every child it forked.
func toolCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = toolWaitDelay
	return cmd
}
