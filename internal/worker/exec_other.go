//go:build !unix

package worker

import (
	"context"
	"os/exec"
	"time"
)

const toolWaitDelay = 2 * time.Second

func toolCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = toolWaitDelay
	return cmd
}
