// Package executil runs external commands such as format converters.
package executil

import (
	"context"
	"fmt"
	"os/exec"
)

// Executor runs commands.
type Executor interface {
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
}

// RealExecutor runs commands on the host.
type RealExecutor struct {
	// Dir is the working directory; empty uses the current one.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// Run executes a command and returns its combined output.
func (e *RealExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	c.Dir = e.Dir
	if len(e.Env) > 0 {
		c.Env = append(c.Environ(), e.Env...)
	}

	out, err := c.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("exec %s: %w", cmd, err)
	}
	return out, nil
}

// Shell runs script through sh -c.
func Shell(ctx context.Context, e Executor, script string) ([]byte, error) {
	return e.Run(ctx, "sh", "-c", script)
}
