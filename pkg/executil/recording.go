package executil

import (
	"context"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Cmd  string
	Args []string
}

// Script returns the script of a Shell invocation, or "" for other commands.
func (c RecordedCommand) Script() string {
	if c.Cmd == "sh" && len(c.Args) == 2 && c.Args[0] == "-c" {
		return c.Args[1]
	}
	return ""
}

// RecordingExecutor captures commands in place of running them. Outputs and
// Errors are keyed by command name; for Shell invocations the script is
// checked first.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	Outputs map[string][]byte
	Errors  map[string]error
}

// Run records the command and returns the configured output and error.
func (e *RecordingExecutor) Run(_ context.Context, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rc := RecordedCommand{Cmd: cmd, Args: args}
	e.Commands = append(e.Commands, rc)

	key := cmd
	if script := rc.Script(); script != "" {
		if _, ok := e.Outputs[script]; ok {
			key = script
		}
		if _, ok := e.Errors[script]; ok {
			key = script
		}
	}
	return e.Outputs[key], e.Errors[key]
}

// Scripts returns the scripts of every recorded Shell invocation, in order.
func (e *RecordingExecutor) Scripts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []string
	for _, c := range e.Commands {
		if s := c.Script(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
