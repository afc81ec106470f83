// File: internal/execx/runner.go
// Brief: Subprocess execution with a controlled environment.

// Package execx runs the external toolchain commands the build pipeline
// depends on. Strategies depend on the Runner interface rather than os/exec
// directly so tests can record invocations and simulate exit codes without
// spawning processes.
package execx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Command describes one subprocess invocation. Env replaces the child's
// environment wholesale; a nil Env inherits the parent's. An empty Dir runs
// in the current working directory.
type Command struct {
	Args []string
	Env  []string
	Dir  string
}

// Runner executes a command and waits for it to finish. Implementations do
// not retry and do not impose timeouts; callers wanting a deadline wrap ctx.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError reports a child process that ran but exited non-zero. The build
// treats this as fatal; the command line and code are carried for diagnostics.
type ExitError struct {
	Args []string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with status %d", strings.Join(e.Args, " "), e.Code)
}

type runner struct {
	diag io.Writer
}

// NewRunner returns a Runner that streams child stdout and stderr to diag,
// keeping toolchain output out of the build's own result channel while still
// visible to operators.
func NewRunner(diag io.Writer) Runner {
	return &runner{diag: diag}
}

func (r *runner) Run(ctx context.Context, cmd Command) error {
	if len(cmd.Args) == 0 {
		return errors.New("empty command")
	}
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdout = r.diag
	c.Stderr = r.diag
	if err := c.Run(); err != nil {
		var xerr *exec.ExitError
		if errors.As(err, &xerr) {
			return &ExitError{Args: cmd.Args, Code: xerr.ExitCode()}
		}
		return fmt.Errorf("run %q: %w", strings.Join(cmd.Args, " "), err)
	}
	return nil
}
