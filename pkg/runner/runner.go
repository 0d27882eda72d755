// runner.go
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
)

// Command describes one external process invocation
type Command struct {
	Name string   // Executable name or path
	Args []string // Arguments, excluding the executable
	Dir  string   // Working directory (inherits when empty)
	Env  []string // Full environment (inherits when nil)
}

// String returns a shell-like rendering of the command for logs
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if strings.ContainsAny(a, " \t'\"") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Runner executes external processes
type Runner interface {
	// Run executes the command, streaming its output
	Run(ctx context.Context, cmd Command) error

	// Output executes the command and returns its standard output
	Output(ctx context.Context, cmd Command) (string, error)

	// CommandExists reports whether name can be run
	CommandExists(name string) bool
}

// ExitError reports a process that ran but exited non-zero
type ExitError struct {
	Cmd  string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Cmd, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

// NewExecRunner creates a runner writing child output to the process stdio
func NewExecRunner(logger *log.Logger) *ExecRunner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &ExecRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// Run executes the command, streaming stdout and stderr
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := r.command(ctx, cmd)
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	r.Logger.Printf("Running: %s", cmd)
	return wrapExit(cmd, c.Run())
}

// Output executes the command and returns its standard output
func (r *ExecRunner) Output(ctx context.Context, cmd Command) (string, error) {
	c := r.command(ctx, cmd)
	var stdout bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = r.Stderr

	r.Logger.Printf("Querying: %s", cmd)
	if err := c.Run(); err != nil {
		return "", wrapExit(cmd, err)
	}
	return stdout.String(), nil
}

func (r *ExecRunner) command(ctx context.Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if cmd.Env != nil {
		c.Env = cmd.Env
	}
	return c
}

func wrapExit(cmd Command, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Cmd: cmd.String(), Code: exitErr.ExitCode(), Err: err}
	}
	return fmt.Errorf("running %s: %w", cmd.Name, err)
}

// CommandExists checks if a command is available in PATH
func (r *ExecRunner) CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// ExitCode extracts the child exit status from err, or 1 when err is not
// an *ExitError. A nil error yields 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}
