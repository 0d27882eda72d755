// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/arc-language/pgformula/pkg/runner"
)

// Fake records every command and answers from a script keyed by the
// command's String() rendering.
type Fake struct {
	mu       sync.Mutex
	Outputs  map[string]string
	Failures map[string]error
	Missing  map[string]bool
	Calls    []runner.Command
}

// New creates an empty Fake
func New() *Fake {
	return &Fake{
		Outputs:  make(map[string]string),
		Failures: make(map[string]error),
		Missing:  make(map[string]bool),
	}
}

// Respond scripts stdout for a command line
func (f *Fake) Respond(cmdline, stdout string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Outputs[cmdline] = stdout
	return f
}

// Fail scripts a failure for a command line. A positive code produces a
// *runner.ExitError with that status.
func (f *Fake) Fail(cmdline string, code int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Failures[cmdline] = &runner.ExitError{
		Cmd:  cmdline,
		Code: code,
		Err:  fmt.Errorf("exit status %d", code),
	}
	return f
}

// Lack marks a command as not installed
func (f *Fake) Lack(name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Missing[name] = true
	return f
}

// CommandExists implements runner.Runner. Every command exists unless
// marked with Lack.
func (f *Fake) CommandExists(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Missing[name]
}

// Run implements runner.Runner
func (f *Fake) Run(ctx context.Context, cmd runner.Command) error {
	_, err := f.Output(ctx, cmd)
	return err
}

// Output implements runner.Runner
func (f *Fake) Output(_ context.Context, cmd runner.Command) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmd)

	key := cmd.String()
	if err, ok := f.Failures[key]; ok {
		return "", err
	}
	return f.Outputs[key], nil
}

// Commands returns the rendered command lines in call order
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.String()
	}
	return out
}
