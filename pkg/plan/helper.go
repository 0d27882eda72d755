// helper.go
package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arc-language/pgformula/pkg/runner"
)

// BuildFlags are the compiler, linker and library flags reported by a
// library's *-config helper
type BuildFlags struct {
	CFlags  string
	LDFlags string
	Libs    string
}

// ConfigHelper queries a library for the flags needed to build against it
type ConfigHelper interface {
	Query(ctx context.Context) (BuildFlags, error)
}

// ErrHelperMissing is returned when the config helper tool is not installed
var ErrHelperMissing = errors.New("config helper not installed")

// ToolConfig runs a pkg-config style tool once per flag kind,
// e.g. `uuid-config --cflags`
type ToolConfig struct {
	Runner runner.Runner
	Tool   string
}

// NewUUIDConfig returns the helper for OSSP uuid
func NewUUIDConfig(r runner.Runner) *ToolConfig {
	return &ToolConfig{Runner: r, Tool: "uuid-config"}
}

// Query implements ConfigHelper
func (c *ToolConfig) Query(ctx context.Context) (BuildFlags, error) {
	if !c.Runner.CommandExists(c.Tool) {
		return BuildFlags{}, fmt.Errorf("%s not found in PATH: %w", c.Tool, ErrHelperMissing)
	}

	var flags BuildFlags
	for _, q := range []struct {
		arg string
		dst *string
	}{
		{"--cflags", &flags.CFlags},
		{"--ldflags", &flags.LDFlags},
		{"--libs", &flags.Libs},
	} {
		out, err := c.Runner.Output(ctx, runner.Command{Name: c.Tool, Args: []string{q.arg}})
		if err != nil {
			return BuildFlags{}, fmt.Errorf("%s %s: %w", c.Tool, q.arg, err)
		}
		*q.dst = strings.TrimSpace(out)
	}
	return flags, nil
}

// StaticConfig is a ConfigHelper with fixed answers
type StaticConfig BuildFlags

// Query implements ConfigHelper
func (s StaticConfig) Query(context.Context) (BuildFlags, error) {
	return BuildFlags(s), nil
}
