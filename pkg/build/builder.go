// Package build drives the configure and make steps of a BuildPlan.
package build

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/arc-language/pgformula/pkg/plan"
	"github.com/arc-language/pgformula/pkg/runner"
)

// Config configures the Builder
type Config struct {
	Runner runner.Runner // Default: runner.NewExecRunner
	Make   string        // Default: make
	DryRun bool          // Log commands without running them or writing files
	Debug  bool          // Enable debug logging
	Logger *log.Logger   // Custom logger (optional)
}

// Builder runs configure, make install and the contrib builds, then
// writes the service descriptor
type Builder struct {
	runner runner.Runner
	config *Config
	logger *log.Logger
}

// New creates a new Builder
func New(cfg *Config) *Builder {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Make == "" {
		cfg.Make = "make"
	}

	// Setup logger
	logger := cfg.Logger
	if logger == nil {
		if cfg.Debug {
			logger = log.New(os.Stdout, "[DEBUG] ", log.LstdFlags)
		} else {
			logger = log.New(io.Discard, "", 0)
		}
	}

	r := cfg.Runner
	if r == nil {
		r = runner.NewExecRunner(logger)
	}

	return &Builder{
		runner: r,
		config: cfg,
		logger: logger,
	}
}

// Commands returns the commands Build runs for p in srcDir, in order
func (b *Builder) Commands(p *plan.BuildPlan, srcDir string, baseEnv []string) []runner.Command {
	env := p.Env.Apply(baseEnv)

	cmds := []runner.Command{
		{Name: "./configure", Args: p.ConfigureArgs, Dir: srcDir, Env: env},
		{Name: b.config.Make, Args: []string{"install"}, Dir: srcDir, Env: env},
	}
	for _, dir := range p.ContribDirs {
		cmds = append(cmds, runner.Command{
			Name: b.config.Make,
			Args: []string{"install"},
			Dir:  filepath.Join(srcDir, filepath.FromSlash(dir)),
			Env:  env,
		})
	}
	return cmds
}

// Build executes the plan in srcDir. baseEnv is the environment the
// plan's mutations are applied to. The first failing step aborts the
// build and its error, including any exit status, is returned as is.
func (b *Builder) Build(ctx context.Context, p *plan.BuildPlan, srcDir string, baseEnv []string) error {
	if p == nil {
		return fmt.Errorf("build plan is required")
	}
	if err := p.Service.Validate(); err != nil {
		return fmt.Errorf("service descriptor: %w", err)
	}

	cmds := b.Commands(p, srcDir, baseEnv)
	for i, cmd := range cmds {
		b.logger.Printf("Step %d: %s", i+1, cmd)
		if b.config.DryRun {
			continue
		}
		if err := b.runner.Run(ctx, cmd); err != nil {
			return err
		}
		b.logger.Printf("  ✓ done")
	}

	b.logger.Printf("Step %d: Writing %s", len(cmds)+1, p.Paths.ServicePlist())
	if b.config.DryRun {
		return nil
	}
	return WriteDescriptor(p)
}

// WriteDescriptor writes the rendered launchd plist into the keg. A
// descriptor missing a field launchd needs is refused.
func WriteDescriptor(p *plan.BuildPlan) error {
	if err := p.Service.Validate(); err != nil {
		return err
	}

	dest := p.Paths.ServicePlist()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(dest, []byte(p.Descriptor), 0644); err != nil {
		return fmt.Errorf("writing service descriptor: %w", err)
	}
	return nil
}
