// pgformula.go
package pgformula

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/arc-language/pgformula/pkg/build"
	"github.com/arc-language/pgformula/pkg/core"
	"github.com/arc-language/pgformula/pkg/fetch"
	"github.com/arc-language/pgformula/pkg/plan"
	"github.com/arc-language/pgformula/pkg/platform"
	"github.com/arc-language/pgformula/pkg/probe"
	"github.com/arc-language/pgformula/pkg/registry"
	"github.com/arc-language/pgformula/pkg/runner"
)

// Re-export types for convenience
type (
	Config    = core.Config
	BuildPlan = plan.BuildPlan
	Formula   = registry.Formula
	Facts     = platform.Facts
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// Options replaces the host-facing collaborators of a Manager
type Options struct {
	Runner   runner.Runner      // Default: runner.NewExecRunner
	Prober   probe.ArchProber   // Default: probe.MachO
	Detector *platform.Detector // Default: platform.NewDetector(Runner)
	DryRun   bool               // Plan and fetch, but run no build commands
	Logger   *log.Logger        // Custom logger (optional)
}

// Manager plans and installs formulae
type Manager struct {
	config    *Config
	registry  *registry.Registry
	detector  *platform.Detector
	assembler *plan.Assembler
	fetcher   *fetch.Fetcher
	builder   *build.Builder
	logger    *log.Logger
}

// NewManager creates a new Manager
func NewManager(config *Config, opts *Options) (*Manager, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	if opts == nil {
		opts = &Options{}
	}

	// Ensure CachePath is set
	if config.CachePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			config.CachePath = filepath.Join(os.TempDir(), "pgformula")
		} else {
			config.CachePath = filepath.Join(home, ".cache", "pgformula")
		}
	}

	// Setup logger
	logger := opts.Logger
	if logger == nil {
		if config.Debug {
			logger = log.New(os.Stdout, "[DEBUG] ", log.LstdFlags)
		} else {
			logger = log.New(io.Discard, "", 0)
		}
	}

	r := opts.Runner
	if r == nil {
		r = runner.NewExecRunner(logger)
	}

	prober := opts.Prober
	if prober == nil {
		prober = probe.MachO{}
	}

	detector := opts.Detector
	if detector == nil {
		detector = platform.NewDetector(r)
	}

	overrides, err := config.EnvOverrides()
	if err != nil {
		return nil, &Error{Op: "configure", Err: err}
	}

	return &Manager{
		config:   config,
		registry: registry.New(config.FormulaDir),
		detector: detector,
		assembler: plan.NewAssembler(&plan.Config{
			Helper:    plan.NewUUIDConfig(r),
			Prober:    prober,
			Overrides: overrides,
			Logger:    logger,
		}),
		fetcher: fetch.New(&fetch.Config{
			CachePath: config.CachePath,
			Timeout:   config.Timeout,
			Logger:    logger,
		}),
		builder: build.New(&build.Config{
			Runner: r,
			DryRun: opts.DryRun,
			Logger: logger,
		}),
		logger: logger,
	}, nil
}

// Formula returns the definition for a formula name or alias
func (m *Manager) Formula(name string) (*Formula, error) {
	f, err := m.registry.Load(name)
	if err != nil {
		return nil, &Error{Op: "load", Formula: name, Err: err}
	}
	return f, nil
}

// Formulae returns every known formula
func (m *Manager) Formulae() ([]*Formula, error) {
	all, err := m.registry.All()
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	return all, nil
}

// Facts detects the host with the given option flags
func (m *Manager) Facts(ctx context.Context, flags []string) (Facts, error) {
	facts, err := m.detector.Detect(ctx, flags...)
	if err != nil {
		return Facts{}, &Error{Op: "detect", Err: err}
	}
	return facts, nil
}

// Paths lays out the keg for f under the configured Homebrew prefix
func (m *Manager) Paths(f *Formula) plan.Paths {
	return plan.NewPaths(m.config.HomebrewPrefix, f.Name, f.Version, f.ServiceLabel)
}

// Plan detects the host and assembles the build plan for name. Nothing is
// downloaded or built.
func (m *Manager) Plan(ctx context.Context, name string, flags []string) (*BuildPlan, error) {
	f, err := m.Formula(name)
	if err != nil {
		return nil, err
	}

	facts, err := m.Facts(ctx, flags)
	if err != nil {
		return nil, err
	}

	p, err := m.assembler.Assemble(ctx, f, facts, m.Paths(f))
	if err != nil {
		return nil, &Error{Op: "plan", Formula: f.Name, Err: err}
	}
	return p, nil
}

// Install plans, fetches, verifies, unpacks and builds name. The plan is
// returned so the caller can print its guidance and warnings.
func (m *Manager) Install(ctx context.Context, name string, flags []string) (*BuildPlan, error) {
	m.logger.Printf("Step 1: Planning %s", name)
	p, err := m.Plan(ctx, name, flags)
	if err != nil {
		return nil, err
	}
	for _, w := range p.Warnings {
		m.logger.Printf("  ⚠️  %s", w)
	}

	m.logger.Printf("Step 2: Fetching %s", p.URL)
	archive, err := m.fetcher.Fetch(ctx, p.URL, p.Checksum)
	if err != nil {
		return p, &Error{Op: "fetch", Formula: p.Formula, Err: err}
	}
	m.logger.Printf("  ✓ Verified %s", filepath.Base(archive))

	m.logger.Printf("Step 3: Unpacking")
	buildRoot := filepath.Join(m.config.CachePath, "build")
	if err := os.MkdirAll(buildRoot, 0755); err != nil {
		return p, &Error{Op: "unpack", Formula: p.Formula, Err: err}
	}
	workDir, err := os.MkdirTemp(buildRoot, p.Formula+"-*")
	if err != nil {
		return p, &Error{Op: "unpack", Formula: p.Formula, Err: err}
	}
	defer os.RemoveAll(workDir)

	srcDir, err := m.fetcher.Extract(archive, workDir)
	if err != nil {
		return p, &Error{Op: "unpack", Formula: p.Formula, Err: err}
	}

	m.logger.Printf("Step 4: Building in %s", srcDir)
	if err := m.builder.Build(ctx, p, srcDir, os.Environ()); err != nil {
		return p, &Error{Op: "build", Formula: p.Formula, Err: err}
	}

	m.logger.Printf("  ✓ Installed %s %s to %s", p.Formula, p.Version, p.Paths.Prefix)
	return p, nil
}

// WriteDescriptor writes the plan's launchd plist into its keg
func (m *Manager) WriteDescriptor(p *BuildPlan) error {
	if err := build.WriteDescriptor(p); err != nil {
		return &Error{Op: "write descriptor", Formula: p.Formula, Err: fmt.Errorf("%s: %w", p.Paths.ServicePlist(), err)}
	}
	return nil
}
