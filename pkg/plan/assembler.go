// assembler.go
package plan

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"sort"

	"github.com/arc-language/pgformula/pkg/caveats"
	"github.com/arc-language/pgformula/pkg/launchd"
	"github.com/arc-language/pgformula/pkg/platform"
	"github.com/arc-language/pgformula/pkg/probe"
	"github.com/arc-language/pgformula/pkg/registry"
)

// baseConfigureArgs are passed on every build, before the prefix
var baseConfigureArgs = []string{
	"--enable-thread-safety",
	"--with-bonjour",
	"--with-gssapi",
	"--with-krb5",
	"--with-openssl",
	"--with-libxml",
	"--with-libxslt",
}

// systemLibXML2 points the compiler at the system libxml2 headers
const systemLibXML2 = "-I/usr/include/libxml2"

const frameworkPythonWarning = `Detected a framework Python that does not have 64-bit support in:
    %s

The configure script seems to prefer this version of Python over any others,
so you may experience linker problems as described in:
    http://osdir.com/ml/pgsql-general/2009-09/msg00160.html

To fix this issue, you may need to either delete the version of Python
shown above, or move it out of the way before brewing PostgreSQL.

Note that a framework Python in /Library/Frameworks/Python.framework is
the "MacPython" version, and not the system-provided version which is in:
    /System/Library/Frameworks/Python.framework`

// NewAssembler creates a new build plan assembler
func NewAssembler(cfg *Config) *Assembler {
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.FrameworkPython == "" {
		cfg.FrameworkPython = probe.FrameworkPython
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

	return &Assembler{
		config: cfg,
		logger: logger,
	}
}

// Assemble builds the plan for formula f on the host described by facts.
// The only side effects are the config helper query (ossp-uuid) and the
// framework Python probe (64-bit builds with Python).
func (a *Assembler) Assemble(ctx context.Context, f *registry.Formula, facts platform.Facts, paths Paths) (*BuildPlan, error) {
	if f == nil {
		return nil, fmt.Errorf("formula is required")
	}

	a.logger.Printf("Assembling build plan for %s %s", f.Name, f.Version)
	a.logger.Printf("  Facts: %s", facts)

	// Only options the formula declares take effect
	options := facts.Flags.Filter(f.OptionFlags())
	withPython := !slices.Contains(options, OptionNoPython)
	withPerl := !slices.Contains(options, OptionNoPerl)
	withUUID := slices.Contains(options, OptionOSSPUUID)

	var (
		args     []string
		env      Mutations
		warnings []string
		contrib  []string
	)

	// 1. Base configuration
	args = append(args, baseConfigureArgs...)
	args = append(args, "--prefix="+paths.Prefix, "--disable-debug")
	for _, name := range overrideNames(a.config.Overrides) {
		env.Set(name, a.config.Overrides[name])
	}
	env.Append("CPPFLAGS", systemLibXML2)

	// 2. Optional language bindings
	if withPython {
		args = append(args, "--with-python")
	}
	if withPerl {
		args = append(args, "--with-perl")
	}

	// 3. OSSP uuid
	if withUUID {
		args = append(args, "--with-ossp-uuid")
		if a.config.Helper == nil {
			return nil, fmt.Errorf("ossp-uuid requested but no config helper is configured")
		}
		flags, err := a.config.Helper.Query(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying uuid build flags: %w", err)
		}
		a.logger.Printf("  uuid flags: cflags=%q ldflags=%q libs=%q", flags.CFlags, flags.LDFlags, flags.Libs)
		env.Append("CFLAGS", flags.CFlags)
		env.Append("LDFLAGS", flags.LDFlags)
		env.Append("LIBS", flags.Libs)
		contrib = append(contrib, UUIDContribDir)
	}

	// 4. 64-bit Python
	if facts.Bits64() && withPython {
		args = append(args, ArchFlags)
		if w := a.checkFrameworkPython(); w != "" {
			warnings = append(warnings, w)
		}
	}

	// 5. Core Solo/Duo miscompiles at -O3 and -O4
	if facts.CPUFamily == platform.FamilyCore {
		a.logger.Printf("  CPU family %s: forcing -O2", facts.CPUFamily)
		env.OptLevel("CFLAGS", "-O2")
		env.OptLevel("CXXFLAGS", "-O2")
	}

	// 6. Freeze
	p := &BuildPlan{
		Formula:       f.Name,
		Version:       f.Version,
		URL:           f.URL,
		Checksum:      f.Checksum,
		Options:       options,
		ConfigureArgs: slices.Clip(slices.Clone(args)),
		Env:           env.Clone(),
		ContribDirs:   contrib,
		Dependencies:  f.DependenciesFor(facts),
		Paths:         paths,
		Warnings:      warnings,
	}

	// 7. Service descriptor
	p.Service = launchd.Descriptor{
		Label:            paths.ServiceLabel,
		Program:          paths.Server(),
		DataDir:          paths.DataDir(),
		LogFile:          paths.LogFile(),
		UserName:         facts.User,
		WorkingDirectory: paths.HomebrewPrefix,
	}
	descriptor, err := launchd.Render(p.Service)
	if err != nil {
		return nil, fmt.Errorf("rendering service descriptor: %w", err)
	}
	p.Descriptor = string(descriptor)

	// 8. Guidance
	guidance, err := caveats.Render(caveats.Data{
		Formula:   f.Name,
		DocsURL:   f.Docs,
		DataDir:   paths.DataDir(),
		LogFile:   paths.LogFile(),
		PlistPath: paths.ServicePlist(),
		Bits64:    facts.Bits64(),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering guidance: %w", err)
	}
	p.Guidance = guidance

	a.logger.Printf("  ✓ %d configure arguments, %d environment changes", len(p.ConfigureArgs), len(p.Env))
	return p, nil
}

func overrideNames(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkFrameworkPython returns an advisory warning when a MacPython
// framework without x86_64 support is installed. Probe failures are
// reported the same way; neither stops the build.
func (a *Assembler) checkFrameworkPython() string {
	if a.config.Prober == nil {
		return ""
	}

	path := a.config.FrameworkPython
	archs, found, err := a.config.Prober.Archs(path)
	if err != nil {
		a.logger.Printf("  ⚠️  Could not inspect %s: %v", path, err)
		return fmt.Sprintf("Could not inspect the framework Python at %s: %v", path, err)
	}
	if !found {
		return ""
	}
	if probe.Contains(archs, "x86_64") {
		a.logger.Printf("  ✓ Framework Python supports x86_64 (%v)", archs)
		return ""
	}

	a.logger.Printf("  ⚠️  Framework Python lacks x86_64 (%v)", archs)
	return fmt.Sprintf(frameworkPythonWarning, path)
}
