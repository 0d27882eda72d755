// pkg/registry/registry.go
package registry

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/arc-language/pgformula/pkg/platform"
)

//go:embed formulae/*.toml
var builtin embed.FS

// ErrNotFound is returned when no formula matches a name or alias
var ErrNotFound = errors.New("formula not found")

// Option is a recognized command-line switch
type Option struct {
	Flag        string `toml:"flag"`
	Description string `toml:"description"`
}

// Dependency is a runtime dependency, optionally conditional
type Dependency struct {
	Name   string `toml:"name"`
	Before string `toml:"before"` // only on macOS older than this version
	Option string `toml:"option"` // only when this option is set
}

// Formula is the fixed base configuration for one source build
type Formula struct {
	Name         string       `toml:"name"`
	Version      string       `toml:"version"`
	Homepage     string       `toml:"homepage"`
	Docs         string       `toml:"docs"`
	URL          string       `toml:"url"`
	Checksum     string       `toml:"checksum"`
	Aliases      []string     `toml:"aliases"`
	ServiceLabel string       `toml:"service_label"`
	Options      []Option     `toml:"options"`
	Dependencies []Dependency `toml:"dependencies"`
}

// Registry looks formulae up in an override directory, then in the
// definitions compiled into the binary
type Registry struct {
	dir string
}

// New creates a Registry. An empty dir disables overrides.
func New(dir string) *Registry {
	return &Registry{dir: dir}
}

// Load returns the formula for a name or alias
func (r *Registry) Load(name string) (*Formula, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("registry: formula name is required")
	}

	all, err := r.All()
	if err != nil {
		return nil, err
	}

	for _, f := range all {
		if f.Name == name {
			return f, nil
		}
	}
	for _, f := range all {
		for _, alias := range f.Aliases {
			if alias == name {
				return f, nil
			}
		}
	}

	return nil, fmt.Errorf("registry: %w: %s", ErrNotFound, name)
}

// All returns every known formula sorted by name. Override files shadow
// built-in definitions of the same name.
func (r *Registry) All() ([]*Formula, error) {
	byName := make(map[string]*Formula)

	entries, err := fs.ReadDir(builtin, "formulae")
	if err != nil {
		return nil, fmt.Errorf("registry: reading built-in formulae: %w", err)
	}
	for _, e := range entries {
		data, err := builtin.ReadFile("formulae/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("registry: reading %s: %w", e.Name(), err)
		}
		f, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("registry: failed to parse '%s': %w", e.Name(), err)
		}
		byName[f.Name] = f
	}

	if r.dir != "" {
		paths, err := filepath.Glob(filepath.Join(r.dir, "*.toml"))
		if err != nil {
			return nil, fmt.Errorf("registry: listing %s: %w", r.dir, err)
		}
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("registry: reading %s: %w", path, err)
			}
			f, err := Parse(data)
			if err != nil {
				return nil, fmt.Errorf("registry: failed to parse '%s': %w", path, err)
			}
			byName[f.Name] = f
		}
	}

	out := make([]*Formula, 0, len(byName))
	for _, f := range byName {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Parse decodes and validates one formula definition
func Parse(data []byte) (*Formula, error) {
	var f Formula
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Formula) validate() error {
	switch {
	case f.Name == "":
		return fmt.Errorf("missing name")
	case f.Version == "":
		return fmt.Errorf("%s: missing version", f.Name)
	case f.URL == "":
		return fmt.Errorf("%s: missing url", f.Name)
	}
	for _, d := range f.Dependencies {
		if d.Before != "" {
			if _, err := platform.ParseVersion(d.Before); err != nil {
				return fmt.Errorf("%s: dependency %s: %w", f.Name, d.Name, err)
			}
		}
	}
	return nil
}

// OptionFlags returns the recognized option names in declaration order
func (f *Formula) OptionFlags() []string {
	out := make([]string, len(f.Options))
	for i, o := range f.Options {
		out[i] = o.Flag
	}
	return out
}

// DependenciesFor lists the runtime dependencies that apply to facts
func (f *Formula) DependenciesFor(facts platform.Facts) []string {
	var out []string
	for _, d := range f.Dependencies {
		if d.Option != "" && !facts.Has(d.Option) {
			continue
		}
		if d.Before != "" {
			if facts.OS != "darwin" {
				continue
			}
			// validated in Parse
			before, _ := platform.ParseVersion(d.Before)
			if facts.Version.AtLeast(before) {
				continue
			}
		}
		out = append(out, d.Name)
	}
	return out
}
