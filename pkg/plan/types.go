// types.go
package plan

import (
	"log"

	"github.com/arc-language/pgformula/pkg/launchd"
	"github.com/arc-language/pgformula/pkg/probe"
)

// Options the assembler acts on when the formula declares them
const (
	OptionNoPython = "no-python"
	OptionNoPerl   = "no-perl"
	OptionOSSPUUID = "ossp-uuid"
)

// ArchFlags is the configure argument forcing a 64-bit Python link
const ArchFlags = "ARCHFLAGS=-arch x86_64"

// UUIDContribDir holds the uuid-ossp extension, built after the server
const UUIDContribDir = "contrib/uuid-ossp"

// Config configures the Assembler
type Config struct {
	Helper          ConfigHelper      // Queried only with ossp-uuid
	Prober          probe.ArchProber  // Framework Python inspection; nil skips it
	Overrides       map[string]string // Recorded as Set mutations before the formula's own
	FrameworkPython string            // Default: probe.FrameworkPython
	Debug           bool              // Enable debug logging
	Logger          *log.Logger       // Custom logger (optional)
}

// Assembler turns environment facts into a BuildPlan
type Assembler struct {
	config *Config
	logger *log.Logger
}

// BuildPlan is everything the build collaborators need, frozen at the end
// of assembly
type BuildPlan struct {
	Formula       string             `json:"formula" yaml:"formula"`
	Version       string             `json:"version" yaml:"version"`
	URL           string             `json:"url" yaml:"url"`
	Checksum      string             `json:"checksum" yaml:"checksum"`
	Options       []string           `json:"options" yaml:"options"`
	ConfigureArgs []string           `json:"configure_args" yaml:"configure_args"`
	Env           Mutations          `json:"env" yaml:"env"`
	ContribDirs   []string           `json:"contrib_dirs,omitempty" yaml:"contrib_dirs,omitempty"`
	Dependencies  []string           `json:"dependencies" yaml:"dependencies"`
	Paths         Paths              `json:"paths" yaml:"paths"`
	Service       launchd.Descriptor `json:"service" yaml:"service"`
	Descriptor    string             `json:"descriptor" yaml:"descriptor"`
	Guidance      string             `json:"guidance" yaml:"guidance"`
	Warnings      []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// HasArg reports whether the configure argument list contains arg
func (p *BuildPlan) HasArg(arg string) bool {
	for _, a := range p.ConfigureArgs {
		if a == arg {
			return true
		}
	}
	return false
}
