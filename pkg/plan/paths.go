// paths.go
package plan

import "path/filepath"

const (
	// DefaultHomebrewPrefix is the Homebrew install path for Intel Macs
	DefaultHomebrewPrefix = "/usr/local"

	// DefaultCellar is the Cellar subdirectory name
	DefaultCellar = "Cellar"
)

// Paths are the filesystem locations a build plan refers to
type Paths struct {
	Prefix         string `json:"prefix" yaml:"prefix"`                   // Keg: <homebrew>/Cellar/<name>/<version>
	HomebrewPrefix string `json:"homebrew_prefix" yaml:"homebrew_prefix"` // Working directory of the service
	Var            string `json:"var" yaml:"var"`                         // <homebrew>/var
	ServiceLabel   string `json:"service_label" yaml:"service_label"`
}

// NewPaths lays out a keg under the Cellar of homebrewPrefix
func NewPaths(homebrewPrefix, name, version, serviceLabel string) Paths {
	if homebrewPrefix == "" {
		homebrewPrefix = DefaultHomebrewPrefix
	}
	return Paths{
		Prefix:         filepath.Join(homebrewPrefix, DefaultCellar, name, version),
		HomebrewPrefix: homebrewPrefix,
		Var:            filepath.Join(homebrewPrefix, "var"),
		ServiceLabel:   serviceLabel,
	}
}

// Bin is the keg's executable directory
func (p Paths) Bin() string {
	return filepath.Join(p.Prefix, "bin")
}

// Server is the database server executable
func (p Paths) Server() string {
	return filepath.Join(p.Bin(), "postgres")
}

// DataDir is the cluster data directory
func (p Paths) DataDir() string {
	return filepath.Join(p.Var, "postgres")
}

// LogFile is where the supervised server writes its log
func (p Paths) LogFile() string {
	return filepath.Join(p.DataDir(), "server.log")
}

// ServicePlist is where the launchd descriptor is written
func (p Paths) ServicePlist() string {
	return filepath.Join(p.Prefix, p.ServiceLabel+".plist")
}
