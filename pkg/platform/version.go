// version.go
package platform

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a macOS product version reduced to major.minor
type Version struct {
	Major int
	Minor int
}

var (
	// Leopard is macOS 10.5
	Leopard = Version{Major: 10, Minor: 5}

	// SnowLeopard is macOS 10.6, the first release that builds 64-bit by default
	SnowLeopard = Version{Major: 10, Minor: 6}
)

// ParseVersion parses the output of `sw_vers -productVersion`
// ("10.6.8" -> 10.6). Patch levels are dropped.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	parts := strings.SplitN(s, ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("invalid major version in %q: %w", s, err)
	}

	var minor int
	if len(parts) > 1 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil {
			return Version{}, fmt.Errorf("invalid minor version in %q: %w", s, err)
		}
	}

	return Version{Major: major, Minor: minor}, nil
}

// AtLeast reports whether v is the same as or newer than o
func (v Version) AtLeast(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	return v.Minor >= o.Minor
}

// IsZero reports whether the version is unknown
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// String returns the version as major.minor
func (v Version) String() string {
	if v.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
