// facts.go
package platform

import (
	"sort"
	"strings"
)

// CPUFamily names the processor family reported by the kernel
type CPUFamily string

const (
	FamilyUnknown   CPUFamily = "unknown"
	FamilyCore      CPUFamily = "core" // Yonah: Core Solo/Duo
	FamilyCore2     CPUFamily = "core2"
	FamilyPenryn    CPUFamily = "penryn"
	FamilyNehalem   CPUFamily = "nehalem"
	FamilyArrandale CPUFamily = "arrandale"
	FamilyArm       CPUFamily = "arm"
)

// intelFamilies maps hw.cpufamily values to family names
var intelFamilies = map[uint32]CPUFamily{
	0x73d67300: FamilyCore,
	0x426f69ef: FamilyCore2,
	0x78ea4fbc: FamilyPenryn,
	0x6b5a4cd2: FamilyNehalem,
	0x573b5eec: FamilyArrandale,
}

// Facts is the snapshot of the build host taken once per invocation.
// Consumers receive it by value and never consult the host directly.
type Facts struct {
	OS        string    // darwin, linux, ...
	Arch      string    // GOARCH of the host; empty means amd64
	Version   Version   // macOS product version; zero elsewhere
	Is64Bit   bool      // CPU is 64-bit capable
	CPUFamily CPUFamily // Processor family
	User      string    // Invoking user
	Flags     Flags     // User-supplied option flags
}

// Bits64 reports whether builds on this host target x86_64. On macOS this
// requires both a 64-bit CPU and Snow Leopard or newer. ARM hosts are
// 64-bit but never x86_64.
func (f Facts) Bits64() bool {
	if !f.Is64Bit || f.CPUFamily == FamilyArm {
		return false
	}
	if f.Arch != "" && f.Arch != "amd64" {
		return false
	}
	if f.OS == "darwin" {
		return f.Version.AtLeast(SnowLeopard)
	}
	return true
}

// Has reports whether the named option flag is set
func (f Facts) Has(flag string) bool {
	return f.Flags.Has(flag)
}

// Flags is an immutable set of option names
type Flags struct {
	set map[string]struct{}
}

// NewFlags builds a flag set. Leading dashes are stripped, so "--no-perl"
// and "no-perl" name the same flag. Empty names are dropped.
func NewFlags(names ...string) Flags {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = normalizeFlag(n)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return Flags{set: set}
}

func normalizeFlag(name string) string {
	return strings.TrimLeft(strings.TrimSpace(name), "-")
}

// Has reports membership
func (f Flags) Has(name string) bool {
	_, ok := f.set[normalizeFlag(name)]
	return ok
}

// Len returns the number of flags
func (f Flags) Len() int {
	return len(f.set)
}

// List returns the flags sorted by name
func (f Flags) List() []string {
	out := make([]string, 0, len(f.set))
	for n := range f.set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Filter returns the subset of flags present in known, keeping known's order
func (f Flags) Filter(known []string) []string {
	var out []string
	for _, k := range known {
		if f.Has(k) {
			out = append(out, normalizeFlag(k))
		}
	}
	return out
}
