// Package probe inspects binaries on disk for the architectures they carry.
package probe

import (
	"debug/macho"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FrameworkPython is the MacPython framework binary. The configure script
// prefers it over the system Python when present.
const FrameworkPython = "/Library/Frameworks/Python.framework/Versions/Current/Python"

// ArchProber reports the instruction-set architectures of a binary.
// A missing file is not an error: found is false.
type ArchProber interface {
	Archs(path string) (archs []string, found bool, err error)
}

// MachO reads thin and universal Mach-O binaries
type MachO struct{}

// Archs implements ArchProber
func (MachO) Archs(path string) ([]string, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("probe: %w", err)
	}

	fat, err := macho.OpenFat(path)
	if err == nil {
		defer fat.Close()
		archs := make([]string, 0, len(fat.Arches))
		for _, a := range fat.Arches {
			archs = append(archs, archName(a.Cpu))
		}
		return archs, true, nil
	}
	if !errors.Is(err, macho.ErrNotFat) {
		return nil, true, fmt.Errorf("probe: reading %s: %w", path, err)
	}

	f, err := macho.Open(path)
	if err != nil {
		return nil, true, fmt.Errorf("probe: reading %s: %w", path, err)
	}
	defer f.Close()

	return []string{archName(f.Cpu)}, true, nil
}

func archName(cpu macho.Cpu) string {
	switch cpu {
	case macho.CpuAmd64:
		return "x86_64"
	case macho.Cpu386:
		return "i386"
	case macho.CpuPpc:
		return "ppc"
	case macho.CpuPpc64:
		return "ppc64"
	case macho.CpuArm:
		return "arm"
	case macho.CpuArm64:
		return "arm64"
	default:
		return cpu.String()
	}
}

// Contains reports whether arch is in archs
func Contains(archs []string, arch string) bool {
	for _, a := range archs {
		if a == arch {
			return true
		}
	}
	return false
}

// Static is an ArchProber with fixed answers, keyed by path
type Static map[string][]string

// Archs implements ArchProber
func (s Static) Archs(path string) ([]string, bool, error) {
	archs, ok := s[path]
	return archs, ok, nil
}
