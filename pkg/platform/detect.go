// pkg/platform/detect.go
package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"

	"github.com/arc-language/pgformula/pkg/runner"
)

// ErrUnsupportedOS is returned by Detect on hosts Homebrew does not run on
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Detector captures Facts from the running host
type Detector struct {
	Runner runner.Runner
	GOOS   string
	GOARCH string

	// CurrentUser returns the invoking user's name
	CurrentUser func() (string, error)
}

// NewDetector creates a detector for the running process
func NewDetector(r runner.Runner) *Detector {
	return &Detector{
		Runner:      r,
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		CurrentUser: currentUser,
	}
}

// Detect is shorthand for NewDetector(r).Detect(ctx, flags...)
func Detect(ctx context.Context, r runner.Runner, flags ...string) (Facts, error) {
	return NewDetector(r).Detect(ctx, flags...)
}

// Detect detects the current platform and returns the frozen facts
func (d *Detector) Detect(ctx context.Context, flags ...string) (Facts, error) {
	f := Facts{
		OS:        d.GOOS,
		Arch:      d.GOARCH,
		CPUFamily: FamilyUnknown,
		Flags:     NewFlags(flags...),
	}

	switch d.GOOS {
	case "darwin":
		out, err := d.Runner.Output(ctx, runner.Command{Name: "sw_vers", Args: []string{"-productVersion"}})
		if err != nil {
			return Facts{}, fmt.Errorf("detecting macOS version: %w", err)
		}
		if f.Version, err = ParseVersion(out); err != nil {
			return Facts{}, fmt.Errorf("detecting macOS version: %w", err)
		}

		if d.GOARCH == "arm64" {
			f.Is64Bit = true
			f.CPUFamily = FamilyArm
			break
		}

		if out, err := d.sysctl(ctx, "hw.cpu64bit_capable"); err == nil {
			f.Is64Bit = out == "1"
		}
		if out, err := d.sysctl(ctx, "hw.cpufamily"); err == nil {
			f.CPUFamily = parseCPUFamily(out)
		}

	case "linux", "freebsd", "openbsd", "netbsd":
		f.Is64Bit = is64BitArch(d.GOARCH)

	default:
		return Facts{}, fmt.Errorf("%w: %s", ErrUnsupportedOS, d.GOOS)
	}

	if d.CurrentUser != nil {
		name, err := d.CurrentUser()
		if err != nil {
			return Facts{}, fmt.Errorf("detecting user: %w", err)
		}
		f.User = name
	}

	return f, nil
}

func (d *Detector) sysctl(ctx context.Context, key string) (string, error) {
	out, err := d.Runner.Output(ctx, runner.Command{Name: "sysctl", Args: []string{"-n", key}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func parseCPUFamily(s string) CPUFamily {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return FamilyUnknown
	}
	if fam, ok := intelFamilies[uint32(v)]; ok {
		return fam
	}
	return FamilyUnknown
}

func is64BitArch(arch string) bool {
	switch arch {
	case "amd64", "arm64", "ppc64", "ppc64le", "s390x", "riscv64", "loong64", "mips64", "mips64le":
		return true
	}
	return false
}

func currentUser() (string, error) {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username, nil
	}
	if name := os.Getenv("USER"); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("cannot determine current user")
}

// String returns a one-line description of the facts
func (f Facts) String() string {
	bits := "32-bit"
	if f.Is64Bit {
		bits = "64-bit"
	}
	return fmt.Sprintf("%s %s (%s, cpu %s, flags %v)", f.OS, f.Version, bits, f.CPUFamily, f.Flags.List())
}
