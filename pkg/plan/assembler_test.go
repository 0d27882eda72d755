package plan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/pgformula/pkg/platform"
	"github.com/arc-language/pgformula/pkg/probe"
	"github.com/arc-language/pgformula/pkg/registry"
	"github.com/arc-language/pgformula/pkg/runner/runnertest"
)

var testPaths = NewPaths("/usr/local", "postgresql", "8.4.4", "org.postgresql.postgres")

func testFormula(t *testing.T) *registry.Formula {
	t.Helper()
	f, err := registry.New("").Load("postgresql")
	require.NoError(t, err)
	return f
}

func facts(bits64 bool, family platform.CPUFamily, flags ...string) platform.Facts {
	return platform.Facts{
		OS:        "darwin",
		Version:   platform.SnowLeopard,
		Is64Bit:   bits64,
		CPUFamily: family,
		User:      "pgadmin",
		Flags:     platform.NewFlags(flags...),
	}
}

func assemble(t *testing.T, cfg *Config, f platform.Facts) *BuildPlan {
	t.Helper()
	p, err := NewAssembler(cfg).Assemble(context.Background(), testFormula(t), f, testPaths)
	require.NoError(t, err)
	return p
}

func TestAssembleDefaults(t *testing.T) {
	p := assemble(t, &Config{}, facts(false, platform.FamilyCore2))

	want := []string{
		"--enable-thread-safety",
		"--with-bonjour",
		"--with-gssapi",
		"--with-krb5",
		"--with-openssl",
		"--with-libxml",
		"--with-libxslt",
		"--prefix=/usr/local/Cellar/postgresql/8.4.4",
		"--disable-debug",
		"--with-python",
		"--with-perl",
	}
	if diff := cmp.Diff(want, p.ConfigureArgs); diff != "" {
		t.Errorf("configure args mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, p.HasArg("--with-ossp-uuid"))
	assert.Empty(t, p.ContribDirs)
	assert.Empty(t, p.Warnings)
	assert.Equal(t, Mutations{{Name: "CPPFLAGS", Op: OpAppend, Value: "-I/usr/include/libxml2"}}, p.Env)
}

func TestAssembleSkipPython(t *testing.T) {
	p := assemble(t, &Config{}, facts(false, platform.FamilyCore2, "--no-python"))

	assert.False(t, p.HasArg("--with-python"))
	assert.True(t, p.HasArg("--with-perl"))
	assert.Equal(t, []string{"no-python"}, p.Options)

	base := assemble(t, &Config{}, facts(false, platform.FamilyCore2))
	assert.Equal(t, len(base.ConfigureArgs)-1, len(p.ConfigureArgs))
}

func TestAssembleSkipPerl(t *testing.T) {
	p := assemble(t, &Config{}, facts(false, platform.FamilyCore2, "no-perl"))

	assert.True(t, p.HasArg("--with-python"))
	assert.False(t, p.HasArg("--with-perl"))
}

func TestAssembleOSSPUUID(t *testing.T) {
	cfg := &Config{Helper: StaticConfig{CFlags: "-I/x", LDFlags: "-L/y", Libs: "-luuid"}}
	p := assemble(t, cfg, facts(false, platform.FamilyCore2, "--ossp-uuid"))

	assert.True(t, p.HasArg("--with-ossp-uuid"))
	assert.Equal(t, []Mutation{{Name: "CFLAGS", Op: OpAppend, Value: "-I/x"}}, p.Env.For("CFLAGS"))
	assert.Equal(t, []Mutation{{Name: "LDFLAGS", Op: OpAppend, Value: "-L/y"}}, p.Env.For("LDFLAGS"))
	assert.Equal(t, []Mutation{{Name: "LIBS", Op: OpAppend, Value: "-luuid"}}, p.Env.For("LIBS"))
	assert.Equal(t, []string{UUIDContribDir}, p.ContribDirs)
	assert.Contains(t, p.Dependencies, "ossp-uuid")

	env := p.Env.Apply([]string{"CFLAGS=-Os", "PATH=/usr/bin"})
	assert.Equal(t, []string{"CFLAGS=-Os -I/x", "PATH=/usr/bin", "CPPFLAGS=-I/usr/include/libxml2", "LDFLAGS=-L/y", "LIBS=-luuid"}, env)
}

func TestAssembleOSSPUUIDDropsEmptyHelperOutput(t *testing.T) {
	cfg := &Config{Helper: StaticConfig{CFlags: "  ", LDFlags: "-L/y"}}
	p := assemble(t, cfg, facts(false, platform.FamilyCore2, "ossp-uuid"))

	assert.Empty(t, p.Env.For("CFLAGS"))
	assert.Empty(t, p.Env.For("LIBS"))
	assert.Len(t, p.Env.For("LDFLAGS"), 1)
}

func TestAssembleOSSPUUIDUsesUUIDConfig(t *testing.T) {
	fake := runnertest.New().
		Respond("uuid-config --cflags", "-I/usr/local/include\n").
		Respond("uuid-config --ldflags", "-L/usr/local/lib\n").
		Respond("uuid-config --libs", "-luuid\n")

	p := assemble(t, &Config{Helper: NewUUIDConfig(fake)}, facts(false, platform.FamilyCore2, "ossp-uuid"))

	assert.Equal(t, []string{"uuid-config --cflags", "uuid-config --ldflags", "uuid-config --libs"}, fake.Commands())
	assert.Equal(t, "-I/usr/local/include", p.Env.For("CFLAGS")[0].Value)
}

func TestAssembleHelperFailurePropagates(t *testing.T) {
	fake := runnertest.New().Fail("uuid-config --cflags", 127)

	_, err := NewAssembler(&Config{Helper: NewUUIDConfig(fake)}).
		Assemble(context.Background(), testFormula(t), facts(false, platform.FamilyCore2, "ossp-uuid"), testPaths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uuid-config --cflags")
}

func TestAssembleHelperMissing(t *testing.T) {
	fake := runnertest.New().Lack("uuid-config")

	_, err := NewAssembler(&Config{Helper: NewUUIDConfig(fake)}).
		Assemble(context.Background(), testFormula(t), facts(false, platform.FamilyCore2, "ossp-uuid"), testPaths)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHelperMissing)
	assert.Empty(t, fake.Calls)
}

func TestAssembleHelperNotQueriedWithoutFlag(t *testing.T) {
	fake := runnertest.New()
	assemble(t, &Config{Helper: NewUUIDConfig(fake)}, facts(true, platform.FamilyCore2))
	assert.Empty(t, fake.Calls)
}

func TestAssembleArchFlags(t *testing.T) {
	wide := assemble(t, &Config{}, facts(true, platform.FamilyCore2))
	assert.True(t, wide.HasArg(ArchFlags))
	assert.Equal(t, ArchFlags, wide.ConfigureArgs[len(wide.ConfigureArgs)-1])

	noPython := assemble(t, &Config{}, facts(true, platform.FamilyCore2, "no-python"))
	assert.False(t, noPython.HasArg(ArchFlags))

	narrow := assemble(t, &Config{}, facts(false, platform.FamilyCore2))
	assert.False(t, narrow.HasArg(ArchFlags))

	leopard := facts(true, platform.FamilyCore2)
	leopard.Version = platform.Leopard
	assert.False(t, assemble(t, &Config{}, leopard).HasArg(ArchFlags))

	arm := assemble(t, &Config{}, facts(true, platform.FamilyArm))
	assert.False(t, arm.HasArg(ArchFlags))
	assert.NotContains(t, arm.Guidance, "ARCHFLAGS")
}

func TestAssembleFrameworkPythonWarning(t *testing.T) {
	cfg := &Config{Prober: probe.Static{probe.FrameworkPython: {"i386", "ppc"}}}
	withWarning := assemble(t, cfg, facts(true, platform.FamilyCore2))

	require.Len(t, withWarning.Warnings, 1)
	assert.Contains(t, withWarning.Warnings[0], probe.FrameworkPython)
	assert.Contains(t, withWarning.Warnings[0], "does not have 64-bit support")

	// advisory only
	plain := assemble(t, &Config{}, facts(true, platform.FamilyCore2))
	assert.Equal(t, plain.ConfigureArgs, withWarning.ConfigureArgs)
	assert.Equal(t, plain.Env, withWarning.Env)

	universal := assemble(t, &Config{Prober: probe.Static{probe.FrameworkPython: {"i386", "x86_64"}}}, facts(true, platform.FamilyCore2))
	assert.Empty(t, universal.Warnings)

	absent := assemble(t, &Config{Prober: probe.Static{}}, facts(true, platform.FamilyCore2))
	assert.Empty(t, absent.Warnings)

	notProbed := assemble(t, cfg, facts(false, platform.FamilyCore2))
	assert.Empty(t, notProbed.Warnings)
}

type failingProber struct{}

func (failingProber) Archs(string) ([]string, bool, error) {
	return nil, true, errors.New("permission denied")
}

func TestAssembleProbeErrorIsAdvisory(t *testing.T) {
	p := assemble(t, &Config{Prober: failingProber{}}, facts(true, platform.FamilyCore2))

	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "permission denied")
	assert.True(t, p.HasArg(ArchFlags))
}

func TestAssembleCoreFamilyOptLevel(t *testing.T) {
	core := assemble(t, &Config{}, facts(false, platform.FamilyCore))
	assert.Equal(t, []Mutation{{Name: "CFLAGS", Op: OpOptLevel, Value: "-O2"}}, core.Env.For("CFLAGS"))
	assert.Equal(t, []Mutation{{Name: "CXXFLAGS", Op: OpOptLevel, Value: "-O2"}}, core.Env.For("CXXFLAGS"))

	for _, fam := range []platform.CPUFamily{platform.FamilyCore2, platform.FamilyPenryn, platform.FamilyUnknown, platform.FamilyArm} {
		p := assemble(t, &Config{}, facts(false, fam))
		for _, m := range p.Env {
			assert.NotEqual(t, OpOptLevel, m.Op, "family %s", fam)
		}
	}
}

func TestAssembleIgnoresUnknownFlags(t *testing.T) {
	plain := assemble(t, &Config{}, facts(true, platform.FamilyCore2))
	noisy := assemble(t, &Config{}, facts(true, platform.FamilyCore2, "--with-everything", "HEAD"))

	assert.Equal(t, plain.ConfigureArgs, noisy.ConfigureArgs)
	assert.Equal(t, plain.Env, noisy.Env)
	assert.Empty(t, noisy.Options)
}

func TestAssembleIgnoresUndeclaredOptions(t *testing.T) {
	f := *testFormula(t)
	f.Options = nil

	p, err := NewAssembler(&Config{}).Assemble(context.Background(), &f, facts(false, platform.FamilyCore2, "no-python", "ossp-uuid"), testPaths)
	require.NoError(t, err)
	assert.True(t, p.HasArg("--with-python"))
	assert.False(t, p.HasArg("--with-ossp-uuid"))
	assert.Empty(t, p.Options)
}

func TestAssembleRecordsOverridesAsSet(t *testing.T) {
	p := assemble(t, &Config{Overrides: map[string]string{
		"PYTHON":   "/usr/local/bin/python",
		"CPPFLAGS": "-I/opt/include",
	}}, facts(false, platform.FamilyCore2))

	assert.Equal(t, []Mutation{
		{Name: "CPPFLAGS", Op: OpSet, Value: "-I/opt/include"},
		{Name: "CPPFLAGS", Op: OpAppend, Value: "-I/usr/include/libxml2"},
	}, p.Env.For("CPPFLAGS"))

	env := p.Env.Apply([]string{"CPPFLAGS=-DSTALE"})
	assert.Equal(t, []string{
		"CPPFLAGS=-I/opt/include -I/usr/include/libxml2",
		"PYTHON=/usr/local/bin/python",
	}, env)
}

func TestAssembleRendersDescriptorAndGuidance(t *testing.T) {
	p := assemble(t, &Config{}, facts(true, platform.FamilyCore2))

	assert.Contains(t, p.Descriptor, "<string>/usr/local/Cellar/postgresql/8.4.4/bin/postgres</string>")
	assert.Contains(t, p.Descriptor, "<string>pgadmin</string>")
	assert.Contains(t, p.Guidance, "launchctl load -w /usr/local/Cellar/postgresql/8.4.4/org.postgresql.postgres.plist")
	assert.Contains(t, p.Guidance, "ARCHFLAGS")

	again := assemble(t, &Config{}, facts(true, platform.FamilyCore2))
	assert.Equal(t, p.Descriptor, again.Descriptor)

	narrow := assemble(t, &Config{}, facts(false, platform.FamilyCore2))
	assert.False(t, strings.Contains(narrow.Guidance, "ARCHFLAGS"))
}

func TestAssembleWithoutUser(t *testing.T) {
	f := facts(false, platform.FamilyCore2)
	f.User = ""

	p, err := NewAssembler(nil).Assemble(context.Background(), testFormula(t), f, testPaths)
	require.NoError(t, err)
	assert.Empty(t, p.Service.UserName)
	assert.Contains(t, p.Descriptor, "<key>UserName</key>")
	assert.Error(t, p.Service.Validate())
}

func TestAssembleFreezesArgs(t *testing.T) {
	p := assemble(t, &Config{}, facts(false, platform.FamilyCore2))
	assert.Equal(t, len(p.ConfigureArgs), cap(p.ConfigureArgs))
}
