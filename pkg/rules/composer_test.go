package rules_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tmaxmax/zigrules/pkg/dist"
	"github.com/tmaxmax/zigrules/pkg/rules"
	"github.com/tmaxmax/zigrules/pkg/zig"
)

var testHost = dist.Host{OS: "linux", Arch: "amd64"}

func newComposer(tb testing.TB, flags zig.Defaults) *rules.Composer {
	tb.Helper()

	return rules.NewComposerForHost(flags, testHost)
}

func TestComposer_Toolchain(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	rs, err := c.Toolchain("zig", dist.Spec{Version: "0.11.0", Labels: []string{"toolchain"}})
	require.NoError(t, err)
	require.Len(t, rs, 3)

	toolchain, compiler, stdlib := rs[0], rs[1], rs[2]

	require.Equal(t, "zig", toolchain.Name)
	require.Equal(t, rules.KindToolchain, toolchain.Kind)
	require.Equal(t, "https://ziglang.org/download/0.11.0/zig-x86_64-linux-0.11.0.tar.xz", toolchain.URL)
	require.Equal(t, []string{"zig-x86_64-linux-0.11.0"}, toolchain.Outs)
	require.Equal(t, []string{"toolchain"}, toolchain.Labels)
	require.Equal(t, map[string]string{
		"compiler": "zig-x86_64-linux-0.11.0/zig",
		"stdlib":   "zig-x86_64-linux-0.11.0/lib",
	}, toolchain.EntryPoints)

	require.Equal(t, "zig_zig", compiler.Name)
	require.True(t, compiler.Executable)
	require.Equal(t, []string{":zig|compiler"}, compiler.Srcs)
	require.Equal(t, []string{"PUBLIC"}, compiler.Visibility)

	require.Equal(t, "zig_std", stdlib.Name)
	require.False(t, stdlib.Executable)
	require.Equal(t, []string{":zig|stdlib"}, stdlib.Srcs)

	// Subsequent units bind the exported compiler as their tool.
	lib, err := c.Library(rules.Unit{Name: "core", Srcs: []string{"core.zig"}})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"compiler": ":zig_zig"}, lib.Tools)
}

func TestComposer_Toolchain_ConflictFailsEagerly(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	_, err := c.Toolchain("zig", dist.Spec{Version: "0.11.0", URL: "https://x/y.tar.xz"})
	require.ErrorIs(t, err, dist.ErrConflictingPin)

	// No partial declarations survive the failure.
	_, declared := c.Declared("zig")
	require.False(t, declared)
	_, declared = c.Declared("zig_zig")
	require.False(t, declared)
}

func TestComposer_Toolchain_HandleNameCollision(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	_, err := c.Library(rules.Unit{Name: "zig_zig", Srcs: []string{"core.zig"}})
	require.NoError(t, err)

	_, err = c.Toolchain("zig", dist.Spec{Version: "0.11.0"})
	require.ErrorIs(t, err, rules.ErrDuplicateRule)

	// The toolchain rule itself must not survive the collision either.
	_, declared := c.Declared("zig")
	require.False(t, declared)
	_, declared = c.Declared("zig_std")
	require.False(t, declared)
}

func TestComposer_Toolchain_UnmappedPlatform(t *testing.T) {
	c := rules.NewComposerForHost(zig.Defaults{}, dist.Host{OS: "darwin", Arch: "arm64"})

	_, err := c.Toolchain("zig", dist.Spec{URLByPlatform: map[string]string{
		"linux-amd64": "https://x/y.tar.xz",
	}})

	require.ErrorIs(t, err, dist.ErrPlatformUnmapped)
}

func TestComposer_Library(t *testing.T) {
	c := newComposer(t, zig.Defaults{OptFlags: []string{"-O2"}, DebugFlags: []string{"-g"}})

	r, err := c.Library(rules.Unit{
		Name:       "core",
		Srcs:       []string{"core.zig", "util.zig"},
		Labels:     []string{"zig"},
		Visibility: []string{"//..."},
	})
	require.NoError(t, err)

	require.Equal(t, rules.KindLibrary, r.Kind)
	require.Equal(t, []string{"core.a"}, r.Outs)
	require.Equal(t, "zig build-lib -O2 core.zig util.zig --name core", r.Commands[rules.ProfileRelease])
	require.Equal(t, "zig build-lib -g core.zig util.zig --name core", r.Commands[rules.ProfileDebug])
	require.True(t, r.NeedsTransitiveDeps)
	require.Equal(t, []string{"zig"}, r.Requires)
}

func TestComposer_Binary(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	rs, err := c.Binary(rules.Unit{
		Name:          "app",
		Srcs:          []string{"a.zig"},
		CompilerFlags: []string{"-O2"},
	})
	require.NoError(t, err)
	require.Len(t, rs, 2)

	lib, bin := rs[0], rs[1]

	require.Equal(t, "_app#lib", lib.Name)
	require.Equal(t, rules.KindLibrary, lib.Kind)
	require.Equal(t, []string{"a.zig"}, lib.Srcs)

	require.Equal(t, rules.KindBinary, bin.Kind)
	require.Contains(t, bin.Deps, "_app#lib")
	require.Empty(t, bin.Srcs)
	require.True(t, bin.Executable)
	require.True(t, bin.NeedsTransitiveDeps)

	// The empty linker-flag segment keeps its separating space.
	require.Equal(t, "zig build-exe -O2  _app#lib.a --name app", bin.Commands[rules.ProfileRelease])
	require.Equal(t, "zig build-exe   _app#lib.a --name app", bin.Commands[rules.ProfileDebug])
}

func TestComposer_Binary_TransitiveArchives(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	_, err := c.Library(rules.Unit{Name: "core", Srcs: []string{"core.zig"}})
	require.NoError(t, err)
	_, err = c.Library(rules.Unit{Name: "net", Srcs: []string{"net.zig"}, Deps: []string{"core"}})
	require.NoError(t, err)

	rs, err := c.Binary(rules.Unit{
		Name:          "app",
		Srcs:          []string{"main.zig"},
		Deps:          []string{"net"},
		CompilerFlags: []string{"-O2"},
	})
	require.NoError(t, err)

	bin := rs[len(rs)-1]

	// Archives of the whole dependency closure, sorted, own sub-unit included.
	require.Equal(t, "zig build-exe -O2  _app#lib.a core.a net.a --name app", bin.Commands[rules.ProfileRelease])
}

func TestComposer_Binary_NoSrcs(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	_, err := c.Library(rules.Unit{Name: "core", Srcs: []string{"core.zig"}})
	require.NoError(t, err)

	rs, err := c.Binary(rules.Unit{Name: "app", Deps: []string{"core"}})
	require.NoError(t, err)
	require.Len(t, rs, 1, "no implicit sub-unit without sources")

	require.Equal(t, []string{"core"}, rs[0].Deps)
	require.Contains(t, rs[0].Commands[rules.ProfileRelease], "core.a")
}

func TestComposer_Binary_UnknownDep(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	_, err := c.Binary(rules.Unit{Name: "app", Srcs: []string{"a.zig"}, Deps: []string{"missing"}})

	require.ErrorIs(t, err, rules.ErrUnknownDep)
}

func TestComposer_PrivateSubUnitNotAddressable(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	_, err := c.Binary(rules.Unit{Name: "app", Srcs: []string{"a.zig"}})
	require.NoError(t, err)

	// The generated sub-unit exists in the declared set, but only its parent
	// may reference it.
	_, declared := c.Declared("_app#lib")
	require.True(t, declared)

	_, err = c.Library(rules.Unit{Name: "other", Srcs: []string{"b.zig"}, Deps: []string{"_app#lib"}})
	require.ErrorIs(t, err, rules.ErrPrivateDep)

	_, err = c.Binary(rules.Unit{Name: "tool", Srcs: []string{"c.zig"}, Deps: []string{"_app#lib"}})
	require.ErrorIs(t, err, rules.ErrPrivateDep)

	_, err = c.Test(rules.Unit{Name: "app_test", Srcs: []string{"t.zig"}, Deps: []string{"_app#lib"}}, rules.TestOptions{})
	require.ErrorIs(t, err, rules.ErrPrivateDep)
}

func TestComposer_Test(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	r, err := c.Test(rules.Unit{
		Name: "core_test",
		Srcs: []string{"core_test.zig"},
	}, rules.TestOptions{
		Sandbox: true,
		Timeout: 30 * time.Second,
		Flaky:   2,
	})
	require.NoError(t, err)

	require.Equal(t, rules.KindTest, r.Kind)
	require.Equal(t, []string{"core_test.results"}, r.Outs)
	require.Equal(t, "zig test core_test.zig > core_test.results", r.Commands[rules.ProfileTest])
	require.False(t, r.NeedsTransitiveDeps)
	require.Equal(t, []string{"zig"}, r.Requires)

	require.True(t, r.Sandbox)
	require.Equal(t, 30*time.Second, r.Timeout)
	require.Equal(t, 2, r.Flaky)
}

func TestComposer_DuplicateName(t *testing.T) {
	c := newComposer(t, zig.Defaults{})

	_, err := c.Library(rules.Unit{Name: "core", Srcs: []string{"core.zig"}})
	require.NoError(t, err)

	_, err = c.Library(rules.Unit{Name: "core", Srcs: []string{"other.zig"}})
	require.ErrorIs(t, err, rules.ErrDuplicateRule)
}
