package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tmaxmax/zigrules/pkg/dist"
	"github.com/tmaxmax/zigrules/pkg/zig"
)

var (
	// ErrDuplicateRule is returned when two rules are declared under the
	// same name.
	ErrDuplicateRule = errors.New("rules: rule already declared")
	// ErrUnknownDep is returned when a unit depends on a rule that has not
	// been declared yet. Dependencies must be declared before dependents so
	// their artifacts can be resolved.
	ErrUnknownDep = errors.New("rules: dependency not declared")
	// ErrPrivateDep is returned when a unit depends on a binary's generated
	// library sub-unit, which is addressable only within its parent's
	// declaration.
	ErrPrivateDep = errors.New("rules: dependency is a private sub-unit")
)

// isPrivateName reports whether name follows the generated sub-unit naming
// convention, "_<parent>#lib".
func isPrivateName(name string) bool {
	return strings.HasPrefix(name, "_") && strings.HasSuffix(name, "#lib")
}

// A Composer binds command synthesis and dependency metadata into rule
// declarations. Rules declared through the same composer form one declared
// set: a binary's archive inputs are resolved by querying the outputs of the
// transitive dependency closure within that set, so dependencies must be
// declared before their dependents. The flag defaults are snapshotted at
// construction and read-only afterwards.
type Composer struct {
	host     dist.Host
	flags    zig.Defaults
	compiler string
	declared map[string]*Rule
}

// NewComposer returns a composer using the given flag configuration. The
// compiler tool reference starts as the configured compiler and is replaced
// by the toolchain's exported compiler once a toolchain rule is declared.
func NewComposer(flags zig.Defaults) *Composer {
	return &Composer{
		host:     dist.CurrentHost(),
		flags:    flags,
		declared: map[string]*Rule{},
	}
}

// NewComposerForHost is NewComposer for an explicit host platform, used when
// declarations target a different machine than the one composing them.
func NewComposerForHost(flags zig.Defaults, host dist.Host) *Composer {
	c := NewComposer(flags)
	c.host = host
	return c
}

func (c *Composer) record(r *Rule) error {
	if c.declared[r.Name] != nil {
		return fmt.Errorf("%w: %q", ErrDuplicateRule, r.Name)
	}
	c.declared[r.Name] = r
	return nil
}

func (c *Composer) tools() map[string]string {
	ref := c.compiler
	if ref == "" {
		ref = c.flags.Compiler
	}
	if ref == "" {
		ref = zig.DefaultCompiler
	}
	return map[string]string{ToolCompiler: ref}
}

// Toolchain declares the rule that provisions a Zig distribution, plus the
// two handles dependents reference: an executable re-export of the compiler
// entry point named "<name>_zig" and a complete filegroup snapshot of the
// standard library named "<name>_std". Configuration contradictions fail
// here, before any command is synthesized or download attempted.
func (c *Composer) Toolchain(name string, spec dist.Spec) ([]Rule, error) {
	d, err := dist.Resolve(spec, c.host)
	if err != nil {
		return nil, fmt.Errorf("rules: toolchain %q: %w", name, err)
	}

	bundle := dist.Bundle{Dir: d.DirName}

	toolchain := Rule{
		Name:        name,
		Kind:        KindToolchain,
		Outs:        []string{d.DirName},
		Labels:      spec.Labels,
		URL:         d.DownloadURL,
		Hashes:      spec.Hashes,
		EntryPoints: bundle.EntryPoints(),
	}

	compiler := Rule{
		Name:       name + "_zig",
		Kind:       KindFilegroup,
		Srcs:       []string{entryPointRef(name, dist.EntryPointCompiler)},
		Deps:       []string{name},
		Visibility: []string{"PUBLIC"},
		Executable: true,
	}

	stdlib := Rule{
		Name:       name + "_std",
		Kind:       KindFilegroup,
		Srcs:       []string{entryPointRef(name, dist.EntryPointStdlib)},
		Deps:       []string{name},
		Visibility: []string{"PUBLIC"},
	}

	// Validate every name before recording any, so a collision leaves no
	// partial declaration behind.
	all := []*Rule{&toolchain, &compiler, &stdlib}
	for _, r := range all {
		if c.declared[r.Name] != nil {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRule, r.Name)
		}
	}
	for _, r := range all {
		c.declared[r.Name] = r
	}

	c.compiler = ":" + compiler.Name

	return []Rule{toolchain, compiler, stdlib}, nil
}

// entryPointRef names an entry point of a declared rule, ":rule|entrypoint".
func entryPointRef(rule, entryPoint string) string {
	return ":" + rule + "|" + entryPoint
}

// Library declares a static library unit. Its archive output is "<name>.a".
func (c *Composer) Library(u Unit) (Rule, error) {
	if err := c.checkDeps(u.Deps); err != nil {
		return Rule{}, fmt.Errorf("rules: library %q: %w", u.Name, err)
	}

	pair := c.flags.Library(u.Name, u.Srcs, u.CompilerFlags, u.DebugFlags)

	r := Rule{
		Name: u.Name,
		Kind: KindLibrary,
		Srcs: u.Srcs,
		Deps: u.Deps,
		Outs: []string{u.Name + ".a"},
		Commands: map[string]string{
			ProfileDebug:   pair.Debug,
			ProfileRelease: pair.Release,
		},
		Tools:               c.tools(),
		Labels:              u.Labels,
		Visibility:          u.Visibility,
		NeedsTransitiveDeps: true,
		Requires:            []string{CapabilityZig},
	}

	if err := c.record(&r); err != nil {
		return Rule{}, err
	}

	return r, nil
}

// Binary declares an executable unit. A unit with sources owns a private
// library sub-unit named "_<name>#lib" holding those sources; the sub-unit
// is added to the binary's dependency set and returned first, so the host's
// dependency-first order compiles it before the binary links. The binary's
// commands embed the archive and object outputs of the transitive dependency
// closure.
func (c *Composer) Binary(u Unit) ([]Rule, error) {
	if err := c.checkDeps(u.Deps); err != nil {
		return nil, fmt.Errorf("rules: binary %q: %w", u.Name, err)
	}

	var out []Rule
	deps := append([]string(nil), u.Deps...)

	if len(u.Srcs) > 0 {
		lib, err := c.Library(Unit{
			Name:          "_" + u.Name + "#lib",
			Srcs:          u.Srcs,
			CompilerFlags: u.CompilerFlags,
			DebugFlags:    u.DebugFlags,
		})
		if err != nil {
			return nil, err
		}

		deps = append(deps, lib.Name)
		out = append(out, lib)
	}

	objects, err := c.artifacts(deps)
	if err != nil {
		return nil, fmt.Errorf("rules: binary %q: %w", u.Name, err)
	}

	pair := c.flags.Binary(u.Name, u.CompilerFlags, u.LinkerFlags, u.DebugFlags, objects)

	r := Rule{
		Name: u.Name,
		Kind: KindBinary,
		Deps: deps,
		Outs: []string{u.Name},
		Commands: map[string]string{
			ProfileDebug:   pair.Debug,
			ProfileRelease: pair.Release,
		},
		Tools:               c.tools(),
		Labels:              u.Labels,
		Visibility:          u.Visibility,
		NeedsTransitiveDeps: true,
		Requires:            []string{CapabilityZig},
		Executable:          true,
	}

	if err := c.record(&r); err != nil {
		return nil, err
	}

	return append(out, r), nil
}

// Test declares a test unit. Its results land in "<name>.results". The
// options are host execution policies and pass through unmodified.
func (c *Composer) Test(u Unit, opts TestOptions) (Rule, error) {
	if err := c.checkDeps(u.Deps); err != nil {
		return Rule{}, fmt.Errorf("rules: test %q: %w", u.Name, err)
	}

	r := Rule{
		Name: u.Name,
		Kind: KindTest,
		Srcs: u.Srcs,
		Deps: u.Deps,
		Outs: []string{u.Name + ".results"},
		Commands: map[string]string{
			ProfileTest: c.flags.Test(u.Name, u.Srcs),
		},
		Tools:      c.tools(),
		Labels:     u.Labels,
		Visibility: u.Visibility,
		Requires:   []string{CapabilityZig},
		Sandbox:    opts.Sandbox,
		Timeout:    opts.Timeout,
		Flaky:      opts.Flaky,
	}

	if err := c.record(&r); err != nil {
		return Rule{}, err
	}

	return r, nil
}

func (c *Composer) checkDeps(deps []string) error {
	for _, dep := range deps {
		if isPrivateName(dep) {
			return fmt.Errorf("%w: %q", ErrPrivateDep, dep)
		}
		if c.declared[dep] == nil {
			return fmt.Errorf("%w: %q", ErrUnknownDep, dep)
		}
	}
	return nil
}

// artifacts resolves the archive and object outputs of the transitive
// closure of deps within the declared set, sorted for determinism. This is
// the explicit counterpart of scanning the input tree for *.a and *.o
// files: the query sees exactly what the declared dependencies produce,
// independent of the host's output layout.
func (c *Composer) artifacts(deps []string) ([]string, error) {
	seen := map[string]bool{}
	var objects []string

	var walk func(deps []string) error
	walk = func(deps []string) error {
		for _, dep := range deps {
			if seen[dep] {
				continue
			}
			seen[dep] = true

			r := c.declared[dep]
			if r == nil {
				return fmt.Errorf("%w: %q", ErrUnknownDep, dep)
			}

			for _, out := range r.Outs {
				if strings.HasSuffix(out, ".a") || strings.HasSuffix(out, ".o") {
					objects = append(objects, out)
				}
			}

			if err := walk(r.Deps); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(deps); err != nil {
		return nil, err
	}

	sort.Strings(objects)
	return objects, nil
}

// Declared returns the rule declared under the given name, if any.
func (c *Composer) Declared(name string) (Rule, bool) {
	r := c.declared[name]
	if r == nil {
		return Rule{}, false
	}
	return *r, true
}
