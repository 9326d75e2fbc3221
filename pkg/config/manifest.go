package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tmaxmax/zigrules/pkg/dist"
	"github.com/tmaxmax/zigrules/pkg/rules"
	"github.com/tmaxmax/zigrules/pkg/zig"
)

// A Manifest matches a zigbuild.yaml file: the toolchain pin plus the
// declared build units.
type Manifest struct {
	Toolchain ToolchainSpec `yaml:"toolchain"`
	Libraries []UnitSpec    `yaml:"libraries"`
	Binaries  []UnitSpec    `yaml:"binaries"`
	Tests     []TestSpec    `yaml:"tests"`
}

// ToolchainSpec pins the toolchain distribution.
type ToolchainSpec struct {
	Name    string   `yaml:"name"`
	Version string   `yaml:"version"`
	URL     URL      `yaml:"url"`
	Hashes  []string `yaml:"hashes"`
	Labels  []string `yaml:"labels"`
}

// URL is either a single download URL or a mapping from platform keys
// ("{os}-{arch}") to URLs.
type URL struct {
	Single     string
	ByPlatform map[string]string
}

func (u *URL) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&u.Single)
	case yaml.MappingNode:
		return node.Decode(&u.ByPlatform)
	default:
		return fmt.Errorf("config: url must be a string or a platform mapping, got yaml kind %d", node.Kind)
	}
}

// UnitSpec declares a library or binary unit.
type UnitSpec struct {
	Name          string   `yaml:"name"`
	Srcs          []string `yaml:"srcs"`
	Deps          []string `yaml:"deps"`
	CompilerFlags []string `yaml:"compiler_flags"`
	LinkerFlags   []string `yaml:"linker_flags"`
	DebugFlags    []string `yaml:"debug_flags"`
	Labels        []string `yaml:"labels"`
	Visibility    []string `yaml:"visibility"`
}

// TestSpec declares a test unit together with its host execution policies.
type TestSpec struct {
	UnitSpec `yaml:",inline"`
	Sandbox  bool     `yaml:"sandbox"`
	Timeout  Duration `yaml:"timeout"`
	Flaky    int      `yaml:"flaky"`
}

// Duration decodes Go duration strings ("30s", "2m") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: failed to parse manifest %s: %w", path, err)
	}

	if m.Toolchain.Name == "" {
		m.Toolchain.Name = "toolchain"
	}

	return &m, nil
}

func (u UnitSpec) unit() rules.Unit {
	return rules.Unit{
		Name:          u.Name,
		Srcs:          u.Srcs,
		Deps:          u.Deps,
		CompilerFlags: u.CompilerFlags,
		LinkerFlags:   u.LinkerFlags,
		DebugFlags:    u.DebugFlags,
		Labels:        u.Labels,
		Visibility:    u.Visibility,
	}
}

// DistSpec converts the manifest's toolchain pin into a distribution spec.
func (t ToolchainSpec) DistSpec() dist.Spec {
	return dist.Spec{
		Version:       t.Version,
		URL:           t.URL.Single,
		URLByPlatform: t.URL.ByPlatform,
		Hashes:        t.Hashes,
		Labels:        t.Labels,
	}
}

// Rules composes the manifest's declarations into host-consumable rules:
// the toolchain and its exported handles first, then libraries, binaries and
// tests in manifest order. Any declaration error aborts the whole
// composition.
func (m *Manifest) Rules(defaults zig.Defaults) ([]rules.Rule, error) {
	return m.RulesForHost(defaults, dist.CurrentHost())
}

// RulesForHost is Rules for an explicit host platform.
func (m *Manifest) RulesForHost(defaults zig.Defaults, host dist.Host) ([]rules.Rule, error) {
	c := rules.NewComposerForHost(defaults, host)

	out, err := c.Toolchain(m.Toolchain.Name, m.Toolchain.DistSpec())
	if err != nil {
		return nil, err
	}

	for _, lib := range m.Libraries {
		r, err := c.Library(lib.unit())
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	for _, bin := range m.Binaries {
		rs, err := c.Binary(bin.unit())
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}

	for _, test := range m.Tests {
		r, err := c.Test(test.unit(), rules.TestOptions{
			Sandbox: test.Sandbox,
			Timeout: time.Duration(test.Timeout),
			Flaky:   test.Flaky,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, nil
}
