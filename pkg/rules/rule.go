/*
Package rules composes host-consumable build rule declarations for Zig
toolchains and build units. It binds synthesized commands, dependency and
tool metadata into declarations a generic build orchestrator can schedule;
it performs no scheduling, downloading or compilation itself.
*/
package rules

import "time"

// Kind discriminates the declared rule kinds.
type Kind string

const (
	KindToolchain Kind = "toolchain"
	KindLibrary   Kind = "library"
	KindBinary    Kind = "binary"
	KindTest      Kind = "test"
	KindFilegroup Kind = "filegroup"
)

// Profile names key a rule's command map.
const (
	ProfileDebug   = "dbg"
	ProfileRelease = "opt"
	ProfileTest    = "test"
)

// CapabilityZig marks rules that need the Zig toolchain provisioned before
// they execute. The host schedules toolchain availability accordingly.
const CapabilityZig = "zig"

// ToolCompiler is the symbolic tool name rules bind the configured compiler
// entry point to.
const ToolCompiler = "compiler"

// A Rule is a single declaration the host orchestrator consumes. Commands
// are keyed by profile name; the host picks the profile at execution time.
type Rule struct {
	Name string   `json:"name"`
	Kind Kind     `json:"kind"`
	Srcs []string `json:"srcs,omitempty"`
	Deps []string `json:"deps,omitempty"`
	Outs []string `json:"outs,omitempty"`
	// Commands keyed by profile. Test rules carry a single "test" command.
	Commands map[string]string `json:"cmd,omitempty"`
	// Tools binds symbolic tool names to entry points.
	Tools      map[string]string `json:"tools,omitempty"`
	Labels     []string          `json:"labels,omitempty"`
	Visibility []string          `json:"visibility,omitempty"`
	// NeedsTransitiveDeps is set on rules whose commands reference outputs
	// of transitively depended units.
	NeedsTransitiveDeps bool     `json:"needs_transitive_deps,omitempty"`
	Requires            []string `json:"requires,omitempty"`
	// Executable marks rules whose single output is runnable.
	Executable bool `json:"executable,omitempty"`

	// Toolchain provisioning inputs, set on toolchain rules only. The host's
	// download and extract primitives consume them.
	URL    string   `json:"url,omitempty"`
	Hashes []string `json:"hashes,omitempty"`
	// EntryPoints exposes named paths inside the provisioned tree.
	EntryPoints map[string]string `json:"entry_points,omitempty"`

	// Host-level test execution policies, passed through unmodified.
	Sandbox bool          `json:"sandbox,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
	Flaky   int           `json:"flaky,omitempty"`
}

// TestOptions are host-interpreted execution policies of a test unit. They
// do not affect command synthesis.
type TestOptions struct {
	// Sandbox restricts network, process and IPC namespaces of the test
	// where the host's execution environment supports it.
	Sandbox bool
	// Timeout after which the host kills the test.
	Timeout time.Duration
	// Flaky is the host's retry budget for the test.
	Flaky int
}

// A Unit declares a compilation target before composition.
type Unit struct {
	Name          string
	Srcs          []string
	Deps          []string
	CompilerFlags []string
	LinkerFlags   []string
	DebugFlags    []string
	Labels        []string
	Visibility    []string
}
