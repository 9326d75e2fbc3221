/*
Package zig synthesizes the shell commands build rules run to drive the Zig
compiler. Nothing in this package executes anything; it only decides what a
command looks like for each build unit kind and profile.
*/
package zig

import (
	"fmt"
	"strings"
)

// DefaultCompiler is the compiler reference used when none is configured.
const DefaultCompiler = "zig"

// Defaults carries the flag configuration shared by every synthesized
// command. It is resolved once per host environment and passed explicitly
// into each synthesis call; it is never mutated during a run.
type Defaults struct {
	// Compiler is the command or path the synthesized commands invoke.
	Compiler string
	// OptFlags are the compiler flags of the release profile, used when a
	// unit declares none of its own.
	OptFlags []string
	// DebugFlags are the compiler flags of the debug profile, used when a
	// unit declares none of its own.
	DebugFlags []string
	// LinkerFlags are appended after every binary unit's own linker flags.
	LinkerFlags []string
}

func (d Defaults) compiler() string {
	if d.Compiler != "" {
		return d.Compiler
	}
	return DefaultCompiler
}

// A Pair holds the two synthesized commands of a build unit, one per
// profile. Which one runs is the host's choice at execution time.
type Pair struct {
	Debug   string
	Release string
}

// join concatenates a flag list with single spaces, preserving order.
func join(parts []string) string {
	return strings.Join(parts, " ")
}

// fallback returns flags, or def when the unit declares no flags of its own.
func fallback(flags, def []string) []string {
	if len(flags) > 0 {
		return flags
	}
	return def
}

// Library synthesizes the command pair of a static library unit. Linker
// flags never appear in library commands; libraries are not linked.
func (d Defaults) Library(name string, srcs, compilerFlags, debugFlags []string) Pair {
	build := func(flags []string) string {
		return fmt.Sprintf("%s build-lib %s %s --name %s", d.compiler(), join(flags), join(srcs), name)
	}

	return Pair{
		Debug:   build(fallback(debugFlags, d.DebugFlags)),
		Release: build(fallback(compilerFlags, d.OptFlags)),
	}
}

// Binary synthesizes the command pair of an executable unit. objects is the
// unit's resolved archive and object inputs, in the order they are handed to
// the compiler. The configured default linker flags are appended after the
// caller's. Empty segments keep their separating space.
func (d Defaults) Binary(name string, compilerFlags, linkerFlags, debugFlags, objects []string) Pair {
	linker := join(append(append([]string(nil), linkerFlags...), d.LinkerFlags...))

	build := func(flags []string) string {
		return fmt.Sprintf("%s build-exe %s %s %s --name %s", d.compiler(), join(flags), linker, join(objects), name)
	}

	return Pair{
		Debug:   build(fallback(debugFlags, d.DebugFlags)),
		Release: build(fallback(compilerFlags, d.OptFlags)),
	}
}

// Test synthesizes the single command of a test unit, redirecting the
// runner's output to the unit's results file. Test units have no profile
// pair.
func (d Defaults) Test(name string, srcs []string) string {
	return fmt.Sprintf("%s test %s > %s.results", d.compiler(), join(srcs), name)
}
