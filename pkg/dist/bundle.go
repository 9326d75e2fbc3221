package dist

import "path/filepath"

// Entry point names a bundle exposes to dependents.
const (
	EntryPointCompiler = "compiler"
	EntryPointStdlib   = "stdlib"
)

// Bundle is an extracted toolchain tree. It exposes exactly two entry
// points, the compiler executable and the bundled standard library sources,
// so dependents never depend on the internal layout.
type Bundle struct {
	Dir string
}

// Compiler returns the path to the zig executable.
func (b Bundle) Compiler() string {
	return filepath.Join(b.Dir, "zig")
}

// Stdlib returns the path to the directory holding the standard library
// sources.
func (b Bundle) Stdlib() string {
	return filepath.Join(b.Dir, "lib")
}

// EntryPoints returns the bundle's named entry points, relative paths keyed
// by their stable symbolic names.
func (b Bundle) EntryPoints() map[string]string {
	return map[string]string{
		EntryPointCompiler: b.Compiler(),
		EntryPointStdlib:   b.Stdlib(),
	}
}
