/*
Package dist resolves, downloads and extracts Zig toolchain distributions.
It turns a version or URL pin into a deterministic download identifier and
extracted-directory name, verifies archive integrity, and exposes the
resulting bundle through stable entry points so dependents never touch the
internal layout of the toolchain tree.
*/
package dist
