/*
Package platform translates generic host OS/architecture names into the
naming scheme used by the Zig distribution host.
*/
package platform

import "runtime"

// Resolve maps a generic (OS, architecture) pair to the names used by the
// ziglang.org distribution archives. Values without an explicit mapping pass
// through unchanged, deferring any unsupported-platform error to the
// download step.
func Resolve(os, arch string) (vendorOS, vendorArch string) {
	vendorOS = os
	if os == "darwin" {
		vendorOS = "macos"
	}

	switch arch {
	case "arm64":
		vendorArch = "aarch64"
	case "amd64":
		vendorArch = "x86_64"
	default:
		vendorArch = arch
	}

	return vendorOS, vendorArch
}

// Key returns the composite "{os}-{arch}" key used to look up per-platform
// download URLs. It is built from the host's own names, not the vendor's.
func Key(os, arch string) string {
	return os + "-" + arch
}

// Host returns the OS and architecture of the current process.
func Host() (os, arch string) {
	return runtime.GOOS, runtime.GOARCH
}
