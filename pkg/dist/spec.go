package dist

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/tmaxmax/zigrules/pkg/platform"
)

const (
	downloadHost  = "https://ziglang.org/download"
	archivePrefix = "zig"
	archiveExt    = ".tar.xz"
)

var (
	// ErrConflictingPin is returned when a spec pins both a version and a URL.
	ErrConflictingPin = errors.New("dist: version and url are mutually exclusive")
	// ErrUnpinned is returned when a spec pins neither a version nor a URL.
	ErrUnpinned = errors.New("dist: spec pins neither a version nor a url")
	// ErrPlatformUnmapped is returned when a per-platform URL map has no
	// entry for the host's platform key.
	ErrPlatformUnmapped = errors.New("dist: no url for host platform")
)

// Spec describes where a toolchain distribution comes from. Exactly one of
// Version, URL or URLByPlatform must be set. URLByPlatform is keyed by
// platform.Key values of the host, not vendor names.
type Spec struct {
	Version       string
	URL           string
	URLByPlatform map[string]string
	Hashes        []string
	Labels        []string
}

// Host identifies the machine a toolchain will run on, in generic
// (runtime.GOOS/GOARCH style) names.
type Host struct {
	OS   string
	Arch string
}

// CurrentHost snapshots the platform of the current process. It is computed
// per call, never cached, since every resolution may run on a different host.
func CurrentHost() Host {
	os, arch := platform.Host()
	return Host{OS: os, Arch: arch}
}

// Key returns the host's composite platform key, e.g. "linux-amd64".
func (h Host) Key() string {
	return platform.Key(h.OS, h.Arch)
}

// Distribution is a fully resolved download: the identifier to fetch and the
// top-level directory name the archive is expected to extract to.
type Distribution struct {
	DownloadURL string
	DirName     string
	Version     string
}

// Resolve turns a spec into the distribution for the given host. It fails if
// the spec pins both a version and a URL, pins neither, or maps URLs per
// platform without covering the host.
func Resolve(spec Spec, host Host) (Distribution, error) {
	urlPinned := spec.URL != "" || len(spec.URLByPlatform) > 0
	if spec.Version != "" && urlPinned {
		return Distribution{}, ErrConflictingPin
	}

	vendorOS, vendorArch := platform.Resolve(host.OS, host.Arch)

	switch {
	case spec.Version != "":
		name := dirName(vendorOS, vendorArch, spec.Version)
		return Distribution{
			DownloadURL: fmt.Sprintf("%s/%s/%s%s", downloadHost, spec.Version, name, archiveExt),
			DirName:     name,
			Version:     spec.Version,
		}, nil
	case spec.URL != "":
		return fromLiteralURL(spec.URL, vendorOS, vendorArch)
	case len(spec.URLByPlatform) > 0:
		url, ok := spec.URLByPlatform[host.Key()]
		if !ok {
			return Distribution{}, fmt.Errorf("%w: %q", ErrPlatformUnmapped, host.Key())
		}
		return fromLiteralURL(url, vendorOS, vendorArch)
	default:
		return Distribution{}, ErrUnpinned
	}
}

func dirName(vendorOS, vendorArch, version string) string {
	return strings.Join([]string{archivePrefix, vendorArch, vendorOS, version}, "-")
}

// fromLiteralURL uses the URL verbatim and infers the version from the
// archive filename. The inference only works when the filename follows the
// vendor layout; the extractor later confirms the real directory name
// against the archive contents.
func fromLiteralURL(url, vendorOS, vendorArch string) (Distribution, error) {
	version := versionFromURL(url)
	if version == "" {
		return Distribution{}, fmt.Errorf("dist: cannot infer version from url %q", url)
	}

	return Distribution{
		DownloadURL: url,
		DirName:     dirName(vendorOS, vendorArch, version),
		Version:     version,
	}, nil
}

// versionFromURL extracts the trailing dash-separated field of the archive
// filename. Versions hold no dashes in the vendor layout.
func versionFromURL(url string) string {
	base := path.Base(url)
	for _, ext := range []string{".tar.xz", ".tar.gz", ".zip"} {
		base = strings.TrimSuffix(base, ext)
	}

	i := strings.LastIndexByte(base, '-')
	if i < 0 || i+1 == len(base) {
		return ""
	}

	return base[i+1:]
}
