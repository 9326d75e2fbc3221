package dist

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/ulikunitz/xz"
	"golang.org/x/sync/errgroup"
)

// ErrIntegrity is returned when a downloaded archive matches none of the
// hashes declared by the spec.
var ErrIntegrity = errors.New("dist: archive matches no declared hash")

// The Client downloads toolchain archives and extracts them into bundles.
type Client struct {
	// RoundTripper is, if defined, a custom roundtripper used for downloads.
	RoundTripper http.RoundTripper
	// Timeout is the request timeout for downloads. Defaults to no timeout.
	Timeout time.Duration
	// Logf is an optional hook receiving progress messages.
	Logf func(format string, args ...interface{})

	client     *http.Client
	clientInit sync.Once
}

func (c *Client) getClient() *http.Client {
	c.clientInit.Do(func() {
		c.client = &http.Client{
			Transport: c.RoundTripper,
			Timeout:   c.Timeout,
		}
	})

	return c.client
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}

// Fetch downloads the distribution archive, verifies it against the given
// hashes and extracts it, moving the archive's single top-level directory to
// dest. The archive's top-level directory must match the distribution's
// expected directory name; a mismatch is a configuration error, not
// something recovered from here.
func (c *Client) Fetch(ctx context.Context, d Distribution, hashes []string, dest string) (Bundle, error) {
	data, err := c.download(ctx, d.DownloadURL)
	if err != nil {
		return Bundle{}, err
	}

	c.logf("downloaded %s (%s)", d.DownloadURL, units.HumanSize(float64(len(data))))

	if err := verify(data, hashes); err != nil {
		return Bundle{}, fmt.Errorf("%w: %s", err, d.DownloadURL)
	}

	staging, err := os.MkdirTemp(filepath.Dir(dest), ".zig-extract-*")
	if err != nil {
		return Bundle{}, fmt.Errorf("dist: failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	top, err := extractTarXz(data, staging)
	if err != nil {
		return Bundle{}, fmt.Errorf("dist: failed to extract %s: %w", d.DownloadURL, err)
	}

	if top != d.DirName {
		return Bundle{}, fmt.Errorf("dist: archive extracts to %q, expected %q", top, d.DirName)
	}

	if err := os.RemoveAll(dest); err != nil {
		return Bundle{}, fmt.Errorf("dist: failed to replace %s: %w", dest, err)
	}
	if err := os.Rename(filepath.Join(staging, top), dest); err != nil {
		return Bundle{}, fmt.Errorf("dist: failed to move bundle to %s: %w", dest, err)
	}

	return Bundle{Dir: dest}, nil
}

// FetchAll downloads several distributions concurrently, each into a
// subdirectory of root named after its directory name. Hashes apply to all
// downloads; an archive needs to match only one of them.
func (c *Client) FetchAll(ctx context.Context, dists []Distribution, hashes []string, root string) ([]Bundle, error) {
	bundles := make([]Bundle, len(dists))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, d := range dists {
		i, d := i, d
		g.Go(func() error {
			bundle, err := c.Fetch(ctx, d, hashes, filepath.Join(root, d.DirName))
			if err != nil {
				return err
			}

			bundles[i] = bundle
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return bundles, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dist: invalid download url %q: %w", url, err)
	}

	res, err := c.getClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("dist: failed to download %s: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dist: failed to download %s: unexpected status %s", url, res.Status)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("dist: failed to download %s: %w", url, err)
	}

	return data, nil
}

// verify checks the archive against the declared hashes. An empty hash set
// disables verification.
func verify(data []byte, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	sum := sha256.Sum256(data)
	got := hex.EncodeToString(sum[:])

	for _, h := range hashes {
		if strings.EqualFold(h, got) {
			return nil
		}
	}

	return ErrIntegrity
}

// extractTarXz unpacks a .tar.xz archive into dir and returns the name of
// its single top-level directory. Archives with zero or multiple top-level
// entries, or with paths escaping dir, are rejected.
func extractTarXz(data []byte, dir string) (string, error) {
	xzr, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var top string
	tr := tar.NewReader(xzr)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		name := path.Clean(hdr.Name)
		if name == "." || name == ".." || strings.HasPrefix(name, "../") || strings.HasPrefix(name, "/") {
			return "", fmt.Errorf("archive entry %q escapes the extraction root", hdr.Name)
		}

		root := name
		if i := strings.IndexByte(name, '/'); i >= 0 {
			root = name[:i]
		}
		switch {
		case top == "":
			top = root
		case top != root:
			return "", fmt.Errorf("archive has multiple top-level entries: %q and %q", top, root)
		}

		target := filepath.Join(dir, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", err
			}
			f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return "", err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return "", err
			}
			if err := f.Close(); err != nil {
				return "", err
			}
		case tar.TypeSymlink:
			// Link targets get the same scrutiny as entry names: a link
			// leaving the archive's top-level directory would let later
			// entries write through it outside the extraction root.
			resolved := path.Clean(path.Join(path.Dir(name), hdr.Linkname))
			if strings.HasPrefix(hdr.Linkname, "/") || (resolved != root && !strings.HasPrefix(resolved, root+"/")) {
				return "", fmt.Errorf("archive symlink %q -> %q escapes the extraction root", hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return "", err
			}
		default:
			// Hard links, devices etc. do not occur in toolchain archives.
			return "", fmt.Errorf("archive entry %q has unsupported type %d", hdr.Name, hdr.Typeflag)
		}
	}

	if top == "" {
		return "", errors.New("archive is empty")
	}

	if fi, err := os.Stat(filepath.Join(dir, top)); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("archive top-level entry %q is not a directory", top)
	}

	return top, nil
}
