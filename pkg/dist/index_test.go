package dist_test

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmaxmax/zigrules/pkg/dist"
)

//go:embed testdata/download.html
var indexData embed.FS

func newIndexServer(tb testing.TB) *httptest.Server {
	tb.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		data, err := fs.ReadFile(indexData, "testdata/download.html")
		require.NoError(tb, err)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	}))
	tb.Cleanup(server.Close)

	return server
}

// rewriteTransport redirects every request to the test server while keeping
// the original path, so the index's fixed endpoint stays untouched.
type rewriteTransport struct {
	baseURL *url.URL
	rt      http.RoundTripper
}

var _ http.RoundTripper = (*rewriteTransport)(nil)

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.baseURL.Scheme
	req.URL.Host = t.baseURL.Host
	return t.rt.RoundTrip(req)
}

func newIndex(tb testing.TB, serverURL string) *dist.Index {
	tb.Helper()

	baseURL, err := url.Parse(serverURL)
	require.NoError(tb, err)

	return &dist.Index{
		RoundTripper: &rewriteTransport{baseURL: baseURL, rt: &http.Transport{}},
	}
}

func TestIndex_Releases(t *testing.T) {
	server := newIndexServer(t)
	index := newIndex(t, server.URL)

	releases, err := index.Releases(context.Background())
	require.NoError(t, err)

	require.Equal(t, []dist.Release{
		{
			Version: "0.12.0",
			Archives: []dist.Archive{
				{
					Filename: "zig-x86_64-linux-0.12.0.tar.xz",
					URL:      "https://ziglang.org/download/0.12.0/zig-x86_64-linux-0.12.0.tar.xz",
					Shasum:   "c7ae866b8a76a568e2d5cfd31fe89cdb629bdd161fdd5018b29a4a0a17045cad",
				},
				{
					Filename: "zig-aarch64-macos-0.12.0.tar.xz",
					URL:      "https://ziglang.org/download/0.12.0/zig-aarch64-macos-0.12.0.tar.xz",
					Shasum:   "294e224c14fd0822cfb15a35cf39aa14bd9967867999bf8bdfe3db7ddec2a27f",
				},
			},
		},
		{
			Version: "0.11.0",
			Archives: []dist.Archive{
				{
					Filename: "zig-aarch64-macos-0.11.0.tar.xz",
					URL:      "https://ziglang.org/download/0.11.0/zig-aarch64-macos-0.11.0.tar.xz",
					Shasum:   "c6ebf927bb13a707d74267474a9f553274e64906fd21bf1c75a20bde8cadf7b2",
				},
			},
		},
	}, releases)
}

func TestIndex_FindRelease(t *testing.T) {
	server := newIndexServer(t)
	index := newIndex(t, server.URL)

	release, err := index.FindRelease(context.Background(), "0.11.0")
	require.NoError(t, err)
	require.Equal(t, "0.11.0", release.Version)
	require.Len(t, release.Archives, 1)

	_, err = index.FindRelease(context.Background(), "0.10.1")
	require.Error(t, err)
}
