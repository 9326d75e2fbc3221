package dist

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/debug"
)

const (
	indexDomain   = "ziglang.org"
	indexEndpoint = "https://" + indexDomain + "/download/"
)

// An Archive is a single downloadable build of a release, as listed on the
// distribution host's download page.
type Archive struct {
	// Filename of the archive, in the vendor layout.
	Filename string
	// URL the archive is downloaded from.
	URL string
	// Shasum is the SHA-256 checksum published next to the archive.
	Shasum string
}

// A Release is a published toolchain version together with its per-platform
// archives.
type Release struct {
	Version  string
	Archives []Archive
}

// The Index retrieves the list of released toolchain versions by scraping
// the distribution host's download page.
type Index struct {
	// CacheDir specifies a location where GET requests the scraper makes
	// are cached as files. Caching is disabled if not provided.
	CacheDir string
	// Debugger is an optional debugger implementation used by the scraper.
	Debugger debug.Debugger
	// RoundTripper is, if defined, a custom roundtripper used by the scraper.
	RoundTripper http.RoundTripper
	// Timeout is the request timeout for the scraper. Defaults to no timeout.
	Timeout time.Duration

	collector     *colly.Collector
	collectorInit sync.Once
}

func (i *Index) getCollector(ctx context.Context) *colly.Collector {
	i.collectorInit.Do(func() {
		col := colly.NewCollector()
		col.AllowedDomains = []string{indexDomain, "www." + indexDomain}
		col.CacheDir = i.CacheDir
		col.AllowURLRevisit = true
		if i.Debugger != nil {
			col.SetDebugger(i.Debugger)
		}
		col.WithTransport(i.RoundTripper)
		col.SetRequestTimeout(i.Timeout)

		i.collector = col
	})

	col := i.collector.Clone()
	col.Context = ctx
	return col
}

// Releases returns the published releases, newest first, in the order the
// download page lists them.
// It returns an error if the page cannot be fetched or parsed.
func (i *Index) Releases(ctx context.Context) ([]Release, error) {
	col := i.getCollector(ctx)

	var releases []Release

	col.OnHTML(`h2[id^="release-"] + table`, func(h *colly.HTMLElement) {
		release := Release{
			Version: strings.TrimPrefix(h.DOM.Prev().AttrOr("id", ""), "release-"),
		}

		h.ForEach(`tr`, func(_ int, row *colly.HTMLElement) {
			href := row.ChildAttr(`a`, "href")
			if href == "" {
				// Header row.
				return
			}

			release.Archives = append(release.Archives, Archive{
				Filename: strings.TrimSpace(row.ChildText(`a`)),
				URL:      row.Request.AbsoluteURL(href),
				Shasum:   strings.TrimSpace(row.ChildText(`.shasum`)),
			})
		})

		releases = append(releases, release)
	})

	if err := col.Visit(indexEndpoint); err != nil {
		return nil, fmt.Errorf("dist: failed to list releases: %w", err)
	}

	return releases, nil
}

// FindRelease returns the release with the given version.
// It returns an error if the version is not published.
func (i *Index) FindRelease(ctx context.Context, version string) (*Release, error) {
	releases, err := i.Releases(ctx)
	if err != nil {
		return nil, err
	}

	for _, release := range releases {
		if release.Version == version {
			release := release
			return &release, nil
		}
	}

	return nil, fmt.Errorf("dist: version %q is not published", version)
}
