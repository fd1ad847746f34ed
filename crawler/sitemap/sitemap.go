// Package sitemap harvests URLs advertised through a domain's sitemap
// files, recursing through sitemap indexes with a bounded depth.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayfilter/crawler/crawler/urlutil"
)

const (
	probeTimeout = 10 * time.Second
	maxDepth     = 5
)

var probePaths = []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap"}

// urlSet mirrors the <urlset><url><loc> shape of a plain sitemap.
type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// sitemapIndex mirrors the <sitemapindex><sitemap><loc> shape of a
// sitemap-of-sitemaps.
type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// Harvester probes a domain's well-known sitemap locations and expands
// any sitemap indexes it finds, bounding recursion to maxDepth.
type Harvester struct {
	client *http.Client
	log    *logrus.Entry
}

// New builds a Harvester with its own HTTP client, whose timeout is
// probeTimeout, logging probe failures to log.
func New(log *logrus.Entry) *Harvester {
	return &Harvester{client: &http.Client{Timeout: probeTimeout}, log: log}
}

// Harvest probes https://{domain}/sitemap.xml, /sitemap_index.xml, and
// /sitemap in order, recursing into sitemap indexes, and returns the union
// of every <loc> URL that passes urlutil.IsValid. Probe failures are
// logged at debug and ignored.
func (h *Harvester) Harvest(ctx context.Context, domain string) []string {
	seen := make(map[string]struct{})
	var found []string
	for _, path := range probePaths {
		target := fmt.Sprintf("https://%s%s", domain, path)
		h.harvestOne(ctx, target, 0, seen, &found)
	}
	return found
}

func (h *Harvester) harvestOne(ctx context.Context, target string, depth int, seen map[string]struct{}, found *[]string) {
	if depth >= maxDepth {
		return
	}
	if _, dup := seen[target]; dup {
		return
	}
	seen[target] = struct{}{}

	body, err := h.fetch(ctx, target)
	if err != nil {
		h.log.WithError(err).WithField("url", target).Debug("sitemap probe failed")
		return
	}

	var index sitemapIndex
	if xml.Unmarshal(body, &index) == nil && len(index.Sitemaps) > 0 {
		for _, s := range index.Sitemaps {
			h.harvestOne(ctx, s.Loc, depth+1, seen, found)
		}
		return
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		h.log.WithError(err).WithField("url", target).Debug("sitemap parse failed")
		return
	}
	for _, u := range set.URLs {
		if urlutil.IsValid(u.Loc) {
			*found = append(*found, urlutil.Normalize(u.Loc))
		}
	}
}

func (h *Harvester) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap probe %s: %s", target, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
