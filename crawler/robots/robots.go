// Package robots implements the robots.txt gate: a best-effort,
// fail-open permission check consulted once per claimed URL.
package robots

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

const (
	robotsTxtPath  = "/robots.txt"
	retryMinDelay  = 2 * time.Second
	retryMaxDelay  = 10 * time.Second
	retryAttempts  = 2
)

// Gate answers fetch-permission queries against each host's robots.txt,
// fetched lazily on first use per host and cached for the lifetime of the
// Gate.
type Gate struct {
	userAgent string
	timeout   time.Duration
	client    *http.Client
	log       *logrus.Entry

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

// New creates a Gate that fetches robots.txt with the given timeout and
// user agent, making up to retryAttempts attempts on transient failures
// with jittered exponential backoff bounded [2s, 10s].
func New(userAgent string, timeout time.Duration, log *logrus.Entry) *Gate {
	transport := rehttp.NewTransport(
		http.DefaultTransport,
		rehttp.RetryAll(
			// RetryMaxRetries counts retries after the first attempt.
			rehttp.RetryMaxRetries(retryAttempts-1),
			rehttp.RetryTemporaryErr(),
		),
		rehttp.ExpJitterDelay(retryMinDelay, retryMaxDelay),
	)
	return &Gate{
		userAgent: userAgent,
		timeout:   timeout,
		client:    &http.Client{Transport: transport, Timeout: timeout},
		log:       log,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// CanFetch reports whether rawURL may be fetched according to its domain's
// robots.txt *-group. Any network, timeout, or parse failure is treated as
// allow; the gate must never block the pipeline on its own failure.
func (g *Gate) CanFetch(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	group := g.group(u)
	if group == nil {
		return true
	}
	return group.Test(u.RequestURI())
}

// CrawlDelay returns the Crawl-delay directive for the domain, if any, or
// zero if no robots.txt (or no directive) was found.
func (g *Gate) CrawlDelay(rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	group := g.group(u)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

// group returns the cached *-group for u.Host, fetching and caching it on
// first use. groups is shared across concurrently-running workers, so all
// access goes through mu.
func (g *Gate) group(u *url.URL) *robotstxt.Group {
	g.mu.Lock()
	group, ok := g.groups[u.Host]
	g.mu.Unlock()
	if ok {
		return group
	}
	group = g.fetchGroup(u)
	g.mu.Lock()
	g.groups[u.Host] = group
	g.mu.Unlock()
	return group
}

func (g *Gate) fetchGroup(domain *url.URL) *robotstxt.Group {
	target := &url.URL{Scheme: domain.Scheme, Host: domain.Host, Path: robotsTxtPath}
	if target.Scheme == "" {
		target.Scheme = "http"
	}
	req, err := http.NewRequest(http.MethodGet, target.String(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.WithError(err).WithField("domain", domain.Host).Debug("robots.txt fetch failed, failing open")
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		g.log.WithError(err).WithField("domain", domain.Host).Debug("robots.txt parse failed, failing open")
		return nil
	}
	return data.FindGroup("*")
}
