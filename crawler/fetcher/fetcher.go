// Package fetcher implements the polite HTTP client used by every
// per-URL worker: a single shared client, a pool of rotating user agents,
// and a retry/backoff policy for transport errors.
package fetcher

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/rehttp"
)

const (
	retryMaxAttempts = 2
	retryMinDelay    = 1 * time.Second
	retryMaxDelay    = 10 * time.Second

	// maxIdleConnsPerHost caps the per-host connection pool, matching the
	// adaptive scheduler's shared-session requirement.
	maxIdleConnsPerHost = 5
)

// DefaultUserAgents is the fixed pool of realistic desktop and mobile
// strings rotated per request.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
}

// Result is a single fetch outcome: the elapsed time, the response status
// code, and the response body. Errors are returned alongside it by Fetch.
type Result struct {
	Elapsed    time.Duration
	StatusCode int
	Body       []byte
}

// Fetcher issues polite GET requests through a shared *http.Client.
type Fetcher struct {
	userAgents []string
	client     *http.Client
}

// New builds a Fetcher with baseTimeout as the request timeout and makes
// up to retryMaxAttempts attempts on temporary transport errors, with
// jittered exponential backoff between them.
func New(baseTimeout time.Duration) *Fetcher {
	transport := rehttp.NewTransport(
		&http.Transport{MaxIdleConnsPerHost: maxIdleConnsPerHost},
		// RetryMaxRetries counts retries after the first attempt.
		rehttp.RetryAll(rehttp.RetryMaxRetries(retryMaxAttempts-1), rehttp.RetryTemporaryErr()),
		rehttp.ExpJitterDelay(retryMinDelay, retryMaxDelay),
	)
	return &Fetcher{
		userAgents: DefaultUserAgents,
		client:     &http.Client{Timeout: baseTimeout, Transport: transport},
	}
}

// Fetch issues a GET against targetURL with a randomized user agent, a
// fixed browser-like accept header set, a Referer of google.com, a
// randomized DNT header, and a total timeout of baseTimeout scaled by
// timeoutFactor.
func (f *Fetcher) Fetch(targetURL string, timeoutFactor float64) (Result, error) {
	req, err := http.NewRequest(http.MethodGet, targetURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("fetching %s failed: %w", targetURL, err)
	}
	req.Header.Set("User-Agent", f.userAgents[rand.Intn(len(f.userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", "https://www.google.com/")
	if rand.Intn(2) == 0 {
		req.Header.Set("DNT", "0")
	} else {
		req.Header.Set("DNT", "1")
	}

	client := f.client
	if timeoutFactor != 1.0 && timeoutFactor > 0 {
		scaled := *f.client
		scaled.Timeout = time.Duration(float64(f.client.Timeout) * timeoutFactor)
		client = &scaled
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Elapsed: elapsed}, fmt.Errorf("fetching %s failed: %w", targetURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Elapsed: elapsed, StatusCode: resp.StatusCode}, fmt.Errorf("reading body of %s failed: %w", targetURL, err)
	}
	return Result{Elapsed: elapsed, StatusCode: resp.StatusCode, Body: body}, nil
}

// IsBotTrap reports whether a response looks like an automation-detection
// trap: HTTP 403 with a body mentioning "bot".
func IsBotTrap(r Result) bool {
	return r.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(string(r.Body)), "bot")
}
